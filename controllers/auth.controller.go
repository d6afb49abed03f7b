package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pos-backoffice/middleware"
	"pos-backoffice/models"
)

const forgotPasswordMessage = "If that email is registered, a reset link has been sent"

func (ctrl *Controller) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(ctrl.Auth.Tokens().TTL().Seconds()), "/", "", ctrl.SecureCookies, true)
}

// Register creates an unverified admin and sends the verification email.
func (ctrl *Controller) Register(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	token, err := ctrl.Auth.Register(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful, check your email to verify your account",
		"token":   token,
	})
}

// VerifyEmail consumes the token from the verification link.
func (ctrl *Controller) VerifyEmail(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	admin, token, err := ctrl.Auth.VerifyEmail(ctx, c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	ctrl.setSession(c, token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified successfully",
		"token":   token,
		"admin":   admin,
	})
}

// Login checks credentials and opens a session.
func (ctrl *Controller) Login(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	admin, token, err := ctrl.Auth.Login(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ctrl.setSession(c, token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"admin":   admin,
	})
}

func (ctrl *Controller) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", ctrl.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (ctrl *Controller) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "admin": middleware.CurrentAdmin(c)})
}

// UpdateProfile accepts JSON or a multipart form with an optional
// "profileImage" (or "image").
func (ctrl *Controller) UpdateProfile(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.ProfileUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	admin, err := ctrl.Auth.UpdateProfile(ctx, middleware.CurrentAdmin(c).ID, req, optionalFile(c, "profileImage", "image"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated", "admin": admin})
}

func (ctrl *Controller) ChangePassword(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := ctrl.Auth.ChangePassword(ctx, middleware.CurrentAdmin(c).ID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}

// ForgotPassword answers the same way whether or not the email exists.
func (ctrl *Controller) ForgotPassword(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := ctrl.Auth.ForgotPassword(ctx, req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": forgotPasswordMessage})
}

func (ctrl *Controller) ResetPassword(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := ctrl.Auth.ResetPassword(ctx, c.Query("token"), req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
}

// GetAdmins lists every admin account. SuperAdmin only.
func (ctrl *Controller) GetAdmins(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	admins, err := ctrl.Auth.ListAdmins(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(admins), "admins": admins})
}

// DeleteAdmin removes another admin. SuperAdmin only.
func (ctrl *Controller) DeleteAdmin(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ctrl.Auth.DeleteAdmin(ctx, middleware.CurrentAdmin(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Admin deleted successfully"})
}
