package services

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/apperr"
	"pos-backoffice/auth"
	"pos-backoffice/mailer"
	"pos-backoffice/media"
	"pos-backoffice/models"
	"pos-backoffice/store"
)

const (
	verificationTTL  = 24 * time.Hour
	resetTTL         = time.Hour
	registrationTTL  = time.Hour
	invalidLoginText = "Invalid credentials"
)

// AuthService implements registration, verification, login, profile and
// password flows for admins.
type AuthService struct {
	store       store.Store
	tokens      *auth.TokenMaker
	mail        mailer.Sender
	images      uploader
	frontendURL string
	now         func() time.Time
}

func NewAuthService(st store.Store, tokens *auth.TokenMaker, mail mailer.Sender, images media.Store, frontendURL string) *AuthService {
	return &AuthService{
		store:       st,
		tokens:      tokens,
		mail:        mail,
		images:      uploader{store: images},
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// Tokens exposes the token maker so handlers can set cookie lifetimes.
func (s *AuthService) Tokens() *auth.TokenMaker { return s.tokens }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) link(path, token string) string {
	return s.frontendURL + path + "?token=" + url.QueryEscape(token)
}

// Register creates an unverified admin and mails the verification link. If
// the mail cannot be sent the admin is removed again, so the same email can
// register later. The returned token only identifies the new admin.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.store.Admins().FindByEmail(ctx, email); err == nil {
		return "", apperr.Conflict("Admin with this email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", apperr.Internal("Failed to register admin", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", apperr.Internal("Failed to register admin", err)
	}
	token, err := auth.RandomToken()
	if err != nil {
		return "", apperr.Internal("Failed to register admin", err)
	}

	now := s.now()
	expires := now.Add(verificationTTL)
	admin := &models.Admin{
		Name:                     strings.TrimSpace(req.Name),
		Email:                    email,
		Password:                 hash,
		Role:                     models.RoleAdmin,
		Phone:                    req.Phone,
		ProfileImage:             models.DefaultProfileImage,
		EmailVerificationToken:   token,
		EmailVerificationExpires: &expires,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.store.Admins().Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", apperr.Conflict("Admin with this email already exists")
		}
		return "", apperr.Internal("Failed to register admin", err)
	}

	subject, body, err := mailer.VerificationEmail(s.link("/verify-email", token))
	if err == nil {
		err = s.mail.Send(ctx, email, subject, body)
	}
	if err != nil {
		slog.Error("Verification email failed, removing admin", "admin_id", admin.ID.Hex(), "error", err)
		if derr := s.store.Admins().Delete(ctx, admin.ID); derr != nil {
			slog.Error("Failed to remove unverifiable admin", "admin_id", admin.ID.Hex(), "error", derr)
		}
		return "", apperr.Upstream("Failed to send verification email", err)
	}

	temp, err := s.tokens.CreateFor(admin.ID.Hex(), string(admin.Role), auth.PurposeEmailVerification, registrationTTL)
	if err != nil {
		return "", apperr.Internal("Failed to register admin", err)
	}
	return temp, nil
}

// VerifyEmail consumes a verification token and opens a session.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.Admin, string, error) {
	if token == "" {
		return nil, "", apperr.Validation("Verification token is required")
	}
	admin, err := s.store.Admins().ConsumeVerificationToken(ctx, token, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.Validation("Invalid or expired verification token")
	}
	if err != nil {
		return nil, "", apperr.Internal("Failed to verify email", err)
	}
	return s.session(admin)
}

// Login checks credentials. Only verified admins get a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Admin, string, error) {
	admin, err := s.store.Admins().FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.Unauthorized(invalidLoginText)
	}
	if err != nil {
		return nil, "", apperr.Internal("Failed to log in", err)
	}
	if !auth.CheckPassword(admin.Password, req.Password) {
		return nil, "", apperr.Unauthorized(invalidLoginText)
	}
	if !admin.IsVerified {
		return nil, "", apperr.Forbidden("Please verify your email before logging in")
	}
	return s.session(admin)
}

func (s *AuthService) session(admin *models.Admin) (*models.Admin, string, error) {
	token, err := s.tokens.Create(admin.ID.Hex(), string(admin.Role))
	if err != nil {
		return nil, "", apperr.Internal("Failed to create session", err)
	}
	return admin, token, nil
}

// Authenticate resolves a session token to a verified admin.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Admin, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Not authorized, no token")
	}
	claims, err := s.tokens.Verify(token, auth.PurposeSession)
	if err != nil {
		return nil, apperr.Unauthorized("Not authorized, token failed")
	}
	id, err := primitive.ObjectIDFromHex(claims.AdminID)
	if err != nil {
		return nil, apperr.Unauthorized("Not authorized, token failed")
	}
	admin, err := s.store.Admins().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("Not authorized, admin not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to authenticate", err)
	}
	if !admin.IsVerified {
		return nil, apperr.Unauthorized("Not authorized, email not verified")
	}
	return admin, nil
}

func (s *AuthService) Profile(ctx context.Context, adminID primitive.ObjectID) (*models.Admin, error) {
	admin, err := s.store.Admins().FindByID(ctx, adminID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Admin")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to fetch profile", err)
	}
	return admin, nil
}

// UpdateProfile changes name and phone, and the avatar when one is uploaded.
// Only those fields are written.
func (s *AuthService) UpdateProfile(ctx context.Context, adminID primitive.ObjectID, req models.ProfileUpdateRequest, avatar *multipart.FileHeader) (*models.Admin, error) {
	imageURL, err := s.images.upload(ctx, avatar, media.FolderProfiles)
	if err != nil {
		return nil, err
	}

	var upd models.ProfileUpdate
	if name := strings.TrimSpace(req.Name); name != "" {
		upd.Name = &name
	}
	if req.Phone != "" {
		upd.Phone = &req.Phone
	}
	if imageURL != "" {
		upd.ProfileImage = &imageURL
	}

	admin, err := s.store.Admins().UpdateProfile(ctx, adminID, upd, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Admin")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to update profile", err)
	}
	return admin, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, adminID primitive.ObjectID, req models.ChangePasswordRequest) error {
	admin, err := s.Profile(ctx, adminID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(admin.Password, req.CurrentPassword) {
		return apperr.Validation("Current password is incorrect")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	if err := s.store.Admins().SetPassword(ctx, adminID, hash, s.now()); err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	return nil
}

// ForgotPassword mails a reset link when the email belongs to an admin.
// Unknown emails succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	admin, err := s.store.Admins().FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return apperr.Internal("Failed to process request", err)
	}

	token, err := auth.RandomToken()
	if err != nil {
		return apperr.Internal("Failed to process request", err)
	}
	expires := s.now().Add(resetTTL)
	if err := s.store.Admins().SetResetToken(ctx, admin.ID, token, &expires); err != nil {
		return apperr.Internal("Failed to process request", err)
	}

	subject, body, err := mailer.ResetEmail(s.link("/reset-password", token))
	if err == nil {
		err = s.mail.Send(ctx, admin.Email, subject, body)
	}
	if err != nil {
		// A newer request may have replaced the token already; leave that one.
		if cerr := s.store.Admins().ClearResetToken(ctx, admin.ID, token); cerr != nil && !errors.Is(cerr, store.ErrNotFound) {
			slog.Error("Failed to clear reset token", "admin_id", admin.ID.Hex(), "error", cerr)
		}
		return apperr.Upstream("Failed to send password reset email", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperr.Validation("Reset token is required")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("Failed to reset password", err)
	}
	_, err = s.store.Admins().ConsumeResetToken(ctx, token, s.now(), hash)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation("Invalid or expired reset token")
	}
	if err != nil {
		return apperr.Internal("Failed to reset password", err)
	}
	return nil
}

func (s *AuthService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	admins, err := s.store.Admins().List(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch admins", err)
	}
	return admins, nil
}

// DeleteAdmin removes another admin account.
func (s *AuthService) DeleteAdmin(ctx context.Context, actorID primitive.ObjectID, id string) error {
	target, err := parseID(id, "admin")
	if err != nil {
		return err
	}
	if target == actorID {
		return apperr.Validation("You cannot delete your own account")
	}
	err = s.store.Admins().Delete(ctx, target)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Admin")
	}
	if err != nil {
		return apperr.Internal("Failed to delete admin", err)
	}
	return nil
}

// CreateSuperAdmin seeds a verified SuperAdmin without the email round trip.
func (s *AuthService) CreateSuperAdmin(ctx context.Context, name, email, phone, password string) (*models.Admin, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("Name is required")
	}
	if !models.PhonePattern.MatchString(phone) {
		return nil, apperr.Validation("Phone must be exactly 10 digits")
	}
	if len(password) < 6 {
		return nil, apperr.Validation("Password must be at least 6 characters")
	}
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("Invalid email")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("Failed to create admin", err)
	}
	now := s.now()
	admin := &models.Admin{
		Name:         strings.TrimSpace(name),
		Email:        email,
		Password:     hash,
		Role:         models.RoleSuperAdmin,
		Phone:        phone,
		ProfileImage: models.DefaultProfileImage,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Admins().Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Admin with this email already exists")
		}
		return nil, apperr.Internal("Failed to create admin", err)
	}
	return admin, nil
}
