package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-backoffice/apperr"
	"pos-backoffice/auth"
	"pos-backoffice/models"
	"pos-backoffice/store"
)

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]{64})`)

func newAuth(t *testing.T) (*AuthService, *store.MemoryStore, *recordingMailer) {
	t.Helper()
	tokens, err := auth.NewTokenMaker([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	st := store.NewMemoryStore()
	mail := &recordingMailer{}
	return NewAuthService(st, tokens, mail, &fakeImages{}, "http://app.test/"), st, mail
}

func linkToken(t *testing.T, m sentMail) string {
	t.Helper()
	match := tokenInLink.FindStringSubmatch(m.Body)
	require.Len(t, match, 2, "no token link in %q", m.Body)
	return match[1]
}

var registration = models.RegisterRequest{
	Name:     "Maria",
	Email:    "Maria@Shop.test ",
	Password: "secret1",
	Phone:    "5551234567",
}

func registerAndVerify(t *testing.T, svc *AuthService, mail *recordingMailer) *models.Admin {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Register(ctx, registration)
	require.NoError(t, err)
	admin, _, err := svc.VerifyEmail(ctx, linkToken(t, mail.last(t)))
	require.NoError(t, err)
	return admin
}

func TestRegister_SendsVerificationLink(t *testing.T) {
	svc, st, mail := newAuth(t)
	ctx := context.Background()

	temp, err := svc.Register(ctx, registration)
	require.NoError(t, err)
	claims, err := svc.Tokens().Verify(temp, auth.PurposeEmailVerification)
	require.NoError(t, err)

	admin, err := st.Admins().FindByEmail(ctx, "maria@shop.test")
	require.NoError(t, err)
	assert.Equal(t, admin.ID.Hex(), claims.AdminID)
	assert.False(t, admin.IsVerified)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEqual(t, "secret1", admin.Password)

	sent := mail.last(t)
	assert.Equal(t, "maria@shop.test", sent.To)
	assert.Contains(t, sent.Body, "http://app.test/verify-email?token=")
	assert.Equal(t, admin.EmailVerificationToken, linkToken(t, sent))

	_, err = svc.Register(ctx, registration)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRegister_MailFailureRemovesAdmin(t *testing.T) {
	svc, st, mail := newAuth(t)
	ctx := context.Background()
	mail.err = errors.New("smtp: connection refused")

	_, err := svc.Register(ctx, registration)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	_, err = st.Admins().FindByEmail(ctx, "maria@shop.test")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mail.err = nil
	_, err = svc.Register(ctx, registration)
	assert.NoError(t, err)
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	svc, _, mail := newAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registration)
	require.NoError(t, err)
	token := linkToken(t, mail.last(t))

	admin, session, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, admin.IsVerified)
	assert.Empty(t, admin.EmailVerificationToken)
	_, err = svc.Tokens().Verify(session, auth.PurposeSession)
	assert.NoError(t, err)

	_, _, err = svc.VerifyEmail(ctx, token)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, _, err = svc.VerifyEmail(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestVerifyEmail_Expired(t *testing.T) {
	svc, _, mail := newAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registration)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, _, err = svc.VerifyEmail(ctx, linkToken(t, mail.last(t)))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestLogin(t *testing.T) {
	svc, _, mail := newAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registration)
	require.NoError(t, err)

	login := models.LoginRequest{Email: "maria@shop.test", Password: "secret1"}
	_, _, err = svc.Login(ctx, login)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, _, err = svc.VerifyEmail(ctx, linkToken(t, mail.last(t)))
	require.NoError(t, err)

	admin, token, err := svc.Login(ctx, login)
	require.NoError(t, err)
	assert.Equal(t, "Maria", admin.Name)

	authed, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, authed.ID)

	_, _, err = svc.Login(ctx, models.LoginRequest{Email: "maria@shop.test", Password: "wrong"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, _, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@shop.test", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestAuthenticate_RejectsOtherTokens(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	temp, err := svc.Register(ctx, registration)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, temp)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Authenticate(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Authenticate(ctx, "v2.local.garbage")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestUpdateProfile(t *testing.T) {
	svc, _, mail := newAuth(t)
	ctx := context.Background()
	admin := registerAndVerify(t, svc, mail)

	updated, err := svc.UpdateProfile(ctx, admin.ID, models.ProfileUpdateRequest{Name: "Maria Lopez"}, pngUpload(t, "me.png"))
	require.NoError(t, err)
	assert.Equal(t, "Maria Lopez", updated.Name)
	assert.Equal(t, "5551234567", updated.Phone)
	assert.Contains(t, updated.ProfileImage, "https://img.test/profile_images/")
}

func TestUpdateProfile_KeepsPasswordResetDuringUpload(t *testing.T) {
	tokens, err := auth.NewTokenMaker([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	images := &fakeImages{}
	mail := &recordingMailer{}
	svc := NewAuthService(store.NewMemoryStore(), tokens, mail, images, "http://app.test")
	ctx := context.Background()
	admin := registerAndVerify(t, svc, mail)

	require.NoError(t, svc.ForgotPassword(ctx, "maria@shop.test"))
	reset := linkToken(t, mail.last(t))
	images.onUpload = func() {
		require.NoError(t, svc.ResetPassword(ctx, reset, "brandnew"))
	}

	_, err = svc.UpdateProfile(ctx, admin.ID, models.ProfileUpdateRequest{Name: "Maria Lopez"}, pngUpload(t, "me.png"))
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, models.LoginRequest{Email: "maria@shop.test", Password: "brandnew"})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, _, mail := newAuth(t)
	ctx := context.Background()
	admin := registerAndVerify(t, svc, mail)

	err := svc.ChangePassword(ctx, admin.ID, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.ChangePassword(ctx, admin.ID, models.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))
	_, _, err = svc.Login(ctx, models.LoginRequest{Email: "maria@shop.test", Password: "secret2"})
	assert.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, _, mail := newAuth(t)
	ctx := context.Background()
	registerAndVerify(t, svc, mail)
	sentBefore := len(mail.sent)

	require.NoError(t, svc.ForgotPassword(ctx, "ghost@shop.test"))
	assert.Len(t, mail.sent, sentBefore)

	require.NoError(t, svc.ForgotPassword(ctx, "MARIA@shop.test"))
	sent := mail.last(t)
	assert.Contains(t, sent.Body, "http://app.test/reset-password?token=")
	token := linkToken(t, sent)

	require.NoError(t, svc.ResetPassword(ctx, token, "brandnew"))
	_, _, err := svc.Login(ctx, models.LoginRequest{Email: "maria@shop.test", Password: "brandnew"})
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, token, "again1")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestForgotPassword_MailFailureClearsToken(t *testing.T) {
	svc, st, mail := newAuth(t)
	ctx := context.Background()
	registerAndVerify(t, svc, mail)

	mail.err = errors.New("smtp down")
	err := svc.ForgotPassword(ctx, "maria@shop.test")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	admin, err := st.Admins().FindByEmail(ctx, "maria@shop.test")
	require.NoError(t, err)
	assert.Empty(t, admin.PasswordResetToken)
}

func TestForgotPassword_KeepsVerificationDuringSend(t *testing.T) {
	svc, st, mail := newAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registration)
	require.NoError(t, err)
	verify := linkToken(t, mail.last(t))

	mail.err = errors.New("smtp down")
	mail.onSend = func() {
		_, _, err := svc.VerifyEmail(ctx, verify)
		require.NoError(t, err)
	}
	err = svc.ForgotPassword(ctx, "maria@shop.test")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	admin, err := st.Admins().FindByEmail(ctx, "maria@shop.test")
	require.NoError(t, err)
	assert.True(t, admin.IsVerified)
	assert.Empty(t, admin.EmailVerificationToken)
	assert.Empty(t, admin.PasswordResetToken)
}

func TestDeleteAdmin(t *testing.T) {
	svc, _, mail := newAuth(t)
	ctx := context.Background()
	admin := registerAndVerify(t, svc, mail)

	root, err := svc.CreateSuperAdmin(ctx, "Root", "root@shop.test", "5550000000", "rootpw")
	require.NoError(t, err)
	assert.True(t, root.IsVerified)
	assert.Equal(t, models.RoleSuperAdmin, root.Role)

	err = svc.DeleteAdmin(ctx, root.ID, root.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.DeleteAdmin(ctx, root.ID, admin.ID.Hex()))
	admins, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	err = svc.DeleteAdmin(ctx, root.ID, admin.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateSuperAdmin_Validation(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.CreateSuperAdmin(ctx, "Root", "root@shop.test", "123", "rootpw")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.CreateSuperAdmin(ctx, "Root", "root-at-shop", "5550000000", "rootpw")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.CreateSuperAdmin(ctx, "Root", "root@shop.test", "5550000000", "pw")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
