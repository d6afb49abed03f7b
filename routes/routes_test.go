package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-backoffice/auth"
	"pos-backoffice/controllers"
	"pos-backoffice/services"
	"pos-backoffice/store"
)

type outbox struct {
	mu     sync.Mutex
	bodies []string
}

func (o *outbox) Send(ctx context.Context, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies = append(o.bodies, body)
	return nil
}

var linkToken = regexp.MustCompile(`token=([0-9a-f]{64})`)

func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.bodies)
	m := linkToken.FindStringSubmatch(o.bodies[len(o.bodies)-1])
	require.Len(t, m, 2)
	return m[1]
}

// shelf is an image store that keeps uploads in memory.
type shelf struct {
	mu      sync.Mutex
	folders []string
}

func (s *shelf) Upload(ctx context.Context, r io.Reader, name, folder string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = append(s.folders, folder)
	return "https://img.test/" + folder + "/" + name, nil
}

type testServer struct {
	engine *gin.Engine
	mail   *outbox
	images *shelf
	auth   *services.AuthService
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	tokens, err := auth.NewTokenMaker([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	mail := &outbox{}
	images := &shelf{}
	authSvc := services.NewAuthService(st, tokens, mail, images, "http://app.test")

	ctrl := &controllers.Controller{
		Auth:     authSvc,
		Products: services.NewProductService(st, nil),
		Orders:   services.NewOrderService(st),
		Summary:  services.NewSummaryService(st, time.UTC),
		Store:    st,
	}
	return &testServer{engine: Setup(ctrl, "test", nil), mail: mail, images: images, auth: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

// superAdminToken seeds a SuperAdmin and logs in as it.
func (s *testServer) superAdminToken(t *testing.T) string {
	t.Helper()
	_, err := s.auth.CreateSuperAdmin(context.Background(), "Root", "root@shop.test", "5550000000", "rootpw")
	require.NoError(t, err)
	code, body := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "root@shop.test", "password": "rootpw"})
	require.Equal(t, http.StatusOK, code)
	return body["token"].(string)
}

func TestHealthAndNotFound(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "connected", body["database"])

	code, body = s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
}

func TestRegistrationFlow(t *testing.T) {
	s := newServer(t)
	reg := gin.H{"name": "Maria", "email": "maria@shop.test", "password": "secret1", "phone": "5551234567"}

	code, body := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Maria", "email": "maria@shop.test", "password": "secret1", "phone": "12345"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "phone must be exactly 10 digits", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, body["token"])

	code, _ = s.do(t, http.MethodPost, "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusConflict, code)

	login := gin.H{"email": "maria@shop.test", "password": "secret1"}
	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+s.mail.lastToken(t), "", nil)
	require.Equal(t, http.StatusOK, code)
	session := body["token"].(string)
	admin := body["admin"].(map[string]any)
	assert.Equal(t, true, admin["is_verified"])
	assert.NotContains(t, admin, "password")

	code, body = s.do(t, http.MethodGet, "/api/auth/profile", session, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "maria@shop.test", body["admin"].(map[string]any)["email"])

	code, _ = s.do(t, http.MethodPut, "/api/auth/change-password", session, gin.H{"current_password": "secret1", "new_password": "secret2"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "maria@shop.test", "password": "secret2"})
	assert.Equal(t, http.StatusOK, code)
}

func TestPasswordReset(t *testing.T) {
	s := newServer(t)
	s.superAdminToken(t)

	code, unknown := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": "ghost@shop.test"})
	assert.Equal(t, http.StatusOK, code)
	code, known := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": "root@shop.test"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, unknown["message"], known["message"])

	token := s.mail.lastToken(t)
	code, _ = s.do(t, http.MethodPut, "/api/auth/reset-password?token="+token, "", gin.H{"new_password": "fresh1"})
	assert.Equal(t, http.StatusOK, code)
	code, body := s.do(t, http.MethodPut, "/api/auth/reset-password?token="+token, "", gin.H{"new_password": "fresh2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired reset token", body["message"])

	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "root@shop.test", "password": "fresh1"})
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminManagementNeedsSuperAdmin(t *testing.T) {
	s := newServer(t)
	root := s.superAdminToken(t)

	code, _ := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Ana", "email": "ana@shop.test", "password": "secret1", "phone": "5551112222"})
	require.Equal(t, http.StatusCreated, code)
	code, body := s.do(t, http.MethodGet, "/api/auth/verify-email?token="+s.mail.lastToken(t), "", nil)
	require.Equal(t, http.StatusOK, code)
	ana := body["token"].(string)
	anaID := body["admin"].(map[string]any)["id"].(string)

	code, _ = s.do(t, http.MethodGet, "/api/auth/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodGet, "/api/auth/users", ana, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(t, http.MethodGet, "/api/auth/users", root, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])

	code, _ = s.do(t, http.MethodDelete, "/api/auth/users/"+anaID, root, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/auth/profile", ana, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOrderStockFlow(t *testing.T) {
	s := newServer(t)
	token := s.superAdminToken(t)

	code, _ := s.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := s.do(t, http.MethodPost, "/api/products", token, gin.H{"name": "Coffee", "price": 2.5, "quantity": 5, "category": "Drinks"})
	require.Equal(t, http.StatusCreated, code)
	productID := body["product"].(map[string]any)["id"].(string)

	code, body = s.do(t, http.MethodPost, "/api/products", token, gin.H{"name": "Free", "quantity": 5})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "price is required", body["message"])

	order := gin.H{
		"items":            []gin.H{{"product_id": productID, "quantity": 3}},
		"customer_name":    "Luis",
		"customer_contact": "5559876543",
	}
	code, body = s.do(t, http.MethodPost, "/api/orders", token, order)
	require.Equal(t, http.StatusCreated, code)
	o1 := body["order"].(map[string]any)
	assert.Equal(t, "Pending", o1["status"])
	assert.Equal(t, 7.5, o1["total_amount"])

	code, body = s.do(t, http.MethodPost, "/api/orders", token, order)
	require.Equal(t, http.StatusCreated, code)
	o2 := body["order"].(map[string]any)

	code, _ = s.do(t, http.MethodPut, "/api/orders/status/"+o1["id"].(string), token, gin.H{"status": "Shipped"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPut, "/api/orders/status/"+o1["id"].(string), token, gin.H{"status": "Completed"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Completed", body["order"].(map[string]any)["status"])

	code, body = s.do(t, http.MethodPut, "/api/orders/status/"+o2["id"].(string), token, gin.H{"status": "Completed"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	assert.Equal(t, productID, body["product_id"])

	code, body = s.do(t, http.MethodGet, "/api/products/"+productID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["product"].(map[string]any)["quantity"])

	code, _ = s.do(t, http.MethodDelete, "/api/products/"+productID, token, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, http.MethodGet, "/api/summary", token, nil)
	require.Equal(t, http.StatusOK, code)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["pendingOrders"])
	assert.EqualValues(t, 1, summary["completedOrders"])
	assert.EqualValues(t, 1, summary["lowStock"])
	assert.Equal(t, 7.5, summary["todaysSales"])
	assert.Contains(t, summary, "totalProducts")
	assert.Contains(t, summary, "totalInventoryValue")

	code, _ = s.do(t, http.MethodDelete, "/api/orders/"+o1["id"].(string), token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, body = s.do(t, http.MethodGet, "/api/products/"+productID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 5, body["product"].(map[string]any)["quantity"])

	code, body = s.do(t, http.MethodGet, "/api/orders", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
}

func TestUpdateProfile_AcceptsProfileImageField(t *testing.T) {
	s := newServer(t)
	session := s.superAdminToken(t)

	var pic bytes.Buffer
	require.NoError(t, png.Encode(&pic, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("name", "Root Admin"))
	part, err := mw.CreateFormFile("profileImage", "me.png")
	require.NoError(t, err)
	_, err = part.Write(pic.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	admin := body["admin"].(map[string]any)
	assert.Equal(t, "Root Admin", admin["name"])
	assert.Contains(t, admin["profile_image"], "https://img.test/profile_images/")
	assert.Equal(t, []string{"profile_images"}, s.images.folders)
}
