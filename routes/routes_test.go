package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/duckieducksrgood/winchpoint/configs"
	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/mailer"
	"github.com/duckieducksrgood/winchpoint/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type inbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (i *inbox) Send(_ context.Context, m mailer.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sent = append(i.sent, m)
	return nil
}

func (i *inbox) subjects() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []string
	for _, m := range i.sent {
		out = append(out, m.Subject)
	}
	return out
}

type stubStore struct{}

func (stubStore) PresignUpload(_ context.Context, key, contentType string) (*storage.PresignedUpload, error) {
	return &storage.PresignedUpload{URL: "https://bucket.test/", Key: key, Fields: map[string]string{"key": key, "Content-Type": contentType}}, nil
}

func (stubStore) ObjectURL(key string) string { return "https://bucket.test/" + key }

type harness struct {
	t    *testing.T
	db   *gorm.DB
	app  *App
	mail *inbox
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, configs.Migrate(db))

	cfg := &configs.Config{
		AppEnv:        "test",
		JWTSecret:     "routes-test",
		JWTTTL:        time.Hour,
		JWTRefreshTTL: 2 * time.Hour,
		CORSOrigins:   []string{"*"},
		SiteURL:       "http://shop.test",
	}
	mail := &inbox{}
	app, err := Build(db, cfg, zap.NewNop(), Deps{Mail: mail, Store: stubStore{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	app.Bus.Start(ctx)
	t.Cleanup(func() {
		app.Bus.Stop(context.Background())
		cancel()
	})
	return &harness{t: t, db: db, app: app, mail: mail}
}

type envelope struct {
	OK     bool            `json:"ok"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Fields []string        `json:"fields"`
}

func (h *harness) call(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.app.Engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (h *harness) signup(username string, role entity.Role) string {
	h.t.Helper()
	code, env := h.call(http.MethodPost, "/auth/register", "", gin.H{
		"username": username, "email": username + "@example.com", "password": "longenough",
		"firstName": "First", "lastName": "Last", "deliveryAddress": "Cebu",
	})
	require.Equal(h.t, http.StatusCreated, code, env.Error)
	if role != entity.RoleCustomer {
		require.NoError(h.t, h.db.Model(&entity.User{}).Where("username = ?", username).Update("role", role).Error)
	}

	code, env = h.call(http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": "longenough"})
	require.Equal(h.t, http.StatusOK, code, env.Error)
	var out struct {
		Access string `json:"access"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &out))
	return out.Access
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	code, env := h.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.OK)

	w := httptest.NewRecorder()
	h.app.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "winchpoint_http_requests_total")
}

func TestShopFlow(t *testing.T) {
	h := newHarness(t)
	admin := h.signup("boss", entity.RoleAdmin)
	buyer := h.signup("juan", entity.RoleCustomer)

	// catalog is admin-only for writes
	code, _ := h.call(http.MethodPost, "/admin/categories", buyer, gin.H{"name": "Winches"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env := h.call(http.MethodPost, "/admin/categories", admin, gin.H{"name": "Winches"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var cat entity.Category
	require.NoError(t, json.Unmarshal(env.Data, &cat))

	code, env = h.call(http.MethodPost, "/admin/products", admin, gin.H{
		"name": "12k Winch", "price": "499", "stock": 2, "categoryId": cat.ID,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var prod entity.Product
	require.NoError(t, json.Unmarshal(env.Data, &prod))

	code, _ = h.call(http.MethodGet, fmt.Sprintf("/products/%d", prod.ID), "", nil)
	assert.Equal(t, http.StatusOK, code)

	// cart
	code, _ = h.call(http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = h.call(http.MethodPost, "/cart/items", buyer, gin.H{"productId": prod.ID, "quantity": 3})
	assert.Equal(t, http.StatusBadRequest, code, "more than stock")

	code, env = h.call(http.MethodPost, "/cart/items", buyer, gin.H{"productId": prod.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var item entity.CartItem
	require.NoError(t, json.Unmarshal(env.Data, &item))

	// checkout
	code, env = h.call(http.MethodPost, "/orders", buyer, gin.H{"cartItemIds": []uint{item.ID}})
	require.Equal(t, http.StatusBadRequest, code)
	assert.ElementsMatch(t, []string{"totalPrice", "paymentMethod", "deliveryAddress", "proofOfPayment"}, env.Fields)

	code, env = h.call(http.MethodPost, "/orders", buyer, gin.H{
		"cartItemIds": []uint{item.ID}, "totalPrice": "998", "paymentMethod": "GCASH",
		"deliveryAddress": "Cebu", "proofOfPayment": "proof_of_payment/x.png",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var placed struct {
		ID         uint            `json:"id"`
		TotalPrice decimal.Decimal `json:"totalPrice"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	assert.Equal(t, "998", placed.TotalPrice.String())

	var stock entity.Product
	require.NoError(t, h.db.First(&stock, prod.ID).Error)
	assert.Equal(t, 0, stock.Stock)

	// another customer cannot see it
	other := h.signup("pedro", entity.RoleCustomer)
	code, _ = h.call(http.MethodGet, fmt.Sprintf("/orders/%d", placed.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// admin cancels; stock comes back and the buyer is told
	code, env = h.call(http.MethodPatch, fmt.Sprintf("/orders/%d", placed.ID), admin, gin.H{"status": "Cancelled"})
	require.Equal(t, http.StatusOK, code, env.Error)
	h.app.Bus.Drain()

	require.NoError(t, h.db.First(&stock, prod.ID).Error)
	assert.Equal(t, 2, stock.Stock)
	assert.Eventually(t, func() bool { return len(h.mail.subjects()) > 0 }, time.Second, 10*time.Millisecond)

	code, _ = h.call(http.MethodPatch, fmt.Sprintf("/orders/%d", placed.ID), admin, gin.H{"status": "Completed"})
	assert.Equal(t, http.StatusBadRequest, code, "cancelled is terminal")
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	h := newHarness(t)
	buyer := h.signup("maria", entity.RoleCustomer)
	admin := h.signup("root", entity.RoleAdmin)

	for _, path := range []string{"/admin/users", "/admin/reports/dashboard", "/admin/reports/revenue?year=2025"} {
		code, _ := h.call(http.MethodGet, path, buyer, nil)
		assert.Equal(t, http.StatusForbidden, code, path)
		code, env := h.call(http.MethodGet, path, admin, nil)
		assert.Equal(t, http.StatusOK, code, path+": "+env.Error)
	}

	code, _ := h.call(http.MethodGet, "/admin/reports/revenue/export?year=2025&type=csv", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/reports/revenue/export?year=2025&type=pdf", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	h.app.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "revenue_report_2025.pdf")
}

func TestPresignAndPaymentQR(t *testing.T) {
	h := newHarness(t)
	buyer := h.signup("lito", entity.RoleCustomer)
	admin := h.signup("chief", entity.RoleAdmin)

	code, env := h.call(http.MethodPost, "/uploads/presign", buyer, gin.H{
		"folder": "proof_of_payment", "filename": "receipt.png", "contentType": "image/png",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Contains(t, string(env.Data), "proof_of_payment/")

	code, _ = h.call(http.MethodPost, "/uploads/presign", buyer, gin.H{
		"folder": "product_images", "filename": "x.png", "contentType": "image/png",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = h.call(http.MethodPost, "/admin/payment-qr", admin, gin.H{"qrCode": "qr_codes/gcash.png"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = h.call(http.MethodGet, "/payment-qr", "", nil)
	require.Equal(t, http.StatusOK, code)
	var list []entity.PaymentQR
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "GCASH", list[0].Type)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.signup("nena", entity.RoleCustomer)

	code, _ := h.call(http.MethodPost, "/auth/password-reset/request", "", gin.H{"email": "nena@example.com"})
	require.Equal(t, http.StatusOK, code)
	h.app.Bus.Drain()

	var u entity.User
	require.NoError(t, h.db.Where("username = ?", "nena").First(&u).Error)
	require.Len(t, u.ResetCode, 4)

	code, _ = h.call(http.MethodPost, "/auth/password-reset/confirm", "", gin.H{
		"email": "nena@example.com", "code": u.ResetCode, "newPassword": "brandnewpass",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = h.call(http.MethodPost, "/auth/login", "", gin.H{"username": "nena", "password": "brandnewpass"})
	assert.Equal(t, http.StatusOK, code)
}
