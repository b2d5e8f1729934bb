package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "mw-secret"

func init() { gin.SetMode(gin.TestMode) }

func tokenFor(t *testing.T, role entity.Role, typ string) string {
	t.Helper()
	u := &entity.User{Username: "u", Role: role}
	u.ID = 3
	tok, err := utils.GenerateToken(u, typ, secret, time.Minute)
	require.NoError(t, err)
	return tok
}

func newRouter(roles ...entity.Role) *gin.Engine {
	r := gin.New()
	r.GET("/x", AuthMiddleware(secret, roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": utils.CurrentUserID(c), "role": utils.CurrentRole(c)})
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		roles  []entity.Role
		header string
		cookie string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + tokenFor(t, entity.RoleCustomer, utils.TokenRefresh), want: http.StatusUnauthorized},
		{name: "customer ok", header: "Bearer " + tokenFor(t, entity.RoleCustomer, utils.TokenAccess), want: http.StatusOK},
		{name: "cookie ok", cookie: tokenFor(t, entity.RoleCustomer, utils.TokenAccess), want: http.StatusOK},
		{name: "wrong role", roles: []entity.Role{entity.RoleAdmin}, header: "Bearer " + tokenFor(t, entity.RoleCustomer, utils.TokenAccess), want: http.StatusForbidden},
		{name: "admin ok", roles: []entity.Role{entity.RoleAdmin}, header: "Bearer " + tokenFor(t, entity.RoleAdmin, utils.TokenAccess), want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tc.cookie})
			}
			w := do(newRouter(tc.roles...), req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestWSAuthAcceptsQueryToken(t *testing.T) {
	r := gin.New()
	r.GET("/ws", WSAuthMiddleware(secret, entity.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+tokenFor(t, entity.RoleAdmin, utils.TokenAccess), nil)
	assert.Equal(t, http.StatusOK, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
}

func TestObservabilityEchoesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Observability(nil, nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := do(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}
