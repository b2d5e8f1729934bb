package controllers

import (
	"net/http"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/middlewares"
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"
	"github.com/duckieducksrgood/winchpoint/utils"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Identifier string `json:"username" binding:"required"` // username or email
	Password   string `json:"password" binding:"required"`
}

type AuthController struct {
	Svc          *services.AuthService
	SecureCookie bool
}

func NewAuthController(s *services.AuthService, secureCookie bool) *AuthController {
	return &AuthController{Svc: s, SecureCookie: secureCookie}
}

func userView(u *entity.User) gin.H {
	return gin.H{
		"id": u.ID, "username": u.Username, "email": u.Email,
		"firstName": u.FirstName, "lastName": u.LastName,
		"deliveryAddress": u.DeliveryAddress, "role": u.Role,
	}
}

func (a *AuthController) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", a.SecureCookie, true)
}

// POST /auth/register
func (a *AuthController) Register(c *gin.Context) {
	var req services.RegisterIn
	if !bindJSON(c, &req) {
		return
	}
	user, err := a.Svc.Register(&req)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, userView(user))
}

// POST /auth/login
func (a *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, user, err := a.Svc.Login(req.Identifier, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	a.setCookie(c, middlewares.AccessCookie, pair.Access, a.Svc.AccessTTL())
	a.setCookie(c, middlewares.RefreshCookie, pair.Refresh, a.Svc.RefreshTTL())
	resp.OK(c, gin.H{"access": pair.Access, "refresh": pair.Refresh, "user": userView(user)})
}

// POST /auth/refresh; the token comes from the body or the refresh cookie.
func (a *AuthController) Refresh(c *gin.Context) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Refresh == "" {
		body.Refresh, _ = c.Cookie(middlewares.RefreshCookie)
	}
	if body.Refresh == "" {
		resp.Unauthorized(c, "missing refresh token")
		return
	}
	pair, err := a.Svc.Refresh(body.Refresh)
	if err != nil {
		fail(c, err)
		return
	}
	a.setCookie(c, middlewares.AccessCookie, pair.Access, a.Svc.AccessTTL())
	a.setCookie(c, middlewares.RefreshCookie, pair.Refresh, a.Svc.RefreshTTL())
	resp.OK(c, gin.H{"access": pair.Access, "refresh": pair.Refresh})
}

// POST /auth/logout
func (a *AuthController) Logout(c *gin.Context) {
	a.setCookie(c, middlewares.AccessCookie, "", -time.Second)
	a.setCookie(c, middlewares.RefreshCookie, "", -time.Second)
	resp.OK(c, gin.H{"message": "logged out"})
}

// GET /auth/decode returns the identity carried by the caller's token.
func (a *AuthController) Decode(c *gin.Context) {
	resp.OK(c, gin.H{
		"userId":   utils.CurrentUserID(c),
		"username": utils.CurrentUsername(c),
		"role":     utils.CurrentRole(c),
	})
}

// GET /auth/me
func (a *AuthController) Me(c *gin.Context) {
	user, err := a.Svc.GetProfile(utils.CurrentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, userView(user))
}

// PATCH /auth/me
func (a *AuthController) UpdateMe(c *gin.Context) {
	var in services.ProfileIn
	if !bindJSON(c, &in) {
		return
	}
	user, err := a.Svc.UpdateProfile(utils.CurrentUserID(c), &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, userView(user))
}
