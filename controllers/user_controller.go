package controllers

import (
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"

	"github.com/gin-gonic/gin"
)

// UserController is the admin view over accounts.
type UserController struct{ Svc *services.AuthService }

func NewUserController(s *services.AuthService) *UserController { return &UserController{Svc: s} }

// GET /admin/users
func (h *UserController) List(c *gin.Context) {
	users, err := h.Svc.ListUsers()
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]any, 0, len(users))
	for i := range users {
		out = append(out, userView(&users[i]))
	}
	resp.OK(c, out)
}

// PATCH /admin/users/:id
func (h *UserController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.AdminUserIn
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.Svc.AdminUpdateUser(id, &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, userView(u))
}

// DELETE /admin/users/:id
func (h *UserController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteUser(actorOf(c), id); err != nil {
		fail(c, err)
		return
	}
	resp.NoContent(c)
}
