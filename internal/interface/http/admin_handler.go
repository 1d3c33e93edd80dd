package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-fixture-users/internal/application"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
	"github.com/oksasatya/go-ddd-fixture-users/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/response"
)

// AdminHandler backs the admin panel's user listing and filters.
type AdminHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAdminHandler(svc *application.Service, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger}
}

// Users filters with q[<attr>_<pred>]=value and sorts with s=<attr> [asc|desc].
func (h *AdminHandler) Users(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	q := repo.ParseQuery(c.QueryMap("q"), c.Query("s"), limit, offset)

	users, err := h.Svc.AdminSearch(c.Request.Context(), q)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, newUserViews(users), "users", map[string]any{
		"count":      len(users),
		"limit":      q.Limit,
		"offset":     q.Offset,
		"conditions": q.Conditions,
		"sorts":      q.Sorts,
	})
}

// RansackableAttributes lists the attributes usable in q[...] and s.
func (h *AdminHandler) RansackableAttributes(c *gin.Context) {
	attrs := entity.RansackableAttributes(middleware.CurrentUserID(c))
	response.Success(c, http.StatusOK, attrs, "ransackable attributes", nil)
}
