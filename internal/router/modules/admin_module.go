package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-fixture-users/internal/interface/http"
	"github.com/oksasatya/go-ddd-fixture-users/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
)

type AdminModule struct {
	Handler *handlers.AdminHandler
	JWT     *helpers.JWTManager
	RDB     *redis.Client
}

func NewAdminModule(h *handlers.AdminHandler, jwt *helpers.JWTManager, rdb *redis.Client) *AdminModule {
	return &AdminModule{Handler: h, JWT: jwt, RDB: rdb}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(m.RDB, m.JWT), middleware.RequireAdmin(m.Handler.Svc.IsAdmin))
	{
		admin.GET("/users", m.Handler.Users)
		admin.GET("/users/ransackable_attributes", m.Handler.RansackableAttributes)
	}
}
