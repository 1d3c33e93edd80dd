package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-fixture-users/internal/interface/http"
	"github.com/oksasatya/go-ddd-fixture-users/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
)

// UserModule wires user HTTP handlers into routes.
// Public: POST /users (registration)
// Protected: everything else under /users, /me
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	RDB     *redis.Client
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, RDB: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	rg.POST("/users", registerLimiter, m.Handler.Create)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.RDB, m.JWT))
	auth.Use(
		middleware.RateLimit(m.RDB, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/me", m.Handler.Me)
		auth.GET("/users", m.Handler.List)
		auth.GET("/users/search", m.Handler.Search)
		auth.GET("/users/:id", m.Handler.Show)
		auth.PATCH("/users/:id", m.Handler.Update)
		auth.DELETE("/users/:id", m.Handler.Delete)
		auth.POST("/users/:id/notify", m.Handler.Notify)

		auth.GET("/users/:id/associations/:name", m.Handler.Association)
		auth.PUT("/users/:id/projects/:project_id", m.Handler.AddProject)
		auth.DELETE("/users/:id/projects/:project_id", m.Handler.RemoveProject)
		auth.PUT("/users/:id/teams/:team_id", m.Handler.JoinTeam)
		auth.DELETE("/users/:id/teams/:team_id", m.Handler.LeaveTeam)

		auth.PUT("/users/:id/cv", m.Handler.AttachCV)
		auth.GET("/users/:id/cv", m.Handler.CV)
		auth.DELETE("/users/:id/cv", m.Handler.DetachCV)
	}
}
