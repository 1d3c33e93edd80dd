package router

import (
	"github.com/oksasatya/go-ddd-fixture-users/internal/application"
	"github.com/oksasatya/go-ddd-fixture-users/internal/container"
	gcsinfra "github.com/oksasatya/go-ddd-fixture-users/internal/infrastructure/gcs"
	"github.com/oksasatya/go-ddd-fixture-users/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-fixture-users/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-fixture-users/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-ddd-fixture-users/internal/interface/http"
	"github.com/oksasatya/go-ddd-fixture-users/internal/router/modules"
)

type UserModuleDeps struct {
	Service *application.Service
	Users   *handlers.UserHandler
	Auth    *handlers.AuthHandler
	Admin   *handlers.AdminHandler
}

// buildService wires the user service from whatever the container holds.
func buildService() *application.Service {
	cfg := container.GetConfig()

	opts := application.Options{
		Auth:             application.NewBcryptAuthPolicy(cfg.ResetTokenSecret, cfg.ResetPasswordWithin),
		Slugs:            application.FriendlySlugPolicy{},
		JWT:              container.GetJWT(),
		Redis:            container.GetRedis(),
		Logger:           container.GetLogger(),
		ResetPasswordURL: cfg.ResetPasswordURL,
		RememberFor:      cfg.RememberFor,
		SessionTTL:       cfg.RefreshTTL,
	}

	if r := container.GetRepositories(); r != nil {
		opts.Users, opts.Associations, opts.Attachments = r.Users, r.Associations, r.Attachments
	} else {
		pool := container.GetPGPool()
		opts.Users = pginfra.NewUserRepository(pool)
		opts.Associations = pginfra.NewAssociationRepository(pool)
		opts.Attachments = pginfra.NewAttachmentRepository(pool)
	}

	switch {
	case container.GetGCS() != nil && cfg.GCSBucket != "":
		opts.Blobs = gcsinfra.NewBlobStore(container.GetGCS(), cfg.GCSBucket)
	case cfg.MemoryStore():
		opts.Blobs = memory.NewBlobStore()
	}
	if es := container.GetES(); es != nil {
		opts.Index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		opts.Mail = pub
	}

	return application.NewService(opts)
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	svc := buildService()
	return UserModuleDeps{
		Service: svc,
		Users:   handlers.NewUserHandler(svc, container.GetLogger()),
		Auth:    handlers.NewAuthHandler(svc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure),
		Admin:   handlers.NewAdminHandler(svc, container.GetLogger()),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildUserDeps()
	jwt := container.GetJWT()
	rdb := container.GetRedis()

	r.Add(modules.NewAuthModule(deps.Auth, jwt, rdb))
	r.Add(modules.NewUserModule(deps.Users, jwt, rdb))
	r.Add(modules.NewAdminModule(deps.Admin, jwt, rdb))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
