package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-fixture-users/config"
	"github.com/oksasatya/go-ddd-fixture-users/internal/application"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	pginfra "github.com/oksasatya/go-ddd-fixture-users/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/validation"
)

type seedUser struct {
	email    string
	first    string
	last     string
	roles    entity.Roles
	birthday string
	active   bool
	password string
}

var fixtures = []seedUser{
	{email: "avo@avohq.io", first: "Adrian", last: "Marin", roles: entity.Roles{"admin": true, "manager": false, "writer": false}, birthday: "1988-04-12", active: true, password: "secret"},
	{email: "manager@example.com", first: "Jane", last: "Doe", roles: entity.Roles{"admin": false, "manager": true}, birthday: "1992-09-03", active: true, password: "secret"},
	{email: "writer@example.com", first: "John", last: "Smith", roles: entity.Roles{"writer": true}, active: true, password: "secret"},
	{email: "inactive@example.com", first: "Ina", last: "Active", active: false, password: "secret"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	validation.Init()

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:      cfg.PostgresDSN(),
		AppName:  cfg.AppName + "-seed",
		MaxConns: 2,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	svc := application.NewService(application.Options{
		Users:        pginfra.NewUserRepository(pool),
		Associations: pginfra.NewAssociationRepository(pool),
		Attachments:  pginfra.NewAttachmentRepository(pool),
		Auth:         application.NewBcryptAuthPolicy(cfg.ResetTokenSecret, cfg.ResetPasswordWithin),
		Slugs:        application.FriendlySlugPolicy{},
		Logger:       logger,
	})

	for _, f := range fixtures {
		active := f.active
		in := application.CreateUserInput{
			Email:                f.email,
			Password:             f.password,
			PasswordConfirmation: f.password,
			FirstName:            f.first,
			LastName:             f.last,
			Roles:                f.roles,
			Active:               &active,
		}
		if f.birthday != "" {
			b, err := time.Parse("2006-01-02", f.birthday)
			if err != nil {
				logger.Fatalf("bad fixture birthday %q: %v", f.birthday, err)
			}
			in.Birthday = &b
		}

		u, err := svc.Create(ctx, in)
		var ve *validation.Error
		switch {
		case errors.As(err, &ve) && ve.Has("email"):
			logger.WithField("email", f.email).Info("already seeded")
		case err != nil:
			logger.WithError(err).WithField("email", f.email).Fatal("seed failed")
		default:
			logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email, "slug": u.Slug, "admin": u.IsAdmin()}).Info("seeded user")
		}
	}
}
