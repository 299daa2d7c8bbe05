package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"earn_webapp/internal/config"
	"earn_webapp/internal/db"
	"earn_webapp/internal/logger"
	"earn_webapp/internal/repository"
	"earn_webapp/internal/service"
)

// creates (or finds) a user and prints a session token for it
func main() {
	email := flag.String("email", "", "account email, must be listed in ADMIN_EMAILS to get admin rights")
	password := flag.String("password", "", "password for a new account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "error", err)
	}
	if cfg.Storage != config.StoragePostgres {
		logger.Fatal("create_admin needs STORAGE=postgres")
	}
	if *email == "" {
		logger.Fatal("-email is required")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", "error", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	auth := service.NewAuthService(store, cfg.IsAdminEmail)

	u, err := store.GetUserByEmail(ctx, *email)
	switch {
	case err == nil:
		logger.Info("user already exists", "user_id", u.ID, "admin", u.IsAdmin)
	case errors.Is(err, repository.ErrNotFound):
		u, err = auth.Register(ctx, service.RegisterInput{Email: *email, Password: *password})
		if err != nil {
			logger.Fatal("create user failed", "error", err)
		}
		logger.Info("user created", "user_id", u.ID, "admin", u.IsAdmin)
	default:
		logger.Fatal("lookup user", "error", err)
	}

	// operator-only path: users created before their email joined ADMIN_EMAILS
	// never pass through registration again, so they are promoted here
	if !u.IsAdmin {
		if !cfg.IsAdminEmail(u.Email) {
			logger.Fatal("email is not listed in ADMIN_EMAILS", "email", u.Email)
		}
		if err := store.SetUserAdmin(ctx, u.ID, true); err != nil {
			logger.Fatal("promote user", "error", err)
		}
		logger.Info("user promoted to admin", "user_id", u.ID)
	}

	token, err := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL).Generate(u.ID)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
