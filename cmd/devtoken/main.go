// Command devtoken mints HS256 bearer tokens for local development against
// a server running without OIDC_ISSUER.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ms-booking/internal/auth"
	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	email := pflag.String("email", "", "user email (required)")
	name := pflag.String("name", "", "display name")
	admin := pflag.Bool("admin", false, "grant the configured admin role")
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	pflag.Parse()

	_ = godotenv.Load(*envFile)
	cfg := config.Load()

	if *email == "" || cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "devtoken needs --email and JWT_SECRET")
		os.Exit(2)
	}

	claims := models.Claims{Subject: *email, Email: *email, Name: *name}
	if *admin {
		claims.Roles = []string{cfg.Auth.AdminRole}
	}

	tok, err := auth.NewHMACVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).Issue(claims, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
