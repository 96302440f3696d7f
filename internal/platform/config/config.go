package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	AdminToken  string
	LogLevel    string
}

// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
var ShutdownTimeout = 10 * time.Second

// FromEnv builds a Server config from environment variables so main stays
// lean. An empty DatabaseURL selects the in-memory stores (development mode).
func FromEnv() Server {
	addr := os.Getenv("ROLLCALL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	adminToken := os.Getenv("ROLLCALL_ADMIN_TOKEN")
	if adminToken == "" {
		// Development default; override in production.
		adminToken = "dev-admin-token-change-in-production"
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AdminToken:  adminToken,
		LogLevel:    os.Getenv("ROLLCALL_LOG_LEVEL"),
	}
}
