// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/audit"
	auditmemory "rollcall/internal/audit/store/memory"
	auditpostgres "rollcall/internal/audit/store/postgres"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/logger"
	platformpg "rollcall/internal/platform/postgres"
	"rollcall/internal/workflow"
	workflowmetrics "rollcall/internal/workflow/metrics"
	"rollcall/internal/workflow/service"
	accountstore "rollcall/internal/workflow/store/account"
	assignmentstore "rollcall/internal/workflow/store/assignment"
	personstore "rollcall/internal/workflow/store/person"
	adminmw "rollcall/pkg/platform/middleware/admin"
	"rollcall/pkg/platform/middleware/identity"
	"rollcall/pkg/platform/middleware/requestid"
	"rollcall/pkg/platform/middleware/requesttime"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	h := workflow.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(identity.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	h.Register(r)
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
		h.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting rollcall", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildService selects the storage backend. DATABASE_URL set means Postgres
// with the SQL transaction boundary; unset means in-memory everything, which
// is how local development and the test suites run.
func buildService(ctx context.Context, cfg config.Server, log *slog.Logger) (*workflow.Service, error) {
	m := workflowmetrics.New()

	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		publisher := audit.NewStorePublisher(auditmemory.NewInMemoryStore())
		return workflow.NewService(
			assignmentstore.NewInMemory(),
			accountstore.NewInMemory(),
			personstore.NewInMemory(),
			service.WithLogger(log),
			service.WithAuditPublisher(publisher),
			service.WithMetrics(m),
		), nil
	}

	db, err := platformpg.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := platformpg.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}

	publisher := audit.NewStorePublisher(auditpostgres.New(db))
	return workflow.NewService(
		assignmentstore.NewPostgres(db),
		accountstore.NewPostgres(db),
		personstore.NewPostgres(db),
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(m),
		service.WithTx(platformpg.NewStoreTx(db)),
	), nil
}
