package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/observability/tracing"
	"github.com/fundlock-io/settlement-ledger/internal/services"
)

// CallerHeader carries the authenticated caller identity. Authentication
// itself is terminated upstream; this service only consumes the result.
const CallerHeader = "X-Caller-Id"

type Server struct {
	cfg *config.ServerConfig
	svc *services.Service
}

func New(cfg *config.ServerConfig, svc *services.Service) *Server {
	return &Server{cfg: cfg, svc: svc}
}

func (s *Server) Start(ctx context.Context) error {
	router := chi.NewRouter()
	router.Use(traceMiddleware)

	router.Route("/v1", func(r chi.Router) {
		r.Post("/contracts", s.handleOpenContract)
		r.Get("/contracts/{contractID}", s.handleGetContract)
		r.Get("/contracts/{contractID}/available", s.handleAvailableBalance)
		r.Post("/contracts/{contractID}/settle", s.handleSettle)

		r.Post("/effort", s.handleRecordEffort)
		r.Get("/effort/{contractID}", s.handleContractEffort)
		r.Get("/managers/{manager}/stats", s.handleManagerStats)

		r.Get("/fees/preview", s.handlePreviewFee)
		r.Put("/fees/rate", s.handleSetFeeRate)
		r.Post("/fees/release", s.handleReleaseFees)

		r.Post("/escrow/cover-deficit", s.handleCoverDeficit)
		r.Post("/custody/adjust", s.handleAdjustCustody)

		r.Get("/solvency", s.handleSolvency)
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to shut down API server")
		}
	}()

	log.Info().Str("addr", addr).Msg("Starting API server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.InjectTraceID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
