package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fitpay-billing/internal/config"
	"fitpay-billing/internal/usecase"
)

const maxBodyBytes = 256 * 1024

// Server is the public webhook receiver. It exposes exactly one mutating
// route; everything else is liveness and metrics.
type Server struct {
	cfg       *config.Config
	webhookUC usecase.WebhookUseCase
	log       *zerolog.Logger
	server    *http.Server
}

func NewServer(cfg *config.Config, webhookUC usecase.WebhookUseCase, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebhookServer").Logger()
	return &Server{cfg: cfg, webhookUC: webhookUC, log: &l}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TraceID())
	r.Use(RequestLog(s.log))

	r.Post("/webhook/tap", s.handleWebhook)
	// The gateway is a server-to-server caller; a permissive preflight answer
	// costs nothing and avoids surprises behind proxies.
	r.Options("/webhook/tap", func(w http.ResponseWriter, _ *http.Request) {
		writeCORS(w)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("webhook server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		// Not a business rejection; the delivery never arrived intact.
		s.log.Warn().Err(err).Msg("failed to read webhook body")
		writeJSON(w, &usecase.WebhookResponse{Received: true, Ignored: true, Reason: "unreadable_body"})
		return
	}

	resp := s.webhookUC.Process(ctx, &usecase.WebhookRequest{
		Body:      body,
		Signature: r.Header.Get("hashstring"),
		SourceIP:  clientIP(r),
	})
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, resp *usecase.WebhookResponse) {
	writeCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, hashstring")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
