package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/usecase"
)

type Server struct {
	router       *http.ServeMux
	server       *http.Server
	monitor      *usecase.MonitorService
	actions      *usecase.ActionService
	collector    *usecase.Collector
	apiKeys      map[string]struct{}
	sessionToken string
	logger       *zap.Logger
}

func NewServer(
	port int,
	monitor *usecase.MonitorService,
	actions *usecase.ActionService,
	collector *usecase.Collector,
	apiKeys []string,
	sessionToken string,
	logger *zap.Logger,
) *Server {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		keys[k] = struct{}{}
	}

	s := &Server{
		router:       http.NewServeMux(),
		monitor:      monitor,
		actions:      actions,
		collector:    collector,
		apiKeys:      keys,
		sessionToken: sessionToken,
		logger:       logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// External read API (static key auth)
	s.router.HandleFunc("GET /api/accounts", s.apiAuth(s.handleAccounts))
	s.router.HandleFunc("GET /api/positions", s.apiAuth(s.handleSnapshots("positions")))
	s.router.HandleFunc("GET /api/orders", s.apiAuth(s.handleSnapshots("orders")))

	// Dashboard (session auth)
	s.router.HandleFunc("GET /dashboard/summary", s.sessionAuth(s.handleSummary))
	s.router.HandleFunc("GET /dashboard/grid", s.sessionAuth(s.handleGrid))

	// Operator actions
	s.router.HandleFunc("POST /actions/close-position", s.sessionAuth(s.handleClosePosition))
	s.router.HandleFunc("POST /actions/cancel-order", s.sessionAuth(s.handleCancelOrder))
	s.router.HandleFunc("POST /actions/cancel-all-orders", s.sessionAuth(s.handleCancelAllOrders))
	s.router.HandleFunc("POST /actions/grid-level/delete", s.sessionAuth(s.handleDeleteGridLevel))
	s.router.HandleFunc("POST /actions/grid-level/clear", s.sessionAuth(s.handleClearGridLevels))

	// Collection trigger for the external scheduler
	s.router.HandleFunc("POST /internal/collect", s.sessionAuth(s.handleCollect))

	// Health
	s.router.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encode failed", zap.Error(err))
	}
}

// errorBody is the uniform error envelope; clients always get both
// keys.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Error: http.StatusText(status), Message: message})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
