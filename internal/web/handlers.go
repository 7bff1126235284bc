package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/usecase"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.monitor.Summaries(r.Context())
	if err != nil {
		s.logger.Error("summary build failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(summaries),
		"accounts": summaries,
	})
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID := q.Get("accountId")
	if accountID == "" {
		s.writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}
	ladder, err := s.monitor.Grid(r.Context(), accountID)
	if err != nil {
		s.logger.Error("grid read failed", zap.String("account", accountID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to read grid")
		return
	}
	s.writeJSON(w, http.StatusOK, ladder)
}

// actionError maps usecase errors onto the response envelope:
// validation failures are 400s, everything else a 500.
func (s *Server) actionError(w http.ResponseWriter, err error) {
	var vErr *usecase.ValidationError
	if errors.As(err, &vErr) {
		s.writeError(w, http.StatusBadRequest, vErr.Msg)
		return
	}
	s.logger.Error("action failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID  string  `json:"accountId"`
		Symbol     string  `json:"symbol"`
		Percentage float64 `json:"percentage"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.AccountID == "" || req.Symbol == "" {
		s.writeError(w, http.StatusBadRequest, "accountId and symbol are required")
		return
	}

	orderID, err := s.actions.ClosePosition(r.Context(), req.AccountID, req.Symbol, req.Percentage)
	if err != nil {
		s.actionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "orderId": orderID})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID    string `json:"accountId"`
		OrderID      string `json:"orderId"`
		InstrumentID string `json:"instrumentId"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		s.writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	if err := s.actions.CancelOrder(r.Context(), req.AccountID, req.InstrumentID, req.OrderID); err != nil {
		s.actionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCancelAllOrders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		s.writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	if err := s.actions.CancelAllOrders(r.Context(), req.AccountID); err != nil {
		s.actionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteGridLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID  string          `json:"accountId"`
		Symbol     string          `json:"symbol"`
		Side       string          `json:"side"`
		LevelIndex json.RawMessage `json:"levelIndex"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		s.writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}
	// levelIndex arrives as a number or a numeric string depending on
	// the client.
	index, err := strconv.Atoi(strings.Trim(string(req.LevelIndex), `"`))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "levelIndex must be an integer")
		return
	}

	if err := s.actions.DeleteGridLevel(r.Context(), req.AccountID, req.Symbol, req.Side, index); err != nil {
		s.actionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleClearGridLevels(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Symbol    string `json:"symbol"`
		Side      string `json:"side"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		s.writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	if err := s.actions.ClearGridLevels(r.Context(), req.AccountID, req.Symbol, req.Side); err != nil {
		s.actionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	results, err := s.collector.Run(r.Context())
	if err != nil {
		s.logger.Error("collection run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "collection run failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}
