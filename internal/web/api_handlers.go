package web

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.monitor.ListAccounts(r.Context(), r.URL.Query().Get("exchange"))
	if err != nil {
		s.logger.Error("list accounts failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(accounts),
		"accounts": accounts,
	})
}

// handleSnapshots serves both /api/positions and /api/orders. The
// response shape depends on the parameters: all-accounts latest,
// single-account latest, or single-account history.
func (s *Server) handleSnapshots(kind domain.SnapshotKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		accountID := q.Get("accountId")
		exchange := q.Get("exchange")

		startMs, hasStart, err := parseMillis(q.Get("startTime"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "startTime must be epoch milliseconds")
			return
		}
		endMs, hasEnd, err := parseMillis(q.Get("endTime"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "endTime must be epoch milliseconds")
			return
		}

		if accountID == "" {
			if hasStart || hasEnd {
				s.writeError(w, http.StatusBadRequest, "time range queries require accountId")
				return
			}
			latest, err := s.monitor.LatestAll(r.Context(), kind, exchange)
			if err != nil {
				s.logger.Error("latest fan-out failed", zap.Error(err))
				s.writeError(w, http.StatusInternalServerError, "failed to read snapshots")
				return
			}
			s.writeJSON(w, http.StatusOK, map[string]any{
				"count":    len(latest),
				"accounts": latest,
			})
			return
		}

		if hasStart || hasEnd {
			if !hasEnd {
				endMs = int64(1<<62 - 1)
			}
			history, err := s.monitor.History(r.Context(), kind, accountID, startMs, endMs)
			if err != nil {
				s.logger.Error("history read failed", zap.String("account", accountID), zap.Error(err))
				s.writeError(w, http.StatusInternalServerError, "failed to read history")
				return
			}
			s.writeJSON(w, http.StatusOK, map[string]any{
				"accountId": accountID,
				"count":     len(history),
				"snapshots": history,
			})
			return
		}

		snap, err := s.monitor.Latest(r.Context(), kind, accountID)
		if err != nil {
			s.logger.Error("latest read failed", zap.String("account", accountID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to read snapshot")
			return
		}
		// snapshot stays null when nothing has been collected, so
		// clients can tell "no data yet" from a bad request.
		s.writeJSON(w, http.StatusOK, map[string]any{
			"accountId": accountID,
			"snapshot":  snap,
		})
	}
}

func parseMillis(raw string) (int64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return ms, true, nil
}
