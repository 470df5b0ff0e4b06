package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/types"
)

// HoldingsResponse is the body of the holdings endpoint
type HoldingsResponse struct {
	Wallet   string               `json:"wallet"`
	Holdings []types.TokenHolding `json:"holdings"`
}

// handleGetPerformance handles GET /api/wallets/{address}/performance.
// The optional days query parameter overrides the default lookback.
func (s *Server) handleGetPerformance(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["address"]

	window, err := s.windowFromRequest(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	result, err := s.performanceService.ComputePerformance(r.Context(), wallet, window)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGetHoldings handles GET /api/wallets/{address}/holdings.
func (s *Server) handleGetHoldings(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["address"]

	holdings, err := s.holdingsService.FetchHoldings(r.Context(), wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, HoldingsResponse{Wallet: wallet, Holdings: holdings})
}

func (s *Server) windowFromRequest(r *http.Request) (types.Window, error) {
	window := s.performanceService.RecentWindow()

	daysStr := r.URL.Query().Get("days")
	if daysStr == "" {
		return window, nil
	}

	days, err := strconv.Atoi(daysStr)
	if err != nil {
		return types.Window{}, apperrors.NewInvalidParameterError("days", "must be an integer")
	}
	if days < 1 || days > s.config.MaxWindowDays {
		return types.Window{}, apperrors.NewInvalidParameterError("days", "must be between 1 and "+strconv.Itoa(s.config.MaxWindowDays))
	}

	window.Start = window.End.Add(-time.Duration(days) * 24 * time.Hour)
	return window, nil
}
