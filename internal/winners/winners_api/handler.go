package winners_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-raffle/internal/logger"
	"ms-raffle/internal/winners"
)

type Handler struct {
	Generator *winners.Generator
	Logger    *logger.Logger
}

type generateResponse struct {
	Success        bool               `json:"success"`
	CompetitionID  string             `json:"competition_id"`
	WinningNumbers map[string][]int64 `json:"winning_numbers,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// Generate runs the one-time winning-ticket draw for a competition.
// POST /api/admin/competitions/{competitionId}/winning-tickets?override=true
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionId")
	override := r.URL.Query().Get("override") == "true"
	h.Logger.Info("API", fmt.Sprintf("Generate: competitionId=%s override=%v", competitionID, override))

	numbers, err := h.Generator.Generate(r.Context(), competitionID, override)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Generate: failed for competition %s: %v", competitionID, err))
		writeJSON(w, generateStatus(err), generateResponse{
			Success:       false,
			CompetitionID: competitionID,
			Error:         err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, generateResponse{
		Success:        true,
		CompetitionID:  competitionID,
		WinningNumbers: numbers,
	})
	h.Logger.LogCompetition("GENERATE", competitionID, fmt.Sprintf("winning tickets generated for %d prizes", len(numbers)))
}

func generateStatus(err error) int {
	switch {
	case errors.Is(err, winners.ErrAlreadyLocked), errors.Is(err, winners.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.Is(err, winners.ErrPhaseCapacityExceeded),
		errors.Is(err, winners.ErrNoPrizes),
		errors.Is(err, winners.ErrRafflePrizeCount):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
