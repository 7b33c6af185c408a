package checkout_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-raffle/internal/allocation"
	"ms-raffle/internal/auth"
	"ms-raffle/internal/checkout"
	"ms-raffle/internal/checkout/receipt"
	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
)

type Handler struct {
	CheckoutService *checkout.Service
	Receipts        *receipt.Generator
	Logger          *logger.Logger
}

// Purchase handles a single-competition purchase.
// POST /api/competitions/{competitionId}/purchase
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionId")
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("Purchase: competitionId=%s user=%s", competitionID, userID))

	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Purchase: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.CheckoutService.PurchaseItem(r.Context(), userID, competitionID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Purchase: failed for competition %s: %v", competitionID, err))
		writeJSON(w, purchaseStatus(err), models.PurchaseResult{
			Success:       false,
			Message:       err.Error(),
			CompetitionID: competitionID,
		})
		return
	}

	writeJSON(w, http.StatusCreated, result)
	h.Logger.Info("API", fmt.Sprintf("Purchase: entry %s created with %d tickets", result.EntryID, len(result.TicketNumbers)))
}

// Checkout handles a multi-item cart. Items are independent transactions and
// the response reports per-item success.
// POST /api/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("Checkout: user=%s", userID))

	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		http.Error(w, "Checkout requires at least one item", http.StatusBadRequest)
		return
	}

	response := h.CheckoutService.Checkout(r.Context(), userID, req)

	status := http.StatusCreated
	failures := 0
	for _, result := range response.Results {
		if !result.Success {
			failures++
		}
	}
	if failures == len(response.Results) {
		status = http.StatusConflict
	} else if failures > 0 {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, response)
	h.Logger.Info("API", fmt.Sprintf("Checkout: %d/%d items succeeded", len(response.Results)-failures, len(response.Results)))
}

// MyEntries returns the caller's entries with any claimed winning tickets.
// GET /api/my/entries
func (h *Handler) MyEntries(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.CheckoutService.GetMyEntries(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyEntries: failed for user %s: %v", userID, err))
		http.Error(w, "Failed to retrieve entries: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// GetCompetition is the public competition read.
// GET /api/competitions/{competitionId}
func (h *Handler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionId")

	competition, err := h.CheckoutService.GetCompetition(r.Context(), competitionID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetCompetition: %s not found: %v", competitionID, err))
		http.Error(w, "Competition not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, competition)
}

// EntryReceipt renders an entry's QR receipt. Only the owning user may fetch
// it.
// GET /api/entries/{entryId}/receipt
func (h *Handler) EntryReceipt(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")
	userID := auth.UserID(r.Context())

	entry, err := h.CheckoutService.GetEntry(r.Context(), entryID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("EntryReceipt: entry %s not found: %v", entryID, err))
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}
	if entry.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	png, err := h.Receipts.GenerateEntryReceipt(*entry)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("EntryReceipt: failed to generate QR for entry %s: %v", entryID, err))
		http.Error(w, "Failed to generate receipt", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("EntryReceipt: failed to write response: %v", err))
	}
}

// Activate flips a draft competition live.
// POST /api/admin/competitions/{competitionId}/activate
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionId")
	h.Logger.Info("API", fmt.Sprintf("Activate: competitionId=%s", competitionID))

	if err := h.CheckoutService.ActivateCompetition(r.Context(), competitionID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Activate: failed for competition %s: %v", competitionID, err))
		status := http.StatusInternalServerError
		if errors.Is(err, checkout.ErrGenerationNotRun) || errors.Is(err, checkout.ErrCompetitionNotDraft) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	h.Logger.LogCompetition("ACTIVATE", competitionID, "competition activated")
}

func purchaseStatus(err error) int {
	switch {
	case errors.Is(err, allocation.ErrInsufficientTickets):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, checkout.ErrCaptureConsumed):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrCompetitionNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
