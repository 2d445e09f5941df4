package handlers

import (
	"net/http"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/storage"
	"github.com/username/tradefolio/backend/src/utils"
)

type TradeHandler struct {
	trades   storage.TradeRepository
	accounts storage.AccountRepository
}

func NewTradeHandler(trades storage.TradeRepository, accounts storage.AccountRepository) *TradeHandler {
	return &TradeHandler{trades: trades, accounts: accounts}
}

// resolveAccount checks the accountId query parameter and its ownership;
// a missing parameter or a foreign account both end the request.
func (h *TradeHandler) resolveAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return "", false
	}

	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		utils.SendJSONError(w, "accountId query parameter is required", http.StatusUnprocessableEntity)
		return "", false
	}

	owned, err := h.accounts.BelongsToUser(r.Context(), accountID, userID)
	if err != nil {
		logger.L.Error("Error checking account ownership", "userID", userID, "accountID", accountID, "error", err)
		utils.SendJSONError(w, "An internal error occurred.", http.StatusInternalServerError)
		return "", false
	}
	if !owned {
		utils.SendJSONError(w, "Account not found", http.StatusNotFound)
		return "", false
	}
	return accountID, true
}

func (h *TradeHandler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}

	trades, err := h.trades.ListTrades(r.Context(), accountID)
	if err != nil {
		logger.L.Error("Error listing trades", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while listing trades.", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	utils.SendJSON(w, map[string]any{"data": trades}, http.StatusOK)
}

func (h *TradeHandler) HandleDeleteTrades(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}

	if err := h.trades.DeleteTrades(r.Context(), accountID); err != nil {
		logger.L.Error("Error deleting trades", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while deleting trades.", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}
