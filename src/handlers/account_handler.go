package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/storage"
	"github.com/username/tradefolio/backend/src/utils"
)

type AccountHandler struct {
	accounts storage.AccountRepository
}

func NewAccountHandler(accounts storage.AccountRepository) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Broker   string `json:"broker,omitempty"`
	Currency string `json:"currency,omitempty"`
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		utils.SendJSONError(w, "name is required", http.StatusUnprocessableEntity)
		return
	}

	account := &models.TradingAccount{
		ID:       uuid.NewString(),
		UserID:   userID,
		Name:     req.Name,
		Broker:   req.Broker,
		Currency: req.Currency,
	}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		logger.L.Error("Error creating trading account", "userID", userID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while creating the account.", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]any{"data": account}, http.StatusCreated)
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	accounts, err := h.accounts.ListByUser(r.Context(), userID)
	if err != nil {
		logger.L.Error("Error listing trading accounts", "userID", userID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while listing accounts.", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []models.TradingAccount{}
	}
	utils.SendJSON(w, map[string]any{"data": accounts}, http.StatusOK)
}
