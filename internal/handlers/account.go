package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/middleware"
	"github.com/Farkhat1984/Trai-on/internal/models"
)

// TransactionsHandler lists the authenticated user's transaction history,
// newest first.
func (a *API) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var txns []models.Transaction
	if err := a.DB.Where("user_id = ?", userID).
		Order("created_at desc").Limit(limit).Find(&txns).Error; err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txns)
}

type RefundRequestBody struct {
	TransactionID uint   `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// RequestRefundHandler opens a refund for one of the user's completed
// transactions.
func (a *API) RequestRefundHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RefundRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	refund, err := a.Refunds.Request(r.Context(), userID, req.TransactionID, req.Reason)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, refund)
}
