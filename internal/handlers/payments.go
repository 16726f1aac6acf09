package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/logger"
	"github.com/Farkhat1984/Trai-on/internal/middleware"
)

type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type RentRequest struct {
	ProductID uint `json:"product_id"`
	Months    int  `json:"months"`
}

type PurchaseRequest struct {
	ProductID uint `json:"product_id"`
}

type CaptureResponse struct {
	TransactionID uint   `json:"transaction_id"`
	Status        string `json:"status"`
	Replayed      bool   `json:"replayed"`
}

func (a *API) TopUpHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := a.Payments.InitiateTopUp(r.Context(), userID, req.Amount)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, order)
}

func (a *API) RentHandler(w http.ResponseWriter, r *http.Request) {
	shopID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := a.Payments.InitiateRent(r.Context(), shopID, req.ProductID, req.Months)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, order)
}

func (a *API) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := a.Payments.InitiatePurchase(r.Context(), userID, req.ProductID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, order)
}

// CaptureHandler is the synchronous return trip after provider approval.
// Safe to call any number of times for the same order.
func (a *API) CaptureHandler(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "orderID")
	if ref == "" {
		httputil.WriteError(w, http.StatusBadRequest, "order id is required")
		return
	}

	f, err := a.Payments.Capture(r.Context(), ref)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CaptureResponse{
		TransactionID: f.Transaction.ID,
		Status:        string(f.Transaction.Status),
		Replayed:      f.Replayed,
	})
}

type webhookEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// WebhookHandler is the asynchronous delivery path for the same capture.
// The provider retries until it sees 200, so the handler acknowledges even
// events it does not act on.
func (a *API) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if event.EventType == "PAYMENT.CAPTURE.COMPLETED" {
		ref := event.Resource.SupplementaryData.RelatedIDs.OrderID
		if ref != "" {
			if _, err := a.Payments.Capture(r.Context(), ref); err != nil {
				logger.Log.Error("webhook capture failed", zap.String("ref", ref), zap.Error(err))
			}
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
