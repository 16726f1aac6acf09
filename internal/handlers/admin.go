package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/middleware"
	"github.com/Farkhat1984/Trai-on/internal/models"
)

type ModerationAction struct {
	Notes string `json:"notes"`
}

type RefundAction struct {
	Action     string `json:"action"` // approve | reject
	AdminNotes string `json:"admin_notes"`
}

type SettingUpdate struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

type Dashboard struct {
	TotalUsers        int64  `json:"total_users"`
	TotalShops        int64  `json:"total_shops"`
	TotalProducts     int64  `json:"total_products"`
	ActiveProducts    int64  `json:"active_products"`
	TotalGenerations  int64  `json:"total_generations"`
	TotalRevenue      string `json:"total_revenue"`
	PendingModeration int64  `json:"pending_moderation"`
	PendingRefunds    int64  `json:"pending_refunds"`
}

func (a *API) ModerationQueueHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.Moderation.Queue(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, products)
}

func (a *API) ApproveProductHandler(w http.ResponseWriter, r *http.Request) {
	a.reviewProduct(w, r, true)
}

func (a *API) RejectProductHandler(w http.ResponseWriter, r *http.Request) {
	a.reviewProduct(w, r, false)
}

func (a *API) reviewProduct(w http.ResponseWriter, r *http.Request, approve bool) {
	adminID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var action ModerationAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var product *models.Product
	if approve {
		product, err = a.Moderation.Approve(r.Context(), uint(productID), adminID, action.Notes)
	} else {
		product, err = a.Moderation.Reject(r.Context(), uint(productID), adminID, action.Notes)
	}
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, product)
}

func (a *API) RefundsListHandler(w http.ResponseWriter, r *http.Request) {
	status := models.RefundStatus(r.URL.Query().Get("status"))
	list, err := a.Refunds.List(r.Context(), status)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (a *API) DecideRefundHandler(w http.ResponseWriter, r *http.Request) {
	refundID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid refund id")
		return
	}

	var action RefundAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if action.Action != "approve" && action.Action != "reject" {
		httputil.WriteError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}

	refund, err := a.Refunds.Decide(r.Context(), uint(refundID), action.Action == "approve", action.AdminNotes)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, refund)
}

func (a *API) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := a.Settings.All(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (a *API) UpdateSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Value == "" {
		httputil.WriteError(w, http.StatusBadRequest, "value is required")
		return
	}

	if err := a.Settings.Set(r.Context(), key, req.Value, req.Description); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "setting updated"})
}

func (a *API) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	var d Dashboard
	a.DB.Model(&models.User{}).Count(&d.TotalUsers)
	a.DB.Model(&models.Shop{}).Count(&d.TotalShops)
	a.DB.Model(&models.Product{}).Count(&d.TotalProducts)
	a.DB.Model(&models.Product{}).Where("is_active = ?", true).Count(&d.ActiveProducts)
	a.DB.Model(&models.Generation{}).Count(&d.TotalGenerations)
	a.DB.Model(&models.ModerationEntry{}).Where("reviewed_at IS NULL").Count(&d.PendingModeration)
	a.DB.Model(&models.Refund{}).Where("status = ?", models.RefundRequested).Count(&d.PendingRefunds)

	var revenue decimal.Decimal
	a.DB.Model(&models.Transaction{}).
		Where("status = ?", models.TxCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&revenue)
	d.TotalRevenue = revenue.StringFixed(2)

	httputil.WriteJSON(w, http.StatusOK, d)
}
