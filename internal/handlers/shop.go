package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/middleware"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/moderation"
)

type SubmitProductRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Characteristics json.RawMessage `json:"characteristics"`
	Price           decimal.Decimal `json:"price"`
	Images          json.RawMessage `json:"images"`
}

// SubmitProductHandler puts a new product into the moderation queue.
func (a *API) SubmitProductHandler(w http.ResponseWriter, r *http.Request) {
	shopID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := a.Moderation.Submit(r.Context(), shopID, moderation.SubmitInput{
		Name:            req.Name,
		Description:     req.Description,
		Characteristics: datatypes.JSON(req.Characteristics),
		Price:           req.Price,
		Images:          datatypes.JSON(req.Images),
	})
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, product)
}

// ShopProductsHandler lists the authenticated shop's own products in every
// moderation and rental state.
func (a *API) ShopProductsHandler(w http.ResponseWriter, r *http.Request) {
	shopID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var products []models.Product
	if err := a.DB.Where("shop_id = ?", shopID).Order("created_at desc").Find(&products).Error; err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch products")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, products)
}

// ShopBalanceHandler reports the shop's accumulated proceeds.
func (a *API) ShopBalanceHandler(w http.ResponseWriter, r *http.Request) {
	shopID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var shop models.Shop
	if err := a.DB.First(&shop, shopID).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "shop not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"shop_id": shop.ID,
		"balance": shop.Balance,
	})
}
