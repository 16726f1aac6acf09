package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/logger"
	"github.com/Farkhat1984/Trai-on/internal/models"
)

type CatalogResponse struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// CatalogHandler lists customer-visible products: approved, active, and
// inside their paid rent window.
func (a *API) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	search := r.URL.Query().Get("q")

	q := a.DB.Model(&models.Product{}).
		Where("moderation_status = ?", models.ModerationApproved).
		Where("is_active = ?", true).
		Where("rent_expires_at IS NULL OR rent_expires_at > ?", time.Now().UTC())
	if search != "" {
		q = q.Where("name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.Log.Error("catalog count failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch products")
		return
	}

	var products []models.Product
	if err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		logger.Log.Error("catalog fetch failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch products")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CatalogResponse{Products: products, Total: total})
}

// ProductHandler returns one visible product and bumps its view counter.
// The counter is display metadata, not a financial fact; a lost increment
// is acceptable.
func (a *API) ProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var product models.Product
	if err := a.DB.First(&product, uint(id)).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "product not found")
		return
	}
	if !product.Visible(time.Now().UTC()) {
		httputil.WriteError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := a.DB.Model(&product).
		Update("views_count", gorm.Expr("views_count + 1")).Error; err != nil {
		logger.Log.Warn("view counter update failed", zap.Uint("product_id", product.ID), zap.Error(err))
	}
	product.ViewsCount++

	httputil.WriteJSON(w, http.StatusOK, product)
}
