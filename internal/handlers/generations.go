package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/middleware"
)

type GenerateRequest struct {
	Prompt       string `json:"prompt"`
	UserImageURL string `json:"user_image_url"`
}

type TryOnRequest struct {
	ProductID    uint   `json:"product_id"`
	UserImageURL string `json:"user_image_url"`
}

func (a *API) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		httputil.WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	gen, err := a.Generation.Generate(r.Context(), userID, req.Prompt, req.UserImageURL)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, gen)
}

func (a *API) TryOnHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TryOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == 0 || req.UserImageURL == "" {
		httputil.WriteError(w, http.StatusBadRequest, "product_id and user_image_url are required")
		return
	}

	gen, err := a.Generation.TryOn(r.Context(), userID, req.ProductID, req.UserImageURL)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, gen)
}
