package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/configs"
	"github.com/Farkhat1984/Trai-on/internal/generation"
	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/ledger"
	"github.com/Farkhat1984/Trai-on/internal/logger"
	"github.com/Farkhat1984/Trai-on/internal/middleware"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/moderation"
	"github.com/Farkhat1984/Trai-on/internal/payments"
	"github.com/Farkhat1984/Trai-on/internal/platform"
	"github.com/Farkhat1984/Trai-on/internal/refunds"
	"github.com/Farkhat1984/Trai-on/internal/rental"
)

// API bundles the core services behind the HTTP surface.
type API struct {
	DB         *gorm.DB
	Ledger     *ledger.Service
	Moderation *moderation.Workflow
	Rental     *rental.Lifecycle
	Payments   *payments.Service
	Refunds    *refunds.Workflow
	Generation *generation.Service
	Settings   *platform.Settings
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	// Users and shops share the login endpoint; the role claim in the
	// issued token routes them to their respective surfaces.
	var user models.User
	err := a.DB.Where("email = ?", req.Email).First(&user).Error
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		a.issueToken(w, user.ID, string(user.Role))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Error("login lookup failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}

	var shop models.Shop
	if err := a.DB.Where("email = ?", req.Email).First(&shop).Error; err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(shop.Password), []byte(req.Password)) != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	a.issueToken(w, shop.ID, middleware.RoleShop)
}

func (a *API) issueToken(w http.ResponseWriter, subjectID uint, role string) {
	claims := jwt.MapClaims{
		"sub":  subjectID,
		"role": role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var user models.User
	if err := a.DB.First(&user, userID).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	user.Password = ""
	httputil.WriteJSON(w, http.StatusOK, user)
}
