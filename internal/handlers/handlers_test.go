package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/configs"
	"github.com/Farkhat1984/Trai-on/internal/handlers"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/testutil"
)

const testSecret = "test-secret"

func newAPI(t *testing.T) (*gorm.DB, *handlers.API) {
	t.Helper()
	configs.AppConfig.JWT.SECRET = testSecret
	db := testutil.NewDB(t)
	return db, &handlers.API{DB: db}
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func login(t *testing.T, api *handlers.API, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(handlers.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	api.LoginHandler(rec, req)
	return rec
}

func tokenClaims(t *testing.T, rec *httptest.ResponseRecorder) jwt.MapClaims {
	t.Helper()
	var resp handlers.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	token, err := jwt.Parse(resp.Token, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestLoginIssuesUserToken(t *testing.T) {
	db, api := newAPI(t)
	user := &models.User{
		Email:    "buyer@example.com",
		Name:     "Buyer",
		Password: hash(t, "secret"),
		Role:     models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)

	rec := login(t, api, "buyer@example.com", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	claims := tokenClaims(t, rec)
	assert.Equal(t, "user", claims["role"])
	assert.EqualValues(t, user.ID, claims["sub"])
}

func TestLoginFallsBackToShops(t *testing.T) {
	db, api := newAPI(t)
	shop := &models.Shop{
		Email:     "atelier@example.com",
		ShopName:  "Atelier",
		OwnerName: "Owner",
		Password:  hash(t, "secret"),
	}
	require.NoError(t, db.Create(shop).Error)

	rec := login(t, api, "atelier@example.com", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	claims := tokenClaims(t, rec)
	assert.Equal(t, "shop", claims["role"])
	assert.EqualValues(t, shop.ID, claims["sub"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db, api := newAPI(t)
	require.NoError(t, db.Create(&models.User{
		Email:    "buyer@example.com",
		Name:     "Buyer",
		Password: hash(t, "secret"),
	}).Error)
	require.NoError(t, db.Create(&models.Shop{
		Email:     "atelier@example.com",
		ShopName:  "Atelier",
		OwnerName: "Owner",
		Password:  hash(t, "secret"),
	}).Error)

	cases := []struct {
		name, email, password string
	}{
		{"wrong user password", "buyer@example.com", "nope"},
		{"wrong shop password", "atelier@example.com", "nope"},
		{"unknown email", "ghost@example.com", "secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := login(t, api, tc.email, tc.password)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
