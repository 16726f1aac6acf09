// Package generation orchestrates paid AI work: charge through the quota
// gate first, call the backend with no lock held, then record the result.
// If the backend terminally fails after a successful charge, the charge is
// reversed — a free use goes back on the counter, a paid charge is credited
// back. Work never happens uncharged and money never stays taken for work
// that did not happen.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/quota"
)

// AI is the generative backend. Both calls return a stored-content URL.
type AI interface {
	GenerateFashion(ctx context.Context, prompt, userImageURL string) (string, error)
	TryOn(ctx context.Context, productImageURL, userImageURL string) (string, error)
}

type Service struct {
	db   *gorm.DB
	gate *quota.Gate
	ai   AI
	log  *zap.Logger
}

func NewService(db *gorm.DB, gate *quota.Gate, ai AI, log *zap.Logger) *Service {
	return &Service{db: db, gate: gate, ai: ai, log: log}
}

// Generate produces a fashion image from a prompt.
func (s *Service) Generate(ctx context.Context, userID uint, prompt, userImageURL string) (*models.Generation, error) {
	out, err := s.gate.Charge(ctx, userID, quota.WorkGeneration)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.ai.GenerateFashion(ctx, prompt, userImageURL)
	if err != nil {
		s.reverse(ctx, userID, quota.WorkGeneration, out)
		return nil, fmt.Errorf("generation backend: %w (%v)", apperr.ErrProvider, err)
	}

	gen := &models.Generation{
		UserID:   userID,
		Kind:     models.GenFashion,
		ImageURL: imageURL,
		Cost:     out.Cost,
	}
	if err := s.db.WithContext(ctx).Create(gen).Error; err != nil {
		return nil, err
	}

	s.log.Info("fashion generated",
		zap.Uint("user_id", userID),
		zap.Uint("generation_id", gen.ID),
		zap.String("cost", out.Cost.String()),
	)
	return gen, nil
}

// TryOn renders a customer-visible product onto the user's photo.
func (s *Service) TryOn(ctx context.Context, userID, productID uint, userImageURL string) (*models.Generation, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		return nil, fmt.Errorf("product %d: %w", productID, apperr.ErrNotFound)
	}
	if !product.Visible(nowUTC()) {
		return nil, fmt.Errorf("product %d is not available: %w", productID, apperr.ErrNotFound)
	}
	productImage, err := firstImage(product.Images)
	if err != nil {
		return nil, fmt.Errorf("product %d has no images: %w", productID, apperr.ErrValidation)
	}

	out, err := s.gate.Charge(ctx, userID, quota.WorkTryOn)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.ai.TryOn(ctx, productImage, userImageURL)
	if err != nil {
		s.reverse(ctx, userID, quota.WorkTryOn, out)
		return nil, fmt.Errorf("try-on backend: %w (%v)", apperr.ErrProvider, err)
	}

	gen := &models.Generation{
		UserID:    userID,
		ProductID: &productID,
		Kind:      models.GenTryOn,
		ImageURL:  imageURL,
		Cost:      out.Cost,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(gen).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).Where("id = ?", productID).
			Update("try_ons_count", gorm.Expr("try_ons_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("try-on generated",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID),
		zap.String("cost", out.Cost.String()),
	)
	return gen, nil
}

func (s *Service) reverse(ctx context.Context, userID uint, kind quota.WorkKind, out quota.Outcome) {
	if err := s.gate.Reverse(ctx, userID, kind, out); err != nil {
		// The user was charged for work that never happened; this needs a
		// human if it ever fires.
		s.log.Error("charge reversal failed",
			zap.Uint("user_id", userID),
			zap.String("work_kind", string(kind)),
			zap.String("cost", out.Cost.String()),
			zap.Error(err),
		)
	}
}

func nowUTC() time.Time { return time.Now().UTC() }

func firstImage(images datatypes.JSON) (string, error) {
	var urls []string
	if err := json.Unmarshal(images, &urls); err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("empty image list")
	}
	return urls[0], nil
}
