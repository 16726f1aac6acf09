// Package moderation drives the one-way product review state machine:
// pending -> approved or pending -> rejected, each decided exactly once.
// A rejected product is final; a shop revises by submitting a new product.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/notify"
)

type Workflow struct {
	db     *gorm.DB
	sender notify.Sender
	log    *zap.Logger
}

func NewWorkflow(db *gorm.DB, sender notify.Sender, log *zap.Logger) *Workflow {
	return &Workflow{db: db, sender: sender, log: log}
}

// SubmitInput is the catalog data a shop provides for review.
type SubmitInput struct {
	Name            string
	Description     string
	Characteristics datatypes.JSON
	Price           decimal.Decimal
	Images          datatypes.JSON
}

// Submit creates the product in pending state, invisible to customers, and
// queues it for human review.
func (w *Workflow) Submit(ctx context.Context, shopID uint, in SubmitInput) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("product name is required: %w", apperr.ErrValidation)
	}
	if !in.Price.IsPositive() {
		return nil, fmt.Errorf("product price must be positive: %w", apperr.ErrValidation)
	}

	product := &models.Product{
		ShopID:           shopID,
		Name:             in.Name,
		Description:      in.Description,
		Characteristics:  in.Characteristics,
		Price:            in.Price.Round(2),
		Images:           in.Images,
		IsActive:         false,
		ModerationStatus: models.ModerationPending,
	}
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		entry := &models.ModerationEntry{
			ProductID:   product.ID,
			SubmittedAt: time.Now().UTC(),
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	w.log.Info("product submitted for moderation",
		zap.Uint("product_id", product.ID),
		zap.Uint("shop_id", shopID),
	)
	return product, nil
}

// Queue returns products awaiting review, oldest submission first.
func (w *Workflow) Queue(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := w.db.WithContext(ctx).
		Joins("JOIN moderation_entries ON moderation_entries.product_id = products.id").
		Where("products.moderation_status = ?", models.ModerationPending).
		Where("moderation_entries.reviewed_at IS NULL").
		Order("moderation_entries.submitted_at asc").
		Find(&products).Error
	return products, err
}

// Approve marks the product approved and stamps the review entry. Activation
// stays untouched; the shop still has to pay rent before customers see it.
func (w *Workflow) Approve(ctx context.Context, productID, reviewerID uint, notes string) (*models.Product, error) {
	return w.review(ctx, productID, reviewerID, notes, models.ModerationApproved)
}

// Reject marks the product rejected. An empty notes string is a handling
// error: a shop must always learn why.
func (w *Workflow) Reject(ctx context.Context, productID, reviewerID uint, notes string) (*models.Product, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("rejection requires notes: %w", apperr.ErrValidation)
	}
	return w.review(ctx, productID, reviewerID, notes, models.ModerationRejected)
}

func (w *Workflow) review(ctx context.Context, productID, reviewerID uint, notes string, decision models.ModerationStatus) (*models.Product, error) {
	var product models.Product
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.ModerationEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", productID).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no moderation entry for product %d: %w", productID, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if entry.ReviewedAt != nil {
			return fmt.Errorf("product %d: %w", productID, apperr.ErrAlreadyReviewed)
		}

		now := time.Now().UTC()
		if err := tx.Model(&entry).Updates(map[string]any{
			"reviewed_at": now,
			"reviewer_id": reviewerID,
			"notes":       notes,
		}).Error; err != nil {
			return err
		}

		if err := tx.First(&product, productID).Error; err != nil {
			return err
		}
		return tx.Model(&product).Updates(map[string]any{
			"moderation_status": decision,
			"moderation_notes":  notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	product.ModerationStatus = decision
	product.ModerationNotes = notes

	w.notifyDecision(ctx, &product, decision, notes)
	return &product, nil
}

// notifyDecision runs after commit; a delivery failure never unwinds the
// review itself.
func (w *Workflow) notifyDecision(ctx context.Context, product *models.Product, decision models.ModerationStatus, notes string) {
	var shop models.Shop
	if err := w.db.WithContext(ctx).First(&shop, product.ShopID).Error; err != nil {
		w.log.Warn("moderation notification skipped, shop lookup failed",
			zap.Uint("shop_id", product.ShopID), zap.Error(err))
		return
	}

	var err error
	if decision == models.ModerationApproved {
		err = w.sender.ProductApproved(ctx, shop.Email, shop.ShopName, product.Name)
	} else {
		err = w.sender.ProductRejected(ctx, shop.Email, shop.ShopName, product.Name, notes)
	}
	if err != nil {
		w.log.Warn("moderation notification failed",
			zap.Uint("product_id", product.ID), zap.Error(err))
	}
}
