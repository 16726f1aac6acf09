// Package refunds handles admin-driven reversal of completed transactions.
// A refund is requested by the payer, decided once, and an approval settles
// immediately as platform-internal bookkeeping: the payer is credited and
// the source transaction becomes refunded. Returning money through the
// external provider is a collaborator concern outside this core.
package refunds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/ledger"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
)

type Workflow struct {
	db       *gorm.DB
	ledger   *ledger.Service
	settings *platform.Settings
	log      *zap.Logger
}

func NewWorkflow(db *gorm.DB, l *ledger.Service, settings *platform.Settings, log *zap.Logger) *Workflow {
	return &Workflow{db: db, ledger: l, settings: settings, log: log}
}

// Request opens a refund for a completed transaction the user paid for.
// One refund per transaction, inside the platform's refund window.
func (w *Workflow) Request(ctx context.Context, userID, transactionID uint, reason string) (*models.Refund, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("refund reason is required: %w", apperr.ErrValidation)
	}

	refundDays, err := w.settings.Int(ctx, platform.KeyRefundDays)
	if err != nil {
		return nil, err
	}

	var refund *models.Refund
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&txn, transactionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("transaction %d: %w", transactionID, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if txn.UserID == nil || *txn.UserID != userID {
			return fmt.Errorf("transaction %d: %w", transactionID, apperr.ErrNotFound)
		}
		if txn.Status != models.TxCompleted {
			return fmt.Errorf("transaction %d is %s, only completed transactions are refundable: %w",
				transactionID, txn.Status, apperr.ErrValidation)
		}
		if time.Since(txn.CreatedAt) > time.Duration(refundDays)*24*time.Hour {
			return fmt.Errorf("refund window of %d days has passed: %w", refundDays, apperr.ErrValidation)
		}

		var existing models.Refund
		err = tx.Where("transaction_id = ?", transactionID).First(&existing).Error
		if err == nil {
			return fmt.Errorf("transaction %d already has a refund: %w", transactionID, apperr.ErrValidation)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		refund = &models.Refund{
			TransactionID: transactionID,
			UserID:        userID,
			Reason:        reason,
			Status:        models.RefundRequested,
		}
		return tx.Create(refund).Error
	})
	if err != nil {
		return nil, err
	}

	w.log.Info("refund requested",
		zap.Uint("refund_id", refund.ID),
		zap.Uint("transaction_id", transactionID),
		zap.Uint("user_id", userID),
	)
	return refund, nil
}

// Decide moves a requested refund to approved or rejected, exactly once.
// Approval settles immediately: the payer is credited the amount back and
// the source transaction is marked refunded, all in one database
// transaction.
func (w *Workflow) Decide(ctx context.Context, refundID uint, approve bool, adminNotes string) (*models.Refund, error) {
	var refund models.Refund
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&refund, refundID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("refund %d: %w", refundID, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if refund.Status != models.RefundRequested {
			return fmt.Errorf("refund %d is already %s: %w", refundID, refund.Status, apperr.ErrAlreadyReviewed)
		}

		now := time.Now().UTC()
		if !approve {
			refund.Status = models.RefundRejected
			refund.AdminNotes = adminNotes
			refund.ProcessedAt = &now
			return tx.Model(&refund).Updates(map[string]any{
				"status":       models.RefundRejected,
				"admin_notes":  adminNotes,
				"processed_at": now,
			}).Error
		}

		var txn models.Transaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&txn, refund.TransactionID).Error; err != nil {
			return err
		}
		if txn.Status != models.TxCompleted {
			return fmt.Errorf("source transaction %d is %s: %w", txn.ID, txn.Status, apperr.ErrValidation)
		}

		party := ledger.PartyUser
		accountID := refund.UserID
		if txn.UserID == nil && txn.ShopID != nil {
			party = ledger.PartyShop
			accountID = *txn.ShopID
		}

		txCtx, _ := json.Marshal(map[string]any{"refund_id": refund.ID, "source_transaction_id": txn.ID})
		if _, err := w.ledger.CreditTx(tx, party, accountID, txn.Amount, models.KindRefund, txCtx); err != nil {
			return err
		}
		if err := tx.Model(&txn).Update("status", models.TxRefunded).Error; err != nil {
			return err
		}

		refund.Status = models.RefundCompleted
		refund.AdminNotes = adminNotes
		refund.ProcessedAt = &now
		return tx.Model(&refund).Updates(map[string]any{
			"status":       models.RefundCompleted,
			"admin_notes":  adminNotes,
			"processed_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	w.log.Info("refund decided",
		zap.Uint("refund_id", refundID),
		zap.String("status", string(refund.Status)),
	)
	return &refund, nil
}

// List returns refunds, optionally filtered by status, newest first.
func (w *Workflow) List(ctx context.Context, status models.RefundStatus) ([]models.Refund, error) {
	q := w.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var refunds []models.Refund
	err := q.Find(&refunds).Error
	return refunds, err
}
