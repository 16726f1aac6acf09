// Package payments turns provider order references into completed ledger
// transactions plus their fulfillment effect, idempotently. Initiation
// creates a pending transaction holding the reference; capture completes it
// and dispatches fulfillment in the same database transaction, so a crash
// between the two is impossible to observe and a replayed capture returns
// the prior outcome.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/ledger"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
	"github.com/Farkhat1984/Trai-on/internal/rental"
)

type Service struct {
	db       *gorm.DB
	ledger   *ledger.Service
	rental   *rental.Lifecycle
	settings *platform.Settings
	provider Provider
	log      *zap.Logger
}

func NewService(db *gorm.DB, l *ledger.Service, r *rental.Lifecycle, settings *platform.Settings, provider Provider, log *zap.Logger) *Service {
	return &Service{db: db, ledger: l, rental: r, settings: settings, provider: provider, log: log}
}

// Order is what the client needs to continue an initiated payment.
type Order struct {
	Ref         string          `json:"order_id"`
	ApprovalURL string          `json:"approval_url"`
	Amount      decimal.Decimal `json:"amount"`
}

// Fulfillment is the outcome of a capture. Replayed is true when the
// reference had already been captured and nothing was performed again.
type Fulfillment struct {
	Transaction *models.Transaction
	Replayed    bool
}

func nowUTC() time.Time { return time.Now().UTC() }

type rentContext struct {
	ProductID uint `json:"product_id"`
	Months    int  `json:"months"`
}

type purchaseContext struct {
	ProductID uint `json:"product_id"`
}

// InitiateTopUp registers a balance top-up with the provider and records the
// pending transaction. The provider round trip happens before any row is
// touched, so no lock is held across it.
func (s *Service) InitiateTopUp(ctx context.Context, userID uint, amount decimal.Decimal) (*Order, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("top-up amount must be positive: %w", apperr.ErrValidation)
	}
	amount = amount.Round(2)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}

	ref, approvalURL, err := s.provider.CreateOrder(ctx, amount, "balance top-up")
	if err != nil {
		return nil, fmt.Errorf("create order: %w (%v)", apperr.ErrProvider, err)
	}

	txn := &models.Transaction{
		UserID:      &userID,
		Kind:        models.KindTopUp,
		Amount:      amount,
		Status:      models.TxPending,
		ExternalRef: &ref,
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}

	s.log.Info("top-up initiated", zap.Uint("user_id", userID), zap.String("ref", ref))
	return &Order{Ref: ref, ApprovalURL: approvalURL, Amount: amount}, nil
}

// InitiateRent registers a rent payment for months of visibility. The
// product must belong to the shop and be approved; the amount is the current
// per-month rent price times months.
func (s *Service) InitiateRent(ctx context.Context, shopID, productID uint, months int) (*Order, error) {
	minMonths, err := s.settings.Int(ctx, platform.KeyMinRentMonths)
	if err != nil {
		return nil, err
	}
	if months < minMonths {
		return nil, fmt.Errorf("rent period %d months below minimum %d: %w", months, minMonths, apperr.ErrValidation)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		return nil, fmt.Errorf("product %d: %w", productID, apperr.ErrNotFound)
	}
	if product.ShopID != shopID {
		return nil, fmt.Errorf("product %d does not belong to shop %d: %w", productID, shopID, apperr.ErrNotFound)
	}
	if product.ModerationStatus != models.ModerationApproved {
		return nil, fmt.Errorf("product %d: %w", productID, apperr.ErrNotApproved)
	}

	monthly, err := s.settings.Price(ctx, platform.KeyRentPrice)
	if err != nil {
		return nil, err
	}
	amount := monthly.Mul(decimal.NewFromInt(int64(months))).Round(2)

	ref, approvalURL, err := s.provider.CreateOrder(ctx, amount, fmt.Sprintf("rent of product %d for %d months", productID, months))
	if err != nil {
		return nil, fmt.Errorf("create order: %w (%v)", apperr.ErrProvider, err)
	}

	txCtx, _ := json.Marshal(rentContext{ProductID: productID, Months: months})
	txn := &models.Transaction{
		ShopID:      &shopID,
		Kind:        models.KindProductRent,
		Amount:      amount,
		Status:      models.TxPending,
		ExternalRef: &ref,
		Context:     txCtx,
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}

	s.log.Info("rent payment initiated",
		zap.Uint("shop_id", shopID),
		zap.Uint("product_id", productID),
		zap.Int("months", months),
		zap.String("ref", ref),
	)
	return &Order{Ref: ref, ApprovalURL: approvalURL, Amount: amount}, nil
}

// InitiatePurchase registers a purchase of a customer-visible product at its
// current price.
func (s *Service) InitiatePurchase(ctx context.Context, userID, productID uint) (*Order, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		return nil, fmt.Errorf("product %d: %w", productID, apperr.ErrNotFound)
	}
	if !product.Visible(nowUTC()) {
		return nil, fmt.Errorf("product %d is not purchasable: %w", productID, apperr.ErrNotFound)
	}

	amount := product.Price.Round(2)
	ref, approvalURL, err := s.provider.CreateOrder(ctx, amount, fmt.Sprintf("purchase of product %d", productID))
	if err != nil {
		return nil, fmt.Errorf("create order: %w (%v)", apperr.ErrProvider, err)
	}

	txCtx, _ := json.Marshal(purchaseContext{ProductID: productID})
	txn := &models.Transaction{
		UserID:      &userID,
		Kind:        models.KindProductPurchase,
		Amount:      amount,
		Status:      models.TxPending,
		ExternalRef: &ref,
		Context:     txCtx,
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}

	s.log.Info("purchase initiated",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID),
		zap.String("ref", ref),
	)
	return &Order{Ref: ref, ApprovalURL: approvalURL, Amount: amount}, nil
}

// Capture completes the payment behind ref and performs its fulfillment:
// top-up deposits the balance, rent activates the product, purchase credits
// the shop's net proceeds and records the platform commission. Both delivery
// paths (synchronous capture call and provider webhook) land here and are
// safe in either order, any number of times.
func (s *Service) Capture(ctx context.Context, ref string) (*Fulfillment, error) {
	txn, replayed, err := s.ledger.CompleteExternal(ctx, ref, func(tx *gorm.DB, txn *models.Transaction) error {
		return s.fulfill(tx, txn)
	})
	if err != nil {
		return nil, err
	}
	return &Fulfillment{Transaction: txn, Replayed: replayed}, nil
}

// fulfill runs inside the capture transaction; every read it performs must
// go through tx, not the pool, or the capture can deadlock on its own
// connection.
func (s *Service) fulfill(tx *gorm.DB, txn *models.Transaction) error {
	switch txn.Kind {
	case models.KindTopUp:
		if txn.UserID == nil {
			return fmt.Errorf("top-up transaction %d has no user: %w", txn.ID, apperr.ErrValidation)
		}
		return s.ledger.DepositTx(tx, ledger.PartyUser, *txn.UserID, txn.Amount)

	case models.KindProductRent:
		var rc rentContext
		if err := json.Unmarshal(txn.Context, &rc); err != nil {
			return fmt.Errorf("rent transaction %d has malformed context: %w", txn.ID, apperr.ErrValidation)
		}
		_, err := s.rental.ActivateTx(tx, rc.ProductID, rc.Months)
		return err

	case models.KindProductPurchase:
		var pc purchaseContext
		if err := json.Unmarshal(txn.Context, &pc); err != nil {
			return fmt.Errorf("purchase transaction %d has malformed context: %w", txn.ID, apperr.ErrValidation)
		}
		return s.fulfillPurchase(tx, txn, pc.ProductID)
	}
	return fmt.Errorf("transaction %d has uncapturable kind %q: %w", txn.ID, txn.Kind, apperr.ErrValidation)
}

// fulfillPurchase splits the captured gross into the platform commission and
// the shop's net proceeds. The two always sum exactly to the gross: the
// commission is rounded to 2 decimals and the net is the remainder.
func (s *Service) fulfillPurchase(tx *gorm.DB, txn *models.Transaction, productID uint) error {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		return fmt.Errorf("purchased product %d: %w", productID, apperr.ErrNotFound)
	}

	rate, err := s.settings.RateTx(tx, platform.KeyCommissionRate)
	if err != nil {
		return err
	}
	commission := txn.Amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	net := txn.Amount.Sub(commission)

	if err := tx.Model(&product).
		Update("purchases_count", gorm.Expr("purchases_count + 1")).Error; err != nil {
		return err
	}

	txCtx, _ := json.Marshal(map[string]any{"product_id": productID, "purchase_transaction_id": txn.ID})
	if commission.IsPositive() {
		com := &models.Transaction{
			ShopID:  &product.ShopID,
			Kind:    models.KindCommission,
			Amount:  commission,
			Status:  models.TxCompleted,
			Context: txCtx,
		}
		if err := tx.Create(com).Error; err != nil {
			return err
		}
	}
	if net.IsPositive() {
		if _, err := s.ledger.CreditTx(tx, ledger.PartyShop, product.ShopID, net, models.KindProductPurchase, txCtx); err != nil {
			return err
		}
	}
	return nil
}
