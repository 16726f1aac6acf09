// Package ledger owns every balance mutation on the platform. Each operation
// runs as one database transaction: the account row is locked, the balance
// changed, and the immutable transaction record inserted together, so a
// failure anywhere leaves the balance untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/models"
)

// Party selects which account table an operation targets.
type Party string

const (
	PartyUser Party = "user"
	PartyShop Party = "shop"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// Debit withdraws amount from the account, failing with ErrInsufficientFunds
// before any mutation if the balance would go below zero.
func (s *Service) Debit(ctx context.Context, party Party, accountID uint, amount decimal.Decimal, kind models.TransactionKind, txCtx datatypes.JSON) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.DebitTx(tx, party, accountID, amount, kind, txCtx)
		txn = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitTx is Debit inside an already-open database transaction.
func (s *Service) DebitTx(tx *gorm.DB, party Party, accountID uint, amount decimal.Decimal, kind models.TransactionKind, txCtx datatypes.JSON) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive: %w", apperr.ErrValidation)
	}
	amount = amount.Round(2)

	balance, err := lockBalance(tx, party, accountID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, fmt.Errorf("balance %s, need %s: %w", balance, amount, apperr.ErrInsufficientFunds)
	}

	if err := setBalance(tx, party, accountID, balance.Sub(amount)); err != nil {
		return nil, err
	}

	txn := newTransaction(party, accountID, kind, amount, txCtx)
	txn.Status = models.TxCompleted
	if err := tx.Create(txn).Error; err != nil {
		return nil, err
	}

	s.log.Info("ledger debit",
		zap.String("party", string(party)),
		zap.Uint("account_id", accountID),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()),
	)
	return txn, nil
}

// Credit deposits amount into the account.
func (s *Service) Credit(ctx context.Context, party Party, accountID uint, amount decimal.Decimal, kind models.TransactionKind, txCtx datatypes.JSON) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.CreditTx(tx, party, accountID, amount, kind, txCtx)
		txn = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreditTx is Credit inside an already-open database transaction.
func (s *Service) CreditTx(tx *gorm.DB, party Party, accountID uint, amount decimal.Decimal, kind models.TransactionKind, txCtx datatypes.JSON) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("credit amount must be positive: %w", apperr.ErrValidation)
	}
	amount = amount.Round(2)

	balance, err := lockBalance(tx, party, accountID)
	if err != nil {
		return nil, err
	}
	if err := setBalance(tx, party, accountID, balance.Add(amount)); err != nil {
		return nil, err
	}

	txn := newTransaction(party, accountID, kind, amount, txCtx)
	txn.Status = models.TxCompleted
	if err := tx.Create(txn).Error; err != nil {
		return nil, err
	}

	s.log.Info("ledger credit",
		zap.String("party", string(party)),
		zap.Uint("account_id", accountID),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()),
	)
	return txn, nil
}

// DepositTx adds amount to the account balance without creating a new
// transaction row. It is the completion half of an externally-recorded
// transaction (a top-up being captured), whose own row already carries the
// money event.
func (s *Service) DepositTx(tx *gorm.DB, party Party, accountID uint, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive: %w", apperr.ErrValidation)
	}
	balance, err := lockBalance(tx, party, accountID)
	if err != nil {
		return err
	}
	return setBalance(tx, party, accountID, balance.Add(amount.Round(2)))
}

// CompleteExternal is the idempotency boundary for payment capture. It locks
// the transaction carrying the external reference; a pending row is moved to
// completed and fulfill runs within the same database transaction, while an
// already-completed row is returned unchanged with replayed=true and fulfill
// is not called. The unique index on external_ref backstops concurrent
// duplicate deliveries at the insert/update point.
func (s *Service) CompleteExternal(ctx context.Context, externalRef string, fulfill func(tx *gorm.DB, txn *models.Transaction) error) (*models.Transaction, bool, error) {
	var (
		txn      models.Transaction
		replayed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_ref = ?", externalRef).
			First(&txn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("external ref %q: %w", externalRef, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}

		switch txn.Status {
		case models.TxCompleted, models.TxRefunded:
			replayed = true
			return nil
		case models.TxFailed:
			return fmt.Errorf("external ref %q is failed: %w", externalRef, apperr.ErrAlreadyCaptured)
		}

		if err := tx.Model(&txn).Update("status", models.TxCompleted).Error; err != nil {
			return err
		}
		txn.Status = models.TxCompleted

		if fulfill != nil {
			if err := fulfill(tx, &txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if replayed {
		s.log.Info("capture replayed, returning prior transaction",
			zap.String("external_ref", externalRef),
			zap.Uint("transaction_id", txn.ID),
		)
	}
	return &txn, replayed, nil
}

// Reconcile recomputes an account's balance from its transaction log and
// reports whether it matches the stored balance. Refunded rows keep their
// original sign because the compensating refund transaction is recorded
// separately.
func (s *Service) Reconcile(ctx context.Context, party Party, accountID uint) (stored, derived decimal.Decimal, ok bool, err error) {
	var txns []models.Transaction
	q := s.db.WithContext(ctx).
		Where("status IN ?", []models.TransactionStatus{models.TxCompleted, models.TxRefunded})
	switch party {
	case PartyUser:
		q = q.Where("user_id = ?", accountID)
	case PartyShop:
		q = q.Where("shop_id = ?", accountID)
	}
	if err = q.Find(&txns).Error; err != nil {
		return
	}

	derived = decimal.Zero
	for _, t := range txns {
		derived = derived.Add(t.Amount.Mul(signFor(party, t.Kind)))
	}

	stored, err = currentBalance(s.db.WithContext(ctx), party, accountID)
	if err != nil {
		return
	}
	ok = stored.Equal(derived)
	return
}

// signFor maps a transaction kind to its effect on the account balance.
// Rent payments and user purchases move money through the provider, not the
// balance; commission rows are record-only.
func signFor(party Party, kind models.TransactionKind) decimal.Decimal {
	one := decimal.NewFromInt(1)
	minusOne := decimal.NewFromInt(-1)
	switch party {
	case PartyUser:
		switch kind {
		case models.KindTopUp, models.KindRefund:
			return one
		case models.KindGeneration, models.KindTryOn:
			return minusOne
		}
	case PartyShop:
		switch kind {
		case models.KindProductPurchase, models.KindRefund:
			return one
		}
	}
	return decimal.Zero
}

func newTransaction(party Party, accountID uint, kind models.TransactionKind, amount decimal.Decimal, txCtx datatypes.JSON) *models.Transaction {
	txn := &models.Transaction{Kind: kind, Amount: amount, Context: txCtx}
	id := accountID
	switch party {
	case PartyUser:
		txn.UserID = &id
	case PartyShop:
		txn.ShopID = &id
	}
	return txn
}

func lockBalance(tx *gorm.DB, party Party, accountID uint) (decimal.Decimal, error) {
	switch party {
	case PartyUser:
		var u models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, accountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("user %d: %w", accountID, apperr.ErrNotFound)
		}
		return u.Balance, err
	case PartyShop:
		var sh models.Shop
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sh, accountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("shop %d: %w", accountID, apperr.ErrNotFound)
		}
		return sh.Balance, err
	}
	return decimal.Zero, fmt.Errorf("unknown party %q: %w", party, apperr.ErrValidation)
}

func setBalance(tx *gorm.DB, party Party, accountID uint, balance decimal.Decimal) error {
	switch party {
	case PartyUser:
		return tx.Model(&models.User{}).Where("id = ?", accountID).Update("balance", balance).Error
	case PartyShop:
		return tx.Model(&models.Shop{}).Where("id = ?", accountID).Update("balance", balance).Error
	}
	return fmt.Errorf("unknown party %q: %w", party, apperr.ErrValidation)
}

func currentBalance(db *gorm.DB, party Party, accountID uint) (decimal.Decimal, error) {
	switch party {
	case PartyUser:
		var u models.User
		if err := db.First(&u, accountID).Error; err != nil {
			return decimal.Zero, err
		}
		return u.Balance, nil
	case PartyShop:
		var sh models.Shop
		if err := db.First(&sh, accountID).Error; err != nil {
			return decimal.Zero, err
		}
		return sh.Balance, nil
	}
	return decimal.Zero, fmt.Errorf("unknown party %q: %w", party, apperr.ErrValidation)
}
