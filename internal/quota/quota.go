// Package quota decides what a unit of metered work costs: a free-quota use
// when the user still has one, otherwise a balance debit through the ledger.
package quota

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
	"github.com/Farkhat1984/Trai-on/internal/ledger"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
)

// WorkKind is a kind of metered work with its own price and free counter.
type WorkKind string

const (
	WorkGeneration WorkKind = "generation"
	WorkTryOn      WorkKind = "try_on"
)

// Outcome reports how a charge was satisfied. Cost is zero exactly when
// UsedFreeQuota is true.
type Outcome struct {
	Cost          decimal.Decimal
	UsedFreeQuota bool
}

type Gate struct {
	db       *gorm.DB
	ledger   *ledger.Service
	settings *platform.Settings
	log      *zap.Logger
}

func NewGate(db *gorm.DB, l *ledger.Service, settings *platform.Settings, log *zap.Logger) *Gate {
	return &Gate{db: db, ledger: l, settings: settings, log: log}
}

// Charge consumes a free-quota use or debits the current price for kind.
// The price is read from the platform settings on every call. On
// ErrInsufficientFunds nothing is mutated and no transaction row exists.
func (g *Gate) Charge(ctx context.Context, userID uint, kind WorkKind) (Outcome, error) {
	priceKey, counterColumn, txKind, err := meterFor(kind)
	if err != nil {
		return Outcome{}, err
	}

	price, err := g.settings.Price(ctx, priceKey)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
			}
			return err
		}

		free := user.FreeGenerationsLeft
		if kind == WorkTryOn {
			free = user.FreeTryOnsLeft
		}
		if free > 0 {
			if err := tx.Model(&user).
				Update(counterColumn, gorm.Expr(counterColumn+" - 1")).Error; err != nil {
				return err
			}
			out = Outcome{Cost: decimal.Zero, UsedFreeQuota: true}
			return nil
		}

		txCtx := datatypes.JSON(fmt.Sprintf(`{"work_kind":%q}`, kind))
		if _, err := g.ledger.DebitTx(tx, ledger.PartyUser, userID, price, txKind, txCtx); err != nil {
			return err
		}
		out = Outcome{Cost: price, UsedFreeQuota: false}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	g.log.Info("metered work charged",
		zap.Uint("user_id", userID),
		zap.String("work_kind", string(kind)),
		zap.Bool("free", out.UsedFreeQuota),
		zap.String("cost", out.Cost.String()),
	)
	return out, nil
}

// Reverse compensates a prior Charge after the paid work terminally failed:
// a free use goes back on the counter, a balance charge is credited back as
// a refund transaction. Callers own the decision to reverse; Charge never
// does it on its own.
func (g *Gate) Reverse(ctx context.Context, userID uint, kind WorkKind, out Outcome) error {
	_, counterColumn, _, err := meterFor(kind)
	if err != nil {
		return err
	}

	if out.UsedFreeQuota {
		return g.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", userID).
			Update(counterColumn, gorm.Expr(counterColumn+" + 1")).Error
	}

	txCtx := datatypes.JSON(fmt.Sprintf(`{"work_kind":%q,"reason":"work_failed"}`, kind))
	_, err = g.ledger.Credit(ctx, ledger.PartyUser, userID, out.Cost, models.KindRefund, txCtx)
	return err
}

func meterFor(kind WorkKind) (priceKey, counterColumn string, txKind models.TransactionKind, err error) {
	switch kind {
	case WorkGeneration:
		return platform.KeyGenerationPrice, "free_generations_left", models.KindGeneration, nil
	case WorkTryOn:
		return platform.KeyTryOnPrice, "free_try_ons_left", models.KindTryOn, nil
	}
	return "", "", "", fmt.Errorf("unknown work kind %q: %w", kind, apperr.ErrValidation)
}
