package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	gorm.Model
	Email               string          `gorm:"uniqueIndex;size:255;not null"`
	Name                string          `gorm:"size:255;not null"`
	Password            string          `gorm:"size:255"`
	AvatarURL           string          `gorm:"size:500"`
	Balance             decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	FreeGenerationsLeft int             `gorm:"not null;default:0"`
	FreeTryOnsLeft      int             `gorm:"not null;default:0"`
	Role                UserRole        `gorm:"size:20;not null;default:user"`
}

type Shop struct {
	gorm.Model
	Email       string          `gorm:"uniqueIndex;size:255;not null"`
	ShopName    string          `gorm:"size:255;not null"`
	OwnerName   string          `gorm:"size:255;not null"`
	Password    string          `gorm:"size:255"`
	Description string          `gorm:"size:1000"`
	AvatarURL   string          `gorm:"size:500"`
	IsApproved  bool            `gorm:"not null;default:true"`
	Balance     decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
}

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

type Product struct {
	gorm.Model
	ShopID           uint             `gorm:"index;not null"`
	Name             string           `gorm:"size:255;not null"`
	Description      string           `gorm:"size:2000"`
	Characteristics  datatypes.JSON   `gorm:"type:jsonb"`
	Price            decimal.Decimal  `gorm:"type:numeric(10,2);not null"`
	Images           datatypes.JSON   `gorm:"type:jsonb"`
	RentExpiresAt    *time.Time       `gorm:"index"`
	IsActive         bool             `gorm:"not null;default:false"`
	ModerationStatus ModerationStatus `gorm:"size:20;index;not null;default:pending"`
	ModerationNotes  string           `gorm:"size:1000"`
	ViewsCount       int64            `gorm:"not null;default:0"`
	TryOnsCount      int64            `gorm:"not null;default:0"`
	PurchasesCount   int64            `gorm:"not null;default:0"`
}

// Visible reports whether customers may see or buy the product: it must be
// approved, active, and inside its paid rent window. Activation is the only
// writer of IsActive, so an active product always carries an expiry.
func (p *Product) Visible(now time.Time) bool {
	if p.ModerationStatus != ModerationApproved || !p.IsActive {
		return false
	}
	return p.RentExpiresAt == nil || p.RentExpiresAt.After(now)
}

type TransactionKind string

const (
	KindTopUp           TransactionKind = "top_up"
	KindGeneration      TransactionKind = "generation"
	KindTryOn           TransactionKind = "try_on"
	KindProductRent     TransactionKind = "product_rent"
	KindProductPurchase TransactionKind = "product_purchase"
	KindRefund          TransactionKind = "refund"
	KindCommission      TransactionKind = "commission"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxRefunded  TransactionStatus = "refunded"
)

// Transaction is the immutable record of one monetary event. The row is
// created once; only Status ever changes afterwards. ExternalRef carries the
// payment provider's order id and its unique index is the dedupe point for
// at-least-once capture delivery.
type Transaction struct {
	gorm.Model
	UserID      *uint             `gorm:"index"`
	ShopID      *uint             `gorm:"index"`
	Kind        TransactionKind   `gorm:"size:30;index;not null"`
	Amount      decimal.Decimal   `gorm:"type:numeric(10,2);not null"`
	Status      TransactionStatus `gorm:"size:20;index;not null;default:pending"`
	ExternalRef *string           `gorm:"uniqueIndex;size:255"`
	Context     datatypes.JSON    `gorm:"type:jsonb"`
}

// ModerationEntry is the review record attached to a submitted product,
// one per product. ReviewedAt is stamped exactly once.
type ModerationEntry struct {
	gorm.Model
	ProductID   uint       `gorm:"uniqueIndex;not null"`
	SubmittedAt time.Time  `gorm:"index;not null"`
	ReviewedAt  *time.Time `gorm:"index"`
	ReviewerID  *uint
	Notes       string `gorm:"size:1000"`
}

type RefundStatus string

const (
	RefundRequested RefundStatus = "requested"
	RefundApproved  RefundStatus = "approved"
	RefundRejected  RefundStatus = "rejected"
	RefundCompleted RefundStatus = "completed"
)

type Refund struct {
	gorm.Model
	TransactionID uint         `gorm:"uniqueIndex;not null"`
	UserID        uint         `gorm:"index;not null"`
	Reason        string       `gorm:"size:1000;not null"`
	Status        RefundStatus `gorm:"size:20;index;not null;default:requested"`
	AdminNotes    string       `gorm:"size:1000"`
	ProcessedAt   *time.Time
}

type GenerationKind string

const (
	GenFashion GenerationKind = "generation"
	GenTryOn   GenerationKind = "try_on"
)

type Generation struct {
	gorm.Model
	UserID    uint `gorm:"index;not null"`
	ProductID *uint
	Kind      GenerationKind  `gorm:"size:20;not null"`
	ImageURL  string          `gorm:"size:500"`
	Cost      decimal.Decimal `gorm:"type:numeric(10,2);not null"`
}

type PlatformSetting struct {
	gorm.Model
	Key         string `gorm:"uniqueIndex;size:100;not null"`
	Value       string `gorm:"size:500;not null"`
	Description string `gorm:"size:500"`
}
