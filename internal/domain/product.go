package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

func init() {
	// prices go over the wire as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry keyed by its case-folded name.
type Product struct {
	Name      string          `gorm:"primaryKey;size:200" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_products_price,price >= 0" json:"price"`
	Quantity  int             `gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0" json:"quantity"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// NormalizeName folds a product name to the key it is stored under.
func NormalizeName(name string) string {
	return Fold(strings.TrimSpace(name))
}

// Fold applies Unicode case folding, so "Émile" and "éMILE" compare equal.
func Fold(s string) string {
	return cases.Fold().String(s)
}
