package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer order. Once Completed is set the lines are frozen:
// processing has already consumed the stock they name.
type Order struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"order_id"`
	CustomerName    string      `gorm:"size:200;not null;index" json:"customer_name"`
	CustomerKey     string      `gorm:"size:200;not null;default:'';index" json:"-"`
	CustomerAddress string      `gorm:"size:500;not null" json:"customer_address"`
	Completed       bool        `gorm:"not null;default:false;index" json:"completed"`
	OrderDate       time.Time   `gorm:"not null;index" json:"order_date"`
	ProcessDate     *time.Time  `json:"process_date"`
	Lines           []OrderLine `gorm:"foreignKey:OrderID" json:"-"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// OrderLine is one (product, quantity) entry of an order. The product is
// referenced by name; deleting a referenced product is refused, never cascaded.
type OrderLine struct {
	ID          int64    `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID     int64    `gorm:"not null;uniqueIndex:idx_order_lines_order_product" json:"-"`
	ProductName string   `gorm:"size:200;not null;uniqueIndex:idx_order_lines_order_product;index" json:"name"`
	Quantity    int      `gorm:"not null;check:chk_order_lines_quantity,quantity > 0" json:"quantity"`
	Product     *Product `gorm:"foreignKey:ProductName;references:Name;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

// TableName Specify table name
func (OrderLine) TableName() string {
	return "order_lines"
}

// LineView is the wire shape of an order line.
type LineView struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderView is the wire shape of an order with its derived total.
type OrderView struct {
	ID              int64           `json:"order_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerAddress string          `json:"customer_address"`
	OrderDate       time.Time       `json:"order_date"`
	ProcessDate     *time.Time      `json:"process_date"`
	Completed       bool            `json:"completed"`
	Products        []LineView      `json:"products"`
	Price           decimal.Decimal `json:"price"`
}

// Total sums quantity x current product price over all lines, rounded to cents.
// Lines must have their Product loaded.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		if line.Product == nil {
			continue
		}
		total = total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

// View projects the order into its wire shape.
func (o *Order) View() *OrderView {
	products := make([]LineView, 0, len(o.Lines))
	for _, line := range o.Lines {
		products = append(products, LineView{Name: line.ProductName, Quantity: line.Quantity})
	}
	return &OrderView{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerAddress: o.CustomerAddress,
		OrderDate:       o.OrderDate,
		ProcessDate:     o.ProcessDate,
		Completed:       o.Completed,
		Products:        products,
		Price:           o.Total(),
	}
}

// Line returns the line for product name, or nil.
func (o *Order) Line(name string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ProductName == name {
			return &o.Lines[i]
		}
	}
	return nil
}
