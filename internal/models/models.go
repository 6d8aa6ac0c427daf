package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Category is a node of the category tree. Path holds the ancestor ids
// including the node itself, e.g. "/1/4/9/".
type Category struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Slug        string        `db:"slug" json:"slug"`
	ParentID    sql.NullInt64 `db:"parent_id" json:"-"`
	Description string        `db:"description" json:"description"`
	Path        string        `db:"path" json:"-"`
	Depth       int           `db:"depth" json:"depth"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`

	Children []*Category `db:"-" json:"children,omitempty"`
}

// Collection groups products for merchandising
type Collection struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID         int64           `db:"id" json:"id"`
	Title      string          `db:"title" json:"title"`
	Slug       string          `db:"slug" json:"slug"`
	Status     string          `db:"status" json:"status"`
	PriceStart decimal.Decimal `db:"price_start" json:"price_start"`
	Thumbnail  string          `db:"thumbnail" json:"thumbnail"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductVariant is a purchasable configuration of a product
type ProductVariant struct {
	ID             int64               `db:"id" json:"id"`
	ProductID      int64               `db:"product_id" json:"product_id"`
	SKU            string              `db:"sku" json:"sku"`
	Price          decimal.Decimal     `db:"price" json:"price"`
	CompareAtPrice decimal.NullDecimal `db:"compare_at_price" json:"compare_at_price"`
	StockQuantity  int                 `db:"stock_quantity" json:"stock_quantity"`
	Color          string              `db:"color" json:"color"`
	Height         decimal.Decimal     `db:"height" json:"height"`
	Width          decimal.Decimal     `db:"width" json:"width"`
	Length         decimal.Decimal     `db:"length" json:"length"`
	Image          string              `db:"image" json:"image"`
	Attributes     Attributes          `db:"attributes" json:"attributes"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// ProductImage is one picture of a product gallery
type ProductImage struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Image     string    `db:"image" json:"image"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProductDetail is a product with its related rows loaded
type ProductDetail struct {
	Product
	Variants   []ProductVariant `json:"variants"`
	Gallery    []ProductImage   `json:"gallery"`
	Categories []Category       `json:"categories"`
}

// Cart is the shopping cart of one anonymous session
type Cart struct {
	ID         int64     `db:"id" json:"id"`
	SessionKey string    `db:"session_key" json:"session_key"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem represents one line of a cart
type CartItem struct {
	ID               int64     `db:"id" json:"id"`
	CartID           int64     `db:"cart_id" json:"cart_id"`
	ProductVariantID int64     `db:"product_variant_id" json:"product_variant_id"`
	Quantity         int       `db:"quantity" json:"quantity"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CartLine is a cart item joined with the variant and product it points at
type CartLine struct {
	ItemID        int64           `db:"item_id"`
	Quantity      int             `db:"quantity"`
	VariantID     int64           `db:"variant_id"`
	SKU           string          `db:"sku"`
	Price         decimal.Decimal `db:"price"`
	StockQuantity int             `db:"stock_quantity"`
	Attributes    Attributes      `db:"attributes"`
	VariantImage  string          `db:"variant_image"`
	ProductTitle  string          `db:"product_title"`
	ProductSlug   string          `db:"product_slug"`
	ProductImage  string          `db:"product_thumbnail"`
}

// LineTotal returns price x quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderAddress is an address snapshot owned by an order
type OrderAddress struct {
	ID           int64     `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	AddressLine1 string    `db:"address_line_1" json:"address_line_1"`
	AddressLine2 string    `db:"address_line_2" json:"address_line_2"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	PostalCode   string    `db:"postal_code" json:"postal_code"`
	Country      string    `db:"country" json:"country"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a customer order
type Order struct {
	ID                string          `db:"id" json:"id"`
	OrderNumber       string          `db:"order_number" json:"order_number"`
	Email             string          `db:"email" json:"email"`
	Status            string          `db:"status" json:"status"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingAddressID int64           `db:"shipping_address_id" json:"shipping_address_id"`
	BillingAddressID  sql.NullInt64   `db:"billing_address_id" json:"-"`
	CartID            sql.NullInt64   `db:"cart_id" json:"-"`
	IsPaid            bool            `db:"is_paid" json:"is_paid"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is a write-once snapshot of a purchased line
type OrderItem struct {
	ID               int64           `db:"id" json:"id"`
	OrderID          string          `db:"order_id" json:"order_id"`
	ProductVariantID sql.NullInt64   `db:"product_variant_id" json:"-"`
	ProductSKU       string          `db:"product_sku" json:"product_sku"`
	ProductName      string          `db:"product_name" json:"product_name"`
	Attributes       Attributes      `db:"attributes" json:"attributes"`
	Quantity         int             `db:"quantity" json:"quantity"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice       decimal.Decimal `db:"total_price" json:"total_price"`
}

// ResolveTotal fills TotalPrice from UnitPrice and Quantity unless it was set explicitly
func (i *OrderItem) ResolveTotal() {
	if i.TotalPrice.IsZero() && !i.UnitPrice.IsZero() && i.Quantity > 0 {
		i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	}
}

// OrderDetail is an order with its addresses and items
type OrderDetail struct {
	Order
	ShippingAddress OrderAddress  `json:"shipping_address"`
	BillingAddress  *OrderAddress `json:"billing_address"`
	Items           []OrderItem   `json:"items"`
}

// HeroSection is a homepage banner
type HeroSection struct {
	ID                  int64     `db:"id" json:"id"`
	Image               string    `db:"image" json:"image"`
	Headline            string    `db:"headline" json:"headline"`
	Subtitle            string    `db:"subtitle" json:"subtitle"`
	PrimaryButtonText   string    `db:"primary_button_text" json:"primary_button_text"`
	SecondaryButtonText string    `db:"secondary_button_text" json:"secondary_button_text"`
	SortOrder           int       `db:"sort_order" json:"sort_order"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// FeaturedProduct is a manually placed product on the storefront
type FeaturedProduct struct {
	ID        int64   `db:"id" json:"-"`
	SortOrder int     `db:"sort_order" json:"-"`
	Image     string  `db:"image" json:"image"`
	Product   Product `db:"product" json:"product"`
}

// FeaturedCategory is a manually placed category on the storefront
type FeaturedCategory struct {
	ID        int64    `db:"id" json:"-"`
	SortOrder int      `db:"sort_order" json:"-"`
	Image     string   `db:"image" json:"image"`
	Category  Category `db:"category" json:"category"`
}

// Product statuses
const (
	ProductStatusDraft     = "DRAFT"
	ProductStatusArchived  = "ARCHIVED"
	ProductStatusPublished = "PUBLISHED"
)

// Cart statuses
const (
	CartStatusActive    = "ACTIVE"
	CartStatusAbandoned = "ABANDONED"
)

// Order statuses
const (
	OrderStatusPending    = "PENDING"
	OrderStatusPaid       = "PAID"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusRefunded   = "REFUNDED"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
