package api

import (
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/shopspring/decimal"
)

// money renders an amount with two decimals, e.g. "19.90"
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type cartVariantView struct {
	ID           int64             `json:"id"`
	SKU          string            `json:"sku"`
	ProductTitle string            `json:"product_title"`
	ProductSlug  string            `json:"product_slug"`
	Price        string            `json:"price"`
	Image        *string           `json:"image"`
	Attributes   models.Attributes `json:"attributes"`
}

type cartItemView struct {
	ID         int64           `json:"id"`
	Variant    cartVariantView `json:"variant"`
	Quantity   int             `json:"quantity"`
	TotalPrice string          `json:"total_price"`
}

type cartView struct {
	ID         int64          `json:"id"`
	SessionKey string         `json:"session_key"`
	Status     string         `json:"status"`
	Items      []cartItemView `json:"items"`
	TotalPrice string         `json:"total_price"`
	TotalItems int            `json:"total_items"`
}

func newCartView(v *service.CartView) cartView {
	out := cartView{
		ID:         v.Cart.ID,
		SessionKey: v.Cart.SessionKey,
		Status:     v.Cart.Status,
		Items:      make([]cartItemView, 0, len(v.Lines)),
		TotalPrice: money(v.TotalPrice),
		TotalItems: v.TotalItems,
	}

	for _, line := range v.Lines {
		var image *string
		switch {
		case line.VariantImage != "":
			img := line.VariantImage
			image = &img
		case line.ProductImage != "":
			img := line.ProductImage
			image = &img
		}

		out.Items = append(out.Items, cartItemView{
			ID: line.ItemID,
			Variant: cartVariantView{
				ID:           line.VariantID,
				SKU:          line.SKU,
				ProductTitle: line.ProductTitle,
				ProductSlug:  line.ProductSlug,
				Price:        money(line.Price),
				Image:        image,
				Attributes:   line.Attributes,
			},
			Quantity:   line.Quantity,
			TotalPrice: money(line.LineTotal()),
		})
	}
	return out
}

type addressView struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

func newAddressView(a *models.OrderAddress) *addressView {
	if a == nil {
		return nil
	}
	return &addressView{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Email:        a.Email,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}

type orderItemView struct {
	ProductSKU  string            `json:"product_sku"`
	ProductName string            `json:"product_name"`
	Attributes  models.Attributes `json:"attributes"`
	Quantity    int               `json:"quantity"`
	UnitPrice   string            `json:"unit_price"`
	TotalPrice  string            `json:"total_price"`
}

type orderView struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	Email           string          `json:"email"`
	Status          string          `json:"status"`
	TotalAmount     string          `json:"total_amount"`
	IsPaid          bool            `json:"is_paid"`
	ShippingAddress *addressView    `json:"shipping_address"`
	BillingAddress  *addressView    `json:"billing_address"`
	Items           []orderItemView `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

func newOrderView(d *models.OrderDetail) orderView {
	out := orderView{
		ID:              d.ID,
		OrderNumber:     d.OrderNumber,
		Email:           d.Email,
		Status:          d.Status,
		TotalAmount:     money(d.TotalAmount),
		IsPaid:          d.IsPaid,
		ShippingAddress: newAddressView(&d.ShippingAddress),
		BillingAddress:  newAddressView(d.BillingAddress),
		Items:           make([]orderItemView, 0, len(d.Items)),
		CreatedAt:       d.CreatedAt,
	}
	for _, item := range d.Items {
		out.Items = append(out.Items, orderItemView{
			ProductSKU:  item.ProductSKU,
			ProductName: item.ProductName,
			Attributes:  item.Attributes,
			Quantity:    item.Quantity,
			UnitPrice:   money(item.UnitPrice),
			TotalPrice:  money(item.TotalPrice),
		})
	}
	return out
}

type productView struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	PriceStart string `json:"price_start"`
	Thumbnail  string `json:"thumbnail"`
}

func newProductView(p models.Product) productView {
	return productView{
		ID:         p.ID,
		Title:      p.Title,
		Slug:       p.Slug,
		PriceStart: money(p.PriceStart),
		Thumbnail:  p.Thumbnail,
	}
}

type variantView struct {
	ID             int64             `json:"id"`
	SKU            string            `json:"sku"`
	Price          string            `json:"price"`
	CompareAtPrice *string           `json:"compare_at_price"`
	StockQuantity  int               `json:"stock_quantity"`
	Color          string            `json:"color"`
	Image          string            `json:"image"`
	Attributes     models.Attributes `json:"attributes"`
}

type categoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type categoryDepthView struct {
	categoryRef
	Depth int `json:"depth"`
}

type productDetailView struct {
	productView
	Variants   []variantView `json:"variants"`
	Gallery    []string      `json:"gallery"`
	Categories []categoryRef `json:"categories"`
}

func newProductDetailView(d *models.ProductDetail) productDetailView {
	out := productDetailView{
		productView: newProductView(d.Product),
		Variants:    make([]variantView, 0, len(d.Variants)),
		Gallery:     make([]string, 0, len(d.Gallery)),
		Categories:  make([]categoryRef, 0, len(d.Categories)),
	}
	for _, v := range d.Variants {
		var compareAt *string
		if v.CompareAtPrice.Valid {
			s := money(v.CompareAtPrice.Decimal)
			compareAt = &s
		}
		out.Variants = append(out.Variants, variantView{
			ID:             v.ID,
			SKU:            v.SKU,
			Price:          money(v.Price),
			CompareAtPrice: compareAt,
			StockQuantity:  v.StockQuantity,
			Color:          v.Color,
			Image:          v.Image,
			Attributes:     v.Attributes,
		})
	}
	for _, img := range d.Gallery {
		out.Gallery = append(out.Gallery, img.Image)
	}
	for _, c := range d.Categories {
		out.Categories = append(out.Categories, categoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	return out
}

type productPageView struct {
	Count    int           `json:"count"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Results  []productView `json:"results"`
}

func newProductPageView(p *service.ProductPage) productPageView {
	out := productPageView{
		Count:    p.Count,
		Page:     p.Page,
		PageSize: p.PageSize,
		Results:  make([]productView, 0, len(p.Results)),
	}
	for _, product := range p.Results {
		out.Results = append(out.Results, newProductView(product))
	}
	return out
}

type categoryNodeView struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description string             `json:"description"`
	Children    []categoryNodeView `json:"children"`
}

func newCategoryTreeView(nodes []*models.Category) []categoryNodeView {
	out := make([]categoryNodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, categoryNodeView{
			ID:          n.ID,
			Name:        n.Name,
			Slug:        n.Slug,
			Description: n.Description,
			Children:    newCategoryTreeView(n.Children),
		})
	}
	return out
}

type featuredProductView struct {
	Image   string      `json:"image"`
	Product productView `json:"product"`
}

type featuredCategoryView struct {
	Image    string      `json:"image"`
	Category categoryRef `json:"category"`
}
