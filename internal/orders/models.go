package orders

import "time"

type Product struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url,omitempty"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	Reserved   int       `json:"reserved"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Available is stock not yet committed to an open order. Never negative.
func (p Product) Available() int {
	if n := p.Stock - p.Reserved; n > 0 {
		return n
	}
	return 0
}

// Ref is the display projection attached to order lines after commit.
func (p Product) Ref() *ProductRef {
	return &ProductRef{Name: p.Name, ImageURL: p.ImageURL, PriceCents: p.PriceCents}
}

const CartStatusActive = "active"

type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Status    string     `json:"status"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PriceCents on a cart line is the price seen when the item was added.
// It is for display only; placement commits the live product price.
type CartItem struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Qty        int       `json:"qty"`
	PriceCents int64     `json:"price_cents"`
	AddedAt    time.Time `json:"added_at"`
}

func (c *Cart) SubtotalCents() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.PriceCents * int64(it.Qty)
	}
	return sum
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Qty
	}
	return n
}

// ItemIndex returns the position of productID's line, or -1.
func (c *Cart) ItemIndex(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]CartItem(nil), c.Items...)
	return &cp
}

type Order struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	Items             []OrderItem   `json:"items"`
	TotalCents        int64         `json:"total_cents"`
	Status            Status        `json:"status"`
	DeliveryAddress   string        `json:"delivery_address"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	PaymentIntentID   string        `json:"payment_intent_id,omitempty"`
	EstimatedDelivery time.Time     `json:"estimated_delivery_date"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type OrderItem struct {
	ProductID  string      `json:"product_id"`
	Qty        int         `json:"qty"`
	PriceCents int64       `json:"price_cents"`
	AddedAt    time.Time   `json:"added_at"`
	Product    *ProductRef `json:"product,omitempty"`
}

type ProductRef struct {
	Name       string `json:"name"`
	ImageURL   string `json:"image_url,omitempty"`
	PriceCents int64  `json:"price_cents"`
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp
}

// Validate checks the structural invariants every persisted order must hold.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "order must contain at least one line item"}
	}
	if o.TotalCents < 0 {
		return &ValidationError{Field: "total", Reason: "total amount cannot be negative"}
	}
	var sum int64
	for _, it := range o.Items {
		if it.Qty < 1 {
			return &ValidationError{Field: "items", Reason: "quantity must be at least 1"}
		}
		sum += it.PriceCents * int64(it.Qty)
	}
	if sum != o.TotalCents {
		return &ValidationError{Field: "total", Reason: "total does not match line items"}
	}
	return nil
}
