package models

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
	OrderStatusExpired   = "expired"
)

const (
	TicketStatusActive    = "active"
	TicketStatusUsed      = "used"
	TicketStatusCancelled = "cancelled"
	TicketStatusExpired   = "expired"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

const (
	TaxTypePercentage = "percentage"
	TaxTypeFixed      = "fixed"
)

const (
	RefundStatusPending   = "pending"
	RefundStatusProcessed = "processed"
	RefundStatusRejected  = "rejected"
)

const (
	GroupBookingStatusOpen      = "open"
	GroupBookingStatusCompleted = "completed"
	GroupBookingStatusCancelled = "cancelled"
)

// TicketType is the per-event inventory unit. quantity_sold is mutated
// only through the inventory ledger's reserve/release operations.
type TicketType struct {
	ID           string    `json:"id"`
	EventID      int64     `json:"eventId"`
	Name         string    `json:"name"`
	PriceCents   int64     `json:"priceCents"`
	Price        string    `json:"price"`
	Currency     string    `json:"currency"`
	Quantity     int       `json:"quantity"`
	QuantitySold int       `json:"quantitySold"`
	Available    int       `json:"available"`
	MinPurchase  int       `json:"minPurchase"`
	MaxPurchase  int       `json:"maxPurchase"`
	SaleStartsAt time.Time `json:"saleStartsAt"`
	SaleEndsAt   time.Time `json:"saleEndsAt"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TicketTypeInput carries organizer-supplied fields for a new ticket type.
type TicketTypeInput struct {
	EventID      int64     `json:"eventId" validate:"required,gt=0"`
	Name         string    `json:"name" validate:"required,max=200"`
	PriceCents   int64     `json:"priceCents" validate:"gte=0"`
	Currency     string    `json:"currency" validate:"omitempty,len=3"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
	MinPurchase  int       `json:"minPurchase" validate:"gte=0"`
	MaxPurchase  int       `json:"maxPurchase" validate:"gte=0"`
	SaleStartsAt time.Time `json:"saleStartsAt" validate:"required"`
	SaleEndsAt   time.Time `json:"saleEndsAt" validate:"required"`
}

// TicketTypePatch updates a ticket type in place. Capacity and sold
// counters are deliberately absent; those move only through the ledger.
type TicketTypePatch struct {
	Name         *string    `json:"name"`
	PriceCents   *int64     `json:"priceCents"`
	MinPurchase  *int       `json:"minPurchase"`
	MaxPurchase  *int       `json:"maxPurchase"`
	SaleStartsAt *time.Time `json:"saleStartsAt"`
	SaleEndsAt   *time.Time `json:"saleEndsAt"`
	IsActive     *bool      `json:"isActive"`
}

// Ticket is one admission unit. QRPayload and SecurityHash are derived
// once at issuance and never rewritten.
type Ticket struct {
	ID            string     `json:"id"`
	TicketTypeID  string     `json:"ticketTypeId"`
	OrderID       string     `json:"orderId"`
	EventID       int64      `json:"eventId"`
	AttendeeName  string     `json:"attendeeName"`
	AttendeeEmail string     `json:"attendeeEmail"`
	QRPayload     string     `json:"qrPayload"`
	SecurityHash  string     `json:"securityHash"`
	Status        string     `json:"status"`
	CheckedInAt   *time.Time `json:"checkedInAt,omitempty"`
	CheckedInBy   *int64     `json:"checkedInBy,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Order is the purchase record that owns its tickets.
type Order struct {
	ID                string     `json:"id"`
	UserID            int64      `json:"userId"`
	EventID           int64      `json:"eventId"`
	Status            string     `json:"status"`
	PaymentID         string     `json:"paymentId,omitempty"`
	AttendeeName      string     `json:"attendeeName"`
	AttendeeEmail     string     `json:"attendeeEmail"`
	PromoCodeID       *string    `json:"promoCodeId,omitempty"`
	TaxRuleID         *int64     `json:"taxRuleId,omitempty"`
	SubtotalCents     int64      `json:"subtotalCents"`
	PromoDiscountCents int64     `json:"promoDiscountCents"`
	BulkDiscountCents int64      `json:"bulkDiscountCents"`
	TaxCents          int64      `json:"taxCents"`
	TotalCents        int64      `json:"totalCents"`
	TotalAmount       string     `json:"totalAmount"`
	Currency          string     `json:"currency"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// OrderItem holds one ticket-type line of an order.
// Subtotal is always quantity times unit price.
type OrderItem struct {
	ID             int64     `json:"id"`
	OrderID        string    `json:"orderId"`
	TicketTypeID   string    `json:"ticketTypeId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	SubtotalCents  int64     `json:"subtotalCents"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OrderItemSelection is the caller's requested line on order creation.
type OrderItemSelection struct {
	TicketTypeID string `json:"ticketTypeId" validate:"required,uuid4"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderParams collects everything the pricing pipeline needs up
// front: the selections, an optional promo code and the tax locale.
type CreateOrderParams struct {
	UserID        int64
	EventID       int64
	AttendeeName  string
	AttendeeEmail string
	Items         []OrderItemSelection
	PromoCode     string
	Country       string
	State         string
}

// OrderDetail is an order with its lines and any issued tickets.
type OrderDetail struct {
	Order   Order       `json:"order"`
	Items   []OrderItem `json:"items"`
	Tickets []Ticket    `json:"tickets,omitempty"`
}

// PurchaseResult reports ticket issuance after payment confirmation.
type PurchaseResult struct {
	Order            Order    `json:"order"`
	Tickets          []Ticket `json:"tickets"`
	TicketsGenerated int      `json:"ticketsGenerated"`
}

// ValidationResult is returned by the ticket validator. Status may be
// the derived "expired" value, which is never persisted.
type ValidationResult struct {
	Valid        bool   `json:"valid"`
	TicketID     string `json:"ticketId"`
	Status       string `json:"status"`
	AttendeeName string `json:"attendeeName"`
}
