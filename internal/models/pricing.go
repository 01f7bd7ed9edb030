package models

import "time"

// PromoCode is matched case-insensitively on Code. MaxUses of zero
// means unlimited.
type PromoCode struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	EventID          *int64     `json:"eventId,omitempty"`
	DiscountType     string     `json:"discountType"`
	DiscountValue    int64      `json:"discountValue"`
	MaxUses          int        `json:"maxUses"`
	CurrentUses      int        `json:"currentUses"`
	ValidFrom        *time.Time `json:"validFrom,omitempty"`
	ValidUntil       *time.Time `json:"validUntil,omitempty"`
	MinPurchaseCents int64      `json:"minPurchaseCents"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// PromoCodeInput creates a promo code. DiscountValue is a percent for
// percentage codes and cents for fixed codes.
type PromoCodeInput struct {
	Code             string     `json:"code" validate:"required,max=64"`
	EventID          *int64     `json:"eventId"`
	DiscountType     string     `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue    int64      `json:"discountValue" validate:"required,gt=0"`
	MaxUses          int        `json:"maxUses" validate:"gte=0"`
	ValidFrom        *time.Time `json:"validFrom"`
	ValidUntil       *time.Time `json:"validUntil"`
	MinPurchaseCents int64      `json:"minPurchaseCents" validate:"gte=0"`
}

// PromoValidation is the outcome of checking a code against an order
// amount without redeeming it.
type PromoValidation struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	Reason         string `json:"reason,omitempty"`
	DiscountCents  int64  `json:"-"`
	DiscountAmount string `json:"discountAmount"`
	FinalAmount    string `json:"finalAmount"`
}

// BulkDiscount is one quantity tier for an event. The highest
// min_quantity satisfied by the purchase wins; tiers never stack.
type BulkDiscount struct {
	ID            int64     `json:"id"`
	EventID       int64     `json:"eventId"`
	MinQuantity   int       `json:"minQuantity"`
	DiscountType  string    `json:"discountType"`
	DiscountValue int64     `json:"discountValue"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BulkDiscountInput creates a bulk discount tier.
type BulkDiscountInput struct {
	EventID       int64  `json:"eventId" validate:"required,gt=0"`
	MinQuantity   int    `json:"minQuantity" validate:"required,gt=1"`
	DiscountType  string `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue int64  `json:"discountValue" validate:"required,gt=0"`
}

// TaxRule matches on (country, state) with a country-level fallback at
// state = "".
type TaxRule struct {
	ID        int64     `json:"id"`
	Country   string    `json:"country"`
	State     string    `json:"state"`
	TaxType   string    `json:"taxType"`
	TaxRate   string    `json:"taxRate"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaxRuleInput creates a tax rule. TaxRate is a decimal string: a
// percent for percentage rules, an amount for fixed rules.
type TaxRuleInput struct {
	Country string `json:"country" validate:"required,len=2"`
	State   string `json:"state" validate:"max=64"`
	TaxType string `json:"taxType" validate:"required,oneof=percentage fixed"`
	TaxRate string `json:"taxRate" validate:"required"`
}

// TaxCalculation is the immutable per-order tax record written once at
// confirmation.
type TaxCalculation struct {
	ID            int64     `json:"id"`
	OrderID       string    `json:"orderId"`
	TaxRuleID     *int64    `json:"taxRuleId,omitempty"`
	SubtotalCents int64     `json:"subtotalCents"`
	TaxCents      int64     `json:"taxCents"`
	TotalCents    int64     `json:"totalCents"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RefundPolicy governs whether and how much of a ticket is refunded.
type RefundPolicy struct {
	EventID            int64     `json:"eventId"`
	RefundAllowed      bool      `json:"refundAllowed"`
	RefundBeforeHours  int       `json:"refundBeforeHours"`
	RefundPercentage   string    `json:"refundPercentage"`
	ProcessingFeeCents int64     `json:"processingFeeCents"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// RefundPolicyInput upserts the policy for an event.
type RefundPolicyInput struct {
	EventID            int64  `json:"eventId" validate:"required,gt=0"`
	RefundAllowed      bool   `json:"refundAllowed"`
	RefundBeforeHours  int    `json:"refundBeforeHours" validate:"gte=0"`
	RefundPercentage   string `json:"refundPercentage" validate:"required"`
	ProcessingFeeCents int64  `json:"processingFeeCents" validate:"gte=0"`
}

// Refund records one ticket refund. RefundCents is never negative.
type Refund struct {
	ID                 string    `json:"id"`
	TicketID           string    `json:"ticketId"`
	OrderID            string    `json:"orderId"`
	OriginalCents      int64     `json:"originalCents"`
	RefundCents        int64     `json:"refundCents"`
	RefundAmount       string    `json:"refundAmount"`
	ProcessingFeeCents int64     `json:"processingFeeCents"`
	Reason             string    `json:"reason"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

// GroupBooking tracks a named group purchase window for an event.
type GroupBooking struct {
	ID                  string    `json:"id"`
	EventID             int64     `json:"eventId"`
	OrganizerID         int64     `json:"organizerId"`
	GroupName           string    `json:"groupName"`
	MinParticipants     int       `json:"minParticipants"`
	MaxParticipants     int       `json:"maxParticipants"`
	CurrentParticipants int       `json:"currentParticipants"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// GroupBookingInput creates a group booking.
type GroupBookingInput struct {
	EventID         int64  `json:"eventId" validate:"required,gt=0"`
	GroupName       string `json:"groupName" validate:"required,max=200"`
	MinParticipants int    `json:"minParticipants" validate:"required,gt=0"`
	MaxParticipants int    `json:"maxParticipants" validate:"required,gt=0"`
}
