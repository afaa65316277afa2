package wmsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Product mirrors the server's product resource.
type Product struct {
	ID            int64   `json:"id,omitempty"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	StockQuantity int     `json:"stockQuantity"`
	Price         float64 `json:"price"`
	LocationCode  string  `json:"locationCode,omitempty"`
	Perishable    bool    `json:"perishable"`
	ExpiryDate    *Date   `json:"expiryDate,omitempty"`
}

// MovementType is the direction of a stock movement.
type MovementType string

const (
	// MovementIn increases stock.
	MovementIn MovementType = "IN"
	// MovementOut decreases stock.
	MovementOut MovementType = "OUT"
)

// StockMovement is an append-only audit row for a stock change.
type StockMovement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"productId"`
	ProductName string       `json:"productName,omitempty"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   Timestamp    `json:"createdAt"`
}

// OrderItem is a line on a purchase or sales order.
type OrderItem struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Purchase order statuses known to the console; the server may report others.
const (
	PurchaseOrderDraft    = "DRAFT"
	PurchaseOrderReceived = "RECEIVED"
)

// PurchaseOrder mirrors the server's purchase order resource.
type PurchaseOrder struct {
	ID           int64       `json:"id"`
	PONumber     string      `json:"poNumber"`
	VendorName   string      `json:"vendorName"`
	VendorEmail  string      `json:"vendorEmail,omitempty"`
	ExpectedDate *Date       `json:"expectedDate,omitempty"`
	Status       string      `json:"status"`
	CreatedAt    Timestamp   `json:"createdAt"`
	ReceivedAt   Timestamp   `json:"receivedAt"`
	Items        []OrderItem `json:"items"`
}

// NewPurchaseOrder is the create payload for purchase orders.
type NewPurchaseOrder struct {
	VendorName   string      `json:"vendorName"`
	VendorEmail  string      `json:"vendorEmail,omitempty"`
	ExpectedDate *Date       `json:"expectedDate"`
	Items        []OrderItem `json:"items"`
}

// Sales order statuses.
const (
	SalesOrderNew       = "NEW"
	SalesOrderConfirmed = "CONFIRMED"
	SalesOrderCancelled = "CANCELLED"
	SalesOrderShipped   = "SHIPPED"
	SalesOrderCompleted = "COMPLETED"
)

// SalesOrder mirrors the server's sales order resource.
type SalesOrder struct {
	ID            int64       `json:"id"`
	SONumber      string      `json:"soNumber"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail,omitempty"`
	Status        string      `json:"status"`
	CreatedAt     Timestamp   `json:"createdAt"`
	ConfirmedAt   Timestamp   `json:"confirmedAt"`
	Items         []OrderItem `json:"items"`
}

// NewSalesOrder is the create payload for sales orders.
type NewSalesOrder struct {
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail,omitempty"`
	Items         []OrderItem `json:"items"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by the login endpoint; Token is empty on rejection.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Registration is the register payload.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// timestampLayouts covers zone-less server timestamps and RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Timestamp decodes the server's date-time values, which usually carry no zone.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("wmsapi: unrecognised timestamp %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}

// Date is a calendar date serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: parsed}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return fmt.Errorf("wmsapi: unrecognised date %q", raw)
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}
