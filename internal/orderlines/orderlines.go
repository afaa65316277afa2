// Package orderlines parses the repeating item rows of purchase and sales order forms.
package orderlines

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

// Form field names shared by the order templates.
const (
	FieldProduct   = "item_product"
	FieldQuantity  = "item_quantity"
	FieldUnitPrice = "item_unit_price"
	FieldAction    = "action"
	FieldRemoveRow = "remove_row"
)

// Action is what the submit button asked for.
type Action int

const (
	// ActionSubmit creates the order.
	ActionSubmit Action = iota
	// ActionAddRow appends a blank row and re-renders.
	ActionAddRow
	// ActionRemoveRow drops one row and re-renders.
	ActionRemoveRow
)

// Row is one item row exactly as typed, kept for re-rendering.
type Row struct {
	ProductID string
	Quantity  string
	UnitPrice string
}

// Parsed is the outcome of reading item rows from a form.
type Parsed struct {
	Action Action
	Rows   []Row
	Items  []wmsapi.OrderItem
	Errors map[string]string
}

// Blank returns the single empty row a fresh form starts with.
func Blank() []Row {
	return []Row{{}}
}

// Parse reads the parallel item arrays. A row becomes an item only when it names a
// product and a positive quantity; other rows are skipped. Text that is not a number
// is reported as a field error keyed "items.<index>.<field>". A blank unit price is 0.
func Parse(form url.Values) Parsed {
	products := form[FieldProduct]
	quantities := form[FieldQuantity]
	prices := form[FieldUnitPrice]

	n := max(len(products), len(quantities), len(prices))
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, Row{
			ProductID: strings.TrimSpace(at(products, i)),
			Quantity:  strings.TrimSpace(at(quantities, i)),
			UnitPrice: strings.TrimSpace(at(prices, i)),
		})
	}

	out := Parsed{Action: ActionSubmit, Errors: make(map[string]string)}
	switch {
	case form.Get(FieldAction) == "add_row":
		out.Action = ActionAddRow
		rows = append(rows, Row{})
	case form.Has(FieldRemoveRow):
		out.Action = ActionRemoveRow
		if idx, err := strconv.Atoi(form.Get(FieldRemoveRow)); err == nil && idx >= 0 && idx < len(rows) {
			rows = append(rows[:idx], rows[idx+1:]...)
		}
	}
	if len(rows) == 0 {
		rows = Blank()
	}
	out.Rows = rows
	if out.Action != ActionSubmit {
		return out
	}

	for i, row := range rows {
		item, ok := parseRow(i, row, out.Errors)
		if ok {
			out.Items = append(out.Items, item)
		}
	}
	return out
}

func parseRow(i int, row Row, errs map[string]string) (wmsapi.OrderItem, bool) {
	var (
		item  wmsapi.OrderItem
		valid = true
	)
	if row.ProductID != "" {
		id, err := strconv.ParseInt(row.ProductID, 10, 64)
		if err != nil || id <= 0 {
			errs[key(i, "product")] = "Choose a product."
			valid = false
		}
		item.ProductID = id
	}
	if row.Quantity != "" {
		qty, err := strconv.Atoi(row.Quantity)
		if err != nil {
			errs[key(i, "quantity")] = "Quantity must be a whole number."
			valid = false
		}
		item.Quantity = qty
	}
	if row.UnitPrice != "" {
		price, err := strconv.ParseFloat(row.UnitPrice, 64)
		if err != nil || price < 0 {
			errs[key(i, "unit_price")] = "Unit price must be a number of at least 0."
			valid = false
		}
		item.UnitPrice = price
	}
	if !valid {
		return wmsapi.OrderItem{}, false
	}
	return item, item.ProductID > 0 && item.Quantity > 0
}

// Total is Σ quantity × unit price.
func Total(items []wmsapi.OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

func key(i int, field string) string {
	return fmt.Sprintf("items.%d.%s", i, field)
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
