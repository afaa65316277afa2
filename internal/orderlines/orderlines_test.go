package orderlines

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

func rowsForm(rows ...[3]string) url.Values {
	form := url.Values{}
	for _, r := range rows {
		form.Add(FieldProduct, r[0])
		form.Add(FieldQuantity, r[1])
		form.Add(FieldUnitPrice, r[2])
	}
	return form
}

func TestParseFiltersIncompleteRows(t *testing.T) {
	parsed := Parse(rowsForm(
		[3]string{"3", "2", "1.50"},
		[3]string{"", "4", ""},
		[3]string{"5", "", "9"},
		[3]string{"6", "0", ""},
		[3]string{"7", "1", ""},
	))

	assert.Equal(t, ActionSubmit, parsed.Action)
	assert.Empty(t, parsed.Errors)
	require.Len(t, parsed.Items, 2)
	assert.Equal(t, wmsapi.OrderItem{ProductID: 3, Quantity: 2, UnitPrice: 1.5}, parsed.Items[0])
	assert.Equal(t, wmsapi.OrderItem{ProductID: 7, Quantity: 1}, parsed.Items[1])
	assert.Len(t, parsed.Rows, 5)
}

func TestParseReportsNonNumericInput(t *testing.T) {
	parsed := Parse(rowsForm([3]string{"3", "two", "abc"}))

	assert.Empty(t, parsed.Items)
	assert.Contains(t, parsed.Errors, "items.0.quantity")
	assert.Contains(t, parsed.Errors, "items.0.unit_price")
}

func TestParseNoValidRows(t *testing.T) {
	parsed := Parse(rowsForm([3]string{"", "", ""}))
	assert.Empty(t, parsed.Items)
	assert.Empty(t, parsed.Errors)

	parsed = Parse(url.Values{})
	assert.Empty(t, parsed.Items)
	assert.Equal(t, Blank(), parsed.Rows)
}

func TestParseAddAndRemoveRows(t *testing.T) {
	form := rowsForm([3]string{"1", "1", ""}, [3]string{"2", "2", ""})
	form.Set(FieldAction, "add_row")
	parsed := Parse(form)
	assert.Equal(t, ActionAddRow, parsed.Action)
	assert.Len(t, parsed.Rows, 3)
	assert.Empty(t, parsed.Items)

	form = rowsForm([3]string{"1", "1", ""}, [3]string{"2", "2", ""})
	form.Set(FieldRemoveRow, "0")
	parsed = Parse(form)
	assert.Equal(t, ActionRemoveRow, parsed.Action)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "2", parsed.Rows[0].ProductID)

	form = rowsForm([3]string{"1", "1", ""})
	form.Set(FieldRemoveRow, "0")
	assert.Equal(t, Blank(), Parse(form).Rows)
}

func TestTotal(t *testing.T) {
	assert.Zero(t, Total(nil))
	assert.InDelta(t, 13.0, Total([]wmsapi.OrderItem{
		{Quantity: 2, UnitPrice: 1.5},
		{Quantity: 4, UnitPrice: 2.5},
	}), 1e-9)
}
