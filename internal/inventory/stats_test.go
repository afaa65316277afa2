package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]wmsapi.Product{
		{StockQuantity: 10, Price: 2.5},
		{StockQuantity: 4, Price: 1},
		{StockQuantity: 0, Price: 99},
	})
	assert.Equal(t, 3, s.TotalProducts)
	assert.Equal(t, 14, s.TotalStock)
	assert.Equal(t, 2, s.LowStock)
	assert.InDelta(t, 29.0, s.TotalValue, 0.0001)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestIsLowStockBoundary(t *testing.T) {
	assert.True(t, IsLowStock(wmsapi.Product{StockQuantity: LowStockThreshold - 1}))
	assert.False(t, IsLowStock(wmsapi.Product{StockQuantity: LowStockThreshold}))
}
