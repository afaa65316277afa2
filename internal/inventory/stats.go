package inventory

import "github.com/odyssey-erp/wms-console/internal/wmsapi"

// LowStockThreshold marks products with fewer units as low on stock.
const LowStockThreshold = 5

// Summary is the dashboard header, derived from the product list on every render.
type Summary struct {
	TotalProducts int
	TotalStock    int
	LowStock      int
	TotalValue    float64
}

// Summarize computes the dashboard figures.
func Summarize(products []wmsapi.Product) Summary {
	s := Summary{TotalProducts: len(products)}
	for _, p := range products {
		s.TotalStock += p.StockQuantity
		s.TotalValue += float64(p.StockQuantity) * p.Price
		if IsLowStock(p) {
			s.LowStock++
		}
	}
	return s
}

// IsLowStock reports whether p is below LowStockThreshold.
func IsLowStock(p wmsapi.Product) bool {
	return p.StockQuantity < LowStockThreshold
}
