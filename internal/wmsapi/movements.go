package wmsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const movementsPath = "/api/stock-movements"

// ListMovements returns the full movement log.
func (c *Client) ListMovements(ctx context.Context) ([]StockMovement, error) {
	var out []StockMovement
	if err := c.do(ctx, request{op: "movements.list", method: http.MethodGet, path: movementsPath}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductMovements returns the movement history of one product.
func (c *Client) ProductMovements(ctx context.Context, productID int64) ([]StockMovement, error) {
	var out []StockMovement
	err := c.do(ctx, request{op: "movements.product", method: http.MethodGet, path: pathID(movementsPath+"/product", productID, "")}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Adjustment is a manual stock change.
type Adjustment struct {
	Type      MovementType
	ProductID int64
	Quantity  int
	Reason    string
}

// AdjustStock posts an IN or OUT movement. Parameters travel as query values.
func (c *Client) AdjustStock(ctx context.Context, adj Adjustment) (StockMovement, error) {
	var path string
	switch adj.Type {
	case MovementIn:
		path = movementsPath + "/in"
	case MovementOut:
		path = movementsPath + "/out"
	default:
		return StockMovement{}, &Error{Op: "movements.adjust", Kind: KindServer, Err: fmt.Errorf("unknown movement type %q", adj.Type)}
	}
	query := url.Values{}
	query.Set("productId", strconv.FormatInt(adj.ProductID, 10))
	query.Set("quantity", strconv.Itoa(adj.Quantity))
	if adj.Reason != "" {
		query.Set("reason", adj.Reason)
	}
	var out StockMovement
	err := c.do(ctx, request{op: "movements.adjust", method: http.MethodPost, path: path, query: query}, &out)
	return out, err
}
