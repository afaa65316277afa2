package wmsapi

import (
	"context"
	"io"
	"net/http"
)

const (
	purchaseOrdersPath = "/api/purchase-orders"
	salesOrdersPath    = "/api/sales-orders"
)

// ListPurchaseOrders returns every purchase order.
func (c *Client) ListPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	if err := c.do(ctx, request{op: "purchase_orders.list", method: http.MethodGet, path: purchaseOrdersPath}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePurchaseOrder creates a purchase order.
func (c *Client) CreatePurchaseOrder(ctx context.Context, po NewPurchaseOrder) (PurchaseOrder, error) {
	var out PurchaseOrder
	err := c.do(ctx, request{op: "purchase_orders.create", method: http.MethodPost, path: purchaseOrdersPath, body: po}, &out)
	return out, err
}

// ReceivePurchaseOrder marks a purchase order as received.
func (c *Client) ReceivePurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	var out PurchaseOrder
	err := c.do(ctx, request{op: "purchase_orders.receive", method: http.MethodPost, path: pathID(purchaseOrdersPath, id, "/receive")}, &out)
	return out, err
}

// ListSalesOrders returns every sales order.
func (c *Client) ListSalesOrders(ctx context.Context) ([]SalesOrder, error) {
	var out []SalesOrder
	if err := c.do(ctx, request{op: "sales_orders.list", method: http.MethodGet, path: salesOrdersPath}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSalesOrder creates a sales order.
func (c *Client) CreateSalesOrder(ctx context.Context, so NewSalesOrder) (SalesOrder, error) {
	var out SalesOrder
	err := c.do(ctx, request{op: "sales_orders.create", method: http.MethodPost, path: salesOrdersPath, body: so}, &out)
	return out, err
}

// ConfirmSalesOrder confirms a sales order; the server reduces stock.
func (c *Client) ConfirmSalesOrder(ctx context.Context, id int64) (SalesOrder, error) {
	var out SalesOrder
	err := c.do(ctx, request{op: "sales_orders.confirm", method: http.MethodPost, path: pathID(salesOrdersPath, id, "/confirm")}, &out)
	return out, err
}

// MarkOutOfStock cancels a sales order that cannot be fulfilled.
func (c *Client) MarkOutOfStock(ctx context.Context, id int64) (SalesOrder, error) {
	var out SalesOrder
	err := c.do(ctx, request{op: "sales_orders.out_of_stock", method: http.MethodPost, path: pathID(salesOrdersPath, id, "/out-of-stock")}, &out)
	return out, err
}

// Document is a binary payload returned by the API.
type Document struct {
	ContentType string
	Data        []byte
}

// PickingSlip downloads the picking slip document of a sales order.
func (c *Client) PickingSlip(ctx context.Context, id int64) (Document, error) {
	op := "sales_orders.picking_slip"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, path: pathID(salesOrdersPath, id, "/picking-slip")})
	if err != nil {
		return Document{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, &Error{Op: op, Kind: KindServer, Status: resp.StatusCode, Err: err}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return Document{ContentType: contentType, Data: data}, nil
}
