package inventory

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

// productForm keeps the typed text of the product editor.
type productForm struct {
	Name          string `validate:"required,max=255"`
	SKU           string `validate:"required,max=64"`
	StockQuantity string
	Price         string
	LocationCode  string `validate:"max=64"`
	Perishable    bool
	ExpiryDate    string
}

func productFormFrom(p wmsapi.Product) productForm {
	form := productForm{
		Name:          p.Name,
		SKU:           p.SKU,
		StockQuantity: strconv.Itoa(p.StockQuantity),
		Price:         strconv.FormatFloat(p.Price, 'f', -1, 64),
		LocationCode:  p.LocationCode,
		Perishable:    p.Perishable,
	}
	if p.ExpiryDate != nil {
		form.ExpiryDate = p.ExpiryDate.String()
	}
	return form
}

// parseProductForm turns the submitted editor into a product. Blank quantity and price
// mean 0; text that is not a number is a field error.
func parseProductForm(r *http.Request, v *validator.Validate) (productForm, wmsapi.Product, map[string]string) {
	form := productForm{
		Name:          strings.TrimSpace(r.PostFormValue("name")),
		SKU:           strings.TrimSpace(r.PostFormValue("sku")),
		StockQuantity: strings.TrimSpace(r.PostFormValue("stock_quantity")),
		Price:         strings.TrimSpace(r.PostFormValue("price")),
		LocationCode:  strings.TrimSpace(r.PostFormValue("location_code")),
		Perishable:    r.PostFormValue("perishable") != "",
		ExpiryDate:    strings.TrimSpace(r.PostFormValue("expiry_date")),
	}
	errs := make(map[string]string)
	if err := v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					errs[fe.Field()] = "This field is required."
				} else {
					errs[fe.Field()] = "Too long."
				}
			}
		}
	}

	p := wmsapi.Product{
		Name:         form.Name,
		SKU:          form.SKU,
		LocationCode: form.LocationCode,
		Perishable:   form.Perishable,
	}
	if form.StockQuantity != "" {
		qty, err := strconv.Atoi(form.StockQuantity)
		switch {
		case err != nil:
			errs["StockQuantity"] = "Stock quantity must be a whole number."
		case qty < 0:
			errs["StockQuantity"] = "Stock quantity cannot be negative."
		default:
			p.StockQuantity = qty
		}
	}
	if form.Price != "" {
		price, err := strconv.ParseFloat(form.Price, 64)
		switch {
		case err != nil:
			errs["Price"] = "Price must be a number."
		case price < 0:
			errs["Price"] = "Price cannot be negative."
		default:
			p.Price = price
		}
	}
	if form.ExpiryDate != "" {
		d, err := wmsapi.ParseDate(form.ExpiryDate)
		if err != nil {
			errs["ExpiryDate"] = "Use the format YYYY-MM-DD."
		} else {
			p.ExpiryDate = &d
		}
	}
	return form, p, errs
}

// movementForm is the stock adjustment panel.
type movementForm struct {
	ProductID string
	Type      string
	Quantity  string
	Reason    string
}

func parseMovementForm(r *http.Request) (movementForm, wmsapi.Adjustment, map[string]string) {
	form := movementForm{
		ProductID: strings.TrimSpace(r.PostFormValue("product_id")),
		Type:      strings.ToUpper(strings.TrimSpace(r.PostFormValue("type"))),
		Quantity:  strings.TrimSpace(r.PostFormValue("quantity")),
		Reason:    strings.TrimSpace(r.PostFormValue("reason")),
	}
	errs := make(map[string]string)
	adj := wmsapi.Adjustment{Reason: form.Reason}

	if id, err := strconv.ParseInt(form.ProductID, 10, 64); err == nil && id > 0 {
		adj.ProductID = id
	} else {
		errs["ProductID"] = "Select a product first."
	}
	switch wmsapi.MovementType(form.Type) {
	case wmsapi.MovementIn, wmsapi.MovementOut:
		adj.Type = wmsapi.MovementType(form.Type)
	default:
		errs["Type"] = "Choose IN or OUT."
	}
	qty, err := strconv.Atoi(form.Quantity)
	switch {
	case form.Quantity == "":
		errs["Quantity"] = "Quantity is required."
	case err != nil:
		errs["Quantity"] = "Quantity must be a whole number."
	case qty <= 0:
		errs["Quantity"] = "Quantity must be greater than 0."
	default:
		adj.Quantity = qty
	}
	return form, adj, errs
}
