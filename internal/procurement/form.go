package procurement

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/wms-console/internal/orderlines"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

// MsgNoItems is shown when a purchase order has no usable item row.
const MsgNoItems = "Please add at least one item with product and quantity."

type orderForm struct {
	VendorName   string `validate:"required,max=255"`
	VendorEmail  string `validate:"omitempty,email,max=255"`
	ExpectedDate string
}

type parsedOrder struct {
	Form    orderForm
	Lines   orderlines.Parsed
	Payload wmsapi.NewPurchaseOrder
	Errors  map[string]string
}

func parseOrderForm(r *http.Request, v *validator.Validate) parsedOrder {
	form := orderForm{
		VendorName:   strings.TrimSpace(r.PostFormValue("vendor_name")),
		VendorEmail:  strings.TrimSpace(r.PostFormValue("vendor_email")),
		ExpectedDate: strings.TrimSpace(r.PostFormValue("expected_date")),
	}
	out := parsedOrder{Form: form, Lines: orderlines.Parse(r.PostForm)}
	out.Errors = out.Lines.Errors
	if out.Lines.Action != orderlines.ActionSubmit {
		return out
	}

	if err := v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.Tag() {
				case "required":
					out.Errors[fe.Field()] = "Vendor name is required."
				case "email":
					out.Errors[fe.Field()] = "Enter a valid email address."
				default:
					out.Errors[fe.Field()] = "Too long."
				}
			}
		}
	}
	out.Payload = wmsapi.NewPurchaseOrder{
		VendorName:  form.VendorName,
		VendorEmail: form.VendorEmail,
		Items:       out.Lines.Items,
	}
	if form.ExpectedDate != "" {
		d, err := wmsapi.ParseDate(form.ExpectedDate)
		if err != nil {
			out.Errors["ExpectedDate"] = "Use the format YYYY-MM-DD."
		} else {
			out.Payload.ExpectedDate = &d
		}
	}
	if len(out.Lines.Items) == 0 {
		out.Errors["items"] = MsgNoItems
	}
	return out
}
