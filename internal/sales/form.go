package sales

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/wms-console/internal/orderlines"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

// MsgNoItems is shown when a sales order has no usable item row.
const MsgNoItems = "At least one item with product & quantity is required."

type orderForm struct {
	CustomerName  string `validate:"required,max=255"`
	CustomerEmail string `validate:"omitempty,email,max=255"`
}

func parseOrderForm(r *http.Request, v *validator.Validate) (orderForm, orderlines.Parsed, wmsapi.NewSalesOrder) {
	form := orderForm{
		CustomerName:  strings.TrimSpace(r.PostFormValue("customer_name")),
		CustomerEmail: strings.TrimSpace(r.PostFormValue("customer_email")),
	}
	lines := orderlines.Parse(r.PostForm)
	if lines.Action != orderlines.ActionSubmit {
		return form, lines, wmsapi.NewSalesOrder{}
	}
	if err := v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				lines.Errors[fe.Field()] = fieldMessage(fe)
			}
		}
	}
	if len(lines.Items) == 0 {
		lines.Errors["items"] = MsgNoItems
	}
	return form, lines, wmsapi.NewSalesOrder{
		CustomerName:  form.CustomerName,
		CustomerEmail: form.CustomerEmail,
		Items:         lines.Items,
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Customer name is required."
	case "email":
		return "Enter a valid email address."
	}
	return "Too long."
}
