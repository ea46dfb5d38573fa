package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

type templateSet struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// Renderer turns an order into the email for a notification kind.
type Renderer struct {
	storeURL string
	sets     map[enums.NotificationKind]templateSet
}

var templateFiles = map[enums.NotificationKind]struct {
	subject string
	name    string
}{
	enums.NotificationOrderConfirmation: {subject: "Order Confirmation - %s", name: "confirmation"},
	enums.NotificationOrderFailure:      {subject: "Order Payment Failed - %s", name: "failure"},
	enums.NotificationOrderRefund:       {subject: "Order Refunded - %s", name: "refund"},
}

func NewRenderer(storeURL string) (*Renderer, error) {
	r := &Renderer{
		storeURL: storeURL,
		sets:     make(map[enums.NotificationKind]templateSet, len(templateFiles)),
	}
	for kind, file := range templateFiles {
		html, err := htmltemplate.ParseFS(templateFS, "templates/layout.html", "templates/"+file.name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", file.name, err)
		}
		text, err := texttemplate.ParseFS(templateFS, "templates/"+file.name+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", file.name, err)
		}
		r.sets[kind] = templateSet{subject: file.subject, html: html, text: text}
	}
	return r, nil
}

type emailData struct {
	Subject      string
	StoreURL     string
	CustomerName string
	OrderNumber  string
	OrderDate    string
	ProductName  string
	Quantity     string
	UnitPrice    string
	Variants     string
	Subtotal     string
	Tax          string
	Total        string
	CardLast4    string
	Reason       string
	Street       string
	City         string
	State        string
	ZipCode      string
	Country      string
}

// Render builds the message for order. order.Customer must be loaded.
func (r *Renderer) Render(order *models.Order, kind enums.NotificationKind) (Message, error) {
	set, ok := r.sets[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	if order == nil || order.Customer == nil {
		return Message{}, fmt.Errorf("order customer required")
	}
	customer := order.Customer
	data := emailData{
		Subject:      fmt.Sprintf(set.subject, order.OrderNumber),
		StoreURL:     r.storeURL,
		CustomerName: customer.FullName,
		OrderNumber:  order.OrderNumber,
		OrderDate:    order.CreatedAt.Format("January 2, 2006"),
		ProductName:  order.Item.Name,
		Quantity:     strconv.Itoa(order.Item.Quantity),
		UnitPrice:    order.Item.Price.StringFixed(2),
		Variants:     variantsLabel(order),
		Subtotal:     order.Subtotal.StringFixed(2),
		Tax:          order.Tax.StringFixed(2),
		Total:        order.Total.StringFixed(2),
		CardLast4:    order.Payment.CardLast4,
		Reason:       FailureReason(order),
		Street:       customer.Address.Street,
		City:         customer.Address.City,
		State:        customer.Address.State,
		ZipCode:      customer.Address.ZipCode,
		Country:      customer.Address.Country,
	}

	var html bytes.Buffer
	if err := set.html.ExecuteTemplate(&html, "layout", data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	var text bytes.Buffer
	if err := set.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return Message{
		To:      customer.Email,
		ToName:  customer.FullName,
		Subject: data.Subject,
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}

// FailureReason explains a non-approved payment in customer terms.
func FailureReason(order *models.Order) string {
	switch order.Payment.Result {
	case enums.TransactionDeclined:
		return "Your payment was declined by your bank."
	case enums.TransactionError:
		return "There was a technical error processing your payment."
	}
	if order.Status == enums.OrderStatusFailed && order.Payment.Result == enums.TransactionApproved {
		return "The item sold out before your order could be confirmed."
	}
	if order.Payment.Message != "" {
		return order.Payment.Message
	}
	return "Payment processing failed."
}

func variantsLabel(order *models.Order) string {
	if len(order.Item.SelectedVariants) == 0 {
		return ""
	}
	labels := make([]string, 0, len(order.Item.SelectedVariants))
	for _, v := range order.Item.SelectedVariants {
		labels = append(labels, v.Label())
	}
	return strings.Join(labels, ", ")
}
