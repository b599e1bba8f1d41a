package notifications

import (
	"context"
	"fmt"
	"time"

	"souk/internal/domain/orders"
	"souk/internal/events"
	"souk/internal/mailer"

	"go.uber.org/zap"
)

// OrderNotifier fans a committed order out to the customer, the shop
// admin, and the event broker. Everything runs off the request path and
// failures are logged, never propagated; the order already exists.
type OrderNotifier struct {
	mailer     mailer.Client
	publisher  *events.Publisher
	adminEmail string
	logger     *zap.SugaredLogger
}

func NewOrderNotifier(m mailer.Client, pub *events.Publisher, adminEmail string, logger *zap.SugaredLogger) *OrderNotifier {
	return &OrderNotifier{
		mailer:     m,
		publisher:  pub,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

type emailLine struct {
	Name     string
	Quantity int
	Total    string
}

type emailData struct {
	Username    string
	Email       string
	Phone       string
	Address     string
	City        string
	OrderNumber string
	CouponCode  string
	Items       []emailLine
	Subtotal    string
	Discount    string
	Shipping    string
	Total       string
}

func (n *OrderNotifier) OrderPlaced(detail *orders.OrderDetail) {
	if detail == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data := buildEmailData(detail)
		number := detail.Order.OrderNumber

		if n.mailer != nil {
			_, err := n.mailer.Send(mailer.OrderConfirmationTemplate, data.Username, data.Email, data)
			if err != nil {
				n.logger.Errorw("order confirmation email failed", "order", number, "error", err)
			}

			if n.adminEmail != "" {
				_, err = n.mailer.Send(mailer.AdminOrderAlertTemplate, "admin", n.adminEmail, data)
				if err != nil {
					n.logger.Errorw("admin order alert failed", "order", number, "error", err)
				}
			}
		}

		if err := n.publisher.PublishOrderPlaced(ctx, detail); err != nil {
			n.logger.Errorw("order event publish failed", "order", number, "error", err)
		}
	}()
}

func buildEmailData(detail *orders.OrderDetail) emailData {
	o := detail.Order
	data := emailData{
		Username:    o.Customer.FullName,
		Email:       o.Customer.Email,
		Phone:       o.Customer.Phone,
		Address:     o.Customer.Address,
		City:        o.Customer.City,
		OrderNumber: o.OrderNumber,
		Subtotal:    FormatCents(o.SubtotalCents),
		Discount:    FormatCents(o.DiscountCents),
		Shipping:    FormatCents(o.ShippingCents),
		Total:       FormatCents(o.TotalCents),
	}
	if o.CouponCode != nil {
		data.CouponCode = *o.CouponCode
	}

	for _, item := range detail.Items {
		name := item.ProductName
		if item.VariantName != nil {
			name = fmt.Sprintf("%s (%s)", name, *item.VariantName)
		}
		data.Items = append(data.Items, emailLine{
			Name:     name,
			Quantity: item.Quantity,
			Total:    FormatCents(item.TotalCents),
		})
	}
	return data
}

// FormatCents renders an amount in cents as a dollar string for display.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
