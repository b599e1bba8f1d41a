package mailer

import "embed"

const (
	FromName                  = "Souk"
	maxRetries                = 3
	OrderConfirmationTemplate = "order_confirmation.tmpl"
	AdminOrderAlertTemplate   = "admin_order_alert.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
