// Package notifier sends sale and inventory notifications to sellers and
// administrators. Delivery is best effort: callers log failures and move on.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

type Message struct {
	Channel Channel `json:"canal"`
	To      string  `json:"destinatario"`
	Subject string  `json:"asunto,omitempty"`
	Body    string  `json:"mensaje"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Fanout delivers every message to all of its senders and joins their errors.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type SaleNotification struct {
	SellerName  string          `json:"vendedor_nombre" validate:"required"`
	SellerEmail string          `json:"vendedor_email" validate:"required,email"`
	SellerPhone string          `json:"vendedor_telefono"`
	ProductName string          `json:"producto_nombre" validate:"required"`
	Quantity    int             `json:"cantidad" validate:"gt=0"`
	Total       decimal.Decimal `json:"total"`
}

type LowStockNotification struct {
	ProductName  string `json:"producto_nombre" validate:"required"`
	CurrentStock int    `json:"stock_actual" validate:"gte=0"`
	MinimumStock int    `json:"stock_minimo" validate:"gte=0"`
	AdminEmail   string `json:"admin_email" validate:"omitempty,email"`
}

type TestResult struct {
	Message      string `json:"mensaje"`
	EmailSent    bool   `json:"email_enviado"`
	WhatsAppSent bool   `json:"whatsapp_enviado"`
}

type Notifier struct {
	sender     Sender
	adminEmail string
	logger     zerolog.Logger
}

func New(sender Sender, adminEmail string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// NotifySale emails the seller and, when a phone number is known, sends a
// WhatsApp message as well.
func (n *Notifier) NotifySale(ctx context.Context, sale SaleNotification) error {
	total := sale.Total.StringFixed(2)

	email := Message{
		Channel: ChannelEmail,
		To:      sale.SellerEmail,
		Subject: "Venta registrada - " + sale.ProductName,
		Body: fmt.Sprintf("Hola %s,\n\nSe ha registrado una nueva venta:\n- Producto: %s\n- Cantidad: %d\n- Total: $%s\n\n¡Felicitaciones por tu venta!\n\nSocial Sellers",
			sale.SellerName, sale.ProductName, sale.Quantity, total),
	}

	var errs []error
	if err := n.sender.Send(ctx, email); err != nil {
		errs = append(errs, fmt.Errorf("email: %w", err))
	}

	if sale.SellerPhone != "" {
		whatsapp := Message{
			Channel: ChannelWhatsApp,
			To:      sale.SellerPhone,
			Body: fmt.Sprintf("Nueva venta registrada!\nProducto: %s\nCantidad: %d\nTotal: $%s",
				sale.ProductName, sale.Quantity, total),
		}
		if err := n.sender.Send(ctx, whatsapp); err != nil {
			errs = append(errs, fmt.Errorf("whatsapp: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (n *Notifier) NotifyLowStock(ctx context.Context, alert LowStockNotification) error {
	to := alert.AdminEmail
	if to == "" {
		to = n.adminEmail
	}

	return n.sender.Send(ctx, Message{
		Channel: ChannelEmail,
		To:      to,
		Subject: "ALERTA: Stock bajo - " + alert.ProductName,
		Body: fmt.Sprintf("ALERTA DE INVENTARIO\n\nEl siguiente producto tiene stock bajo:\n- Producto: %s\n- Stock actual: %d\n- Stock mínimo: %d\n- Diferencia: %d\n\nSe requiere reposición urgente.\n\nSocial Sellers - Sistema de Inventario",
			alert.ProductName, alert.CurrentStock, alert.MinimumStock, alert.MinimumStock-alert.CurrentStock),
	})
}

func (n *Notifier) SendTest(ctx context.Context) TestResult {
	emailErr := n.sender.Send(ctx, Message{
		Channel: ChannelEmail,
		To:      "test@socialsellers.com",
		Subject: "Test de notificaciones",
		Body:    "Este es un mensaje de prueba del sistema de notificaciones.",
	})
	if emailErr != nil {
		n.logger.Warn().Err(emailErr).Msg("Test email failed")
	}

	whatsappErr := n.sender.Send(ctx, Message{
		Channel: ChannelWhatsApp,
		To:      "+1234567890",
		Body:    "Test de notificación WhatsApp - Social Sellers",
	})
	if whatsappErr != nil {
		n.logger.Warn().Err(whatsappErr).Msg("Test WhatsApp failed")
	}

	result := TestResult{
		Message:      "Notificaciones de prueba enviadas exitosamente",
		EmailSent:    emailErr == nil,
		WhatsAppSent: whatsappErr == nil,
	}
	if emailErr != nil || whatsappErr != nil {
		result.Message = "Algunas notificaciones de prueba fallaron"
	}
	return result
}
