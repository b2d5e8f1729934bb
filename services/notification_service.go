package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/logging"
	"github.com/duckieducksrgood/winchpoint/pkg/mailer"
	"github.com/duckieducksrgood/winchpoint/pkg/outbox"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EventPublisher is satisfied by *outbox.Bus.
type EventPublisher interface {
	Publish(ctx context.Context, e outbox.Event) error
}

const (
	EventOrderStatusChanged  = "order.status_changed"
	EventOrderTrackingUpdate = "order.tracking_updated"
	EventOrderCancelled      = "order.cancelled"
	EventOrderRefundChanged  = "order.refund_changed"
	EventPasswordResetCode   = "user.password_reset_code"
)

type Recipient struct {
	Email string
	Name  string
}

// OrderStatusChanged is also published on checkout with From empty.
type OrderStatusChanged struct {
	OrderID  uint
	UserID   uint
	From     entity.OrderStatus
	To       entity.OrderStatus
	Total    string
	At       time.Time
	Customer Recipient
}

func (OrderStatusChanged) EventName() string { return EventOrderStatusChanged }

type OrderTrackingUpdated struct {
	OrderID        uint
	TrackingNumber string
	Customer       Recipient
}

func (OrderTrackingUpdated) EventName() string { return EventOrderTrackingUpdate }

type ReturnedItem struct {
	Name     string
	Quantity int
	Price    string
}

type OrderCancelled struct {
	OrderID  uint
	Items    []ReturnedItem
	Customer Recipient
}

func (OrderCancelled) EventName() string { return EventOrderCancelled }

type OrderRefundChanged struct {
	OrderID      uint
	RefundStatus entity.RefundStatus
	RefundDate   *time.Time
	Customer     Recipient
}

func (OrderRefundChanged) EventName() string { return EventOrderRefundChanged }

type PasswordResetCode struct {
	Code      string
	ExpiresIn time.Duration
	Customer  Recipient
}

func (PasswordResetCode) EventName() string { return EventPasswordResetCode }

// NotificationService turns domain events into emails. Send failures are
// returned to the bus, which logs them; nothing is retried.
type NotificationService struct {
	Mail    mailer.Sender
	Tpl     *mailer.Renderer
	SiteURL string
	Sent    *prometheus.CounterVec // kind, result; optional
}

func NewNotificationService(m mailer.Sender, tpl *mailer.Renderer, siteURL string, sent *prometheus.CounterVec) *NotificationService {
	return &NotificationService{Mail: m, Tpl: tpl, SiteURL: siteURL, Sent: sent}
}

func (n *NotificationService) Register(bus *outbox.Bus) {
	bus.Subscribe(EventOrderStatusChanged, n.onStatusChanged)
	bus.Subscribe(EventOrderTrackingUpdate, n.onTrackingUpdated)
	bus.Subscribe(EventOrderCancelled, n.onCancelled)
	bus.Subscribe(EventOrderRefundChanged, n.onRefundChanged)
	bus.Subscribe(EventPasswordResetCode, n.onResetCode)
}

type MailBase struct {
	CustomerName string
	SiteURL      string
	OrderID      uint
}

func (n *NotificationService) base(to Recipient, orderID uint) MailBase {
	return MailBase{CustomerName: to.Name, SiteURL: n.SiteURL, OrderID: orderID}
}

func (n *NotificationService) onStatusChanged(ctx context.Context, e outbox.Event) error {
	ev := e.(OrderStatusChanged)
	subject := fmt.Sprintf("Order #%d update: %s", ev.OrderID, ev.To)
	if ev.From == "" {
		subject = fmt.Sprintf("We received your order #%d", ev.OrderID)
	}
	data := struct {
		MailBase
		Status string
		Total  string
	}{n.base(ev.Customer, ev.OrderID), string(ev.To), ev.Total}
	text := fmt.Sprintf("Hello %s,\n\n%s\nOrder total: PHP %s\n\nThank you for choosing %s.",
		ev.Customer.Name, statusLine(ev.OrderID, ev.To), ev.Total, mailer.DisplayName)
	return n.send(ctx, "order_status", ev.Customer, subject, text, "order_status.html", data)
}

func statusLine(orderID uint, st entity.OrderStatus) string {
	switch st {
	case entity.StatusPending:
		return fmt.Sprintf("We have received order #%d. It is waiting for payment verification.", orderID)
	case entity.StatusProcessing:
		return fmt.Sprintf("Your payment for order #%d is confirmed and we are packing your items.", orderID)
	case entity.StatusCompleted:
		return fmt.Sprintf("Order #%d is complete.", orderID)
	case entity.StatusCancelled:
		return fmt.Sprintf("Order #%d has been cancelled.", orderID)
	}
	return fmt.Sprintf("The status of order #%d is now %s.", orderID, st)
}

func (n *NotificationService) onTrackingUpdated(ctx context.Context, e outbox.Event) error {
	ev := e.(OrderTrackingUpdated)
	subject := fmt.Sprintf("Order #%d has shipped", ev.OrderID)
	text := fmt.Sprintf("Hello %s,\n\nOrder #%d is on its way.\nTracking number: %s\n\nThank you for choosing %s.",
		ev.Customer.Name, ev.OrderID, ev.TrackingNumber, mailer.DisplayName)
	data := struct {
		MailBase
		TrackingNumber string
	}{n.base(ev.Customer, ev.OrderID), ev.TrackingNumber}
	return n.send(ctx, "order_tracking", ev.Customer, subject, text, "order_tracking.html", data)
}

func (n *NotificationService) onCancelled(ctx context.Context, e outbox.Event) error {
	ev := e.(OrderCancelled)
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nOrder #%d has been cancelled. Returned items:\n", ev.Customer.Name, ev.OrderID)
	for _, it := range ev.Items {
		fmt.Fprintf(&b, "- %s x%d @ PHP %s\n", it.Name, it.Quantity, it.Price)
	}
	fmt.Fprintf(&b, "\nThank you for choosing %s.", mailer.DisplayName)
	data := struct {
		MailBase
		Items []ReturnedItem
	}{n.base(ev.Customer, ev.OrderID), ev.Items}
	return n.send(ctx, "order_cancelled", ev.Customer, fmt.Sprintf("Order #%d cancelled", ev.OrderID), b.String(), "order_cancelled.html", data)
}

func (n *NotificationService) onRefundChanged(ctx context.Context, e outbox.Event) error {
	ev := e.(OrderRefundChanged)
	date := ""
	if ev.RefundDate != nil {
		date = ev.RefundDate.Format("2006-01-02")
	}
	status := string(ev.RefundStatus)
	if status == "" {
		status = "Not Processed"
	}
	text := fmt.Sprintf("Hello %s,\n\nThe refund for order #%d is now %s.\n\nThank you for choosing %s.",
		ev.Customer.Name, ev.OrderID, status, mailer.DisplayName)
	data := struct {
		MailBase
		RefundStatus string
		RefundDate   string
	}{n.base(ev.Customer, ev.OrderID), status, date}
	return n.send(ctx, "refund_status", ev.Customer, fmt.Sprintf("Refund update for order #%d", ev.OrderID), text, "refund_status.html", data)
}

func (n *NotificationService) onResetCode(ctx context.Context, e outbox.Event) error {
	ev := e.(PasswordResetCode)
	text := fmt.Sprintf("Hello %s,\n\nYour password reset code is: %s\nIt expires in %s.\n\nThank you for choosing %s.",
		ev.Customer.Name, ev.Code, ev.ExpiresIn, mailer.DisplayName)
	data := struct {
		MailBase
		ResetCode string
		ExpiresIn string
	}{n.base(ev.Customer, 0), ev.Code, ev.ExpiresIn.String()}
	return n.send(ctx, "reset_code", ev.Customer, "Your password reset code", text, "reset_code.html", data)
}

// send falls back to plain text when the HTML template fails to render.
func (n *NotificationService) send(ctx context.Context, kind string, to Recipient, subject, text, tpl string, data any) error {
	log := logging.From(ctx).With(zap.String("kind", kind), zap.String("to", to.Email))
	msg := mailer.Message{To: to.Email, Subject: subject, Text: text}
	if n.Tpl != nil {
		html, err := n.Tpl.Render(tpl, data)
		if err != nil {
			log.Warn("email_template_failed", zap.Error(err))
		} else {
			msg.HTML = html
		}
	}
	if err := n.Mail.Send(ctx, msg); err != nil {
		n.count(kind, "error")
		log.Warn("email_send_failed", zap.Error(err))
		return err
	}
	n.count(kind, "ok")
	log.Info("email_sent")
	return nil
}

func (n *NotificationService) count(kind, result string) {
	if n.Sent != nil {
		n.Sent.WithLabelValues(kind, result).Inc()
	}
}
