package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/logging"
	"github.com/duckieducksrgood/winchpoint/pkg/outbox"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderUpdateIn is a partial update; nil fields keep their value.
type OrderUpdateIn struct {
	Status         *string    `json:"status"`
	TrackingNumber *string    `json:"trackingNumber"`
	PaymentMethod  *string    `json:"paymentMethod"`
	RefundStatus   *string    `json:"refundStatus"`
	RefundProof    *string    `json:"refundProof"`
	RefundDate     *time.Time `json:"refundDate"`
}

func (in *OrderUpdateIn) onlyCancels() bool {
	return in.TrackingNumber == nil && in.PaymentMethod == nil &&
		in.RefundStatus == nil && in.RefundProof == nil && in.RefundDate == nil
}

// anyStatus matches every status in a hook key.
const anyStatus entity.OrderStatus = "*"

type hookKey struct{ from, to entity.OrderStatus }

// transition is what hooks see; they queue events to publish after commit.
type transition struct {
	Order  *entity.Order
	From   entity.OrderStatus
	To     entity.OrderStatus
	events []outbox.Event
}

type transitionHook func(ctx context.Context, tx *gorm.DB, t *transition) error

func (s *OrderService) transitionHooks() map[hookKey][]transitionHook {
	return map[hookKey][]transitionHook{
		{anyStatus, entity.StatusCancelled}: {s.restoreStock},
		{anyStatus, anyStatus}:              {notifyStatusChange},
	}
}

func (s *OrderService) runHooks(ctx context.Context, tx *gorm.DB, t *transition) error {
	keys := []hookKey{{t.From, t.To}, {anyStatus, t.To}, {t.From, anyStatus}, {anyStatus, anyStatus}}
	for _, k := range keys {
		for _, h := range s.hooks[k] {
			if err := h(ctx, tx, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// restoreStock puts every line back on the shelf. Lines whose product was
// deleted since checkout have nothing to restore.
func (s *OrderService) restoreStock(ctx context.Context, tx *gorm.DB, t *transition) error {
	returned := make([]ReturnedItem, 0, len(t.Order.Items))
	for _, it := range t.Order.Items {
		if it.ProductID != nil {
			n, err := s.ProductRepo.IncrementStock(tx, *it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if n == 0 {
				logging.From(ctx).Info("restock_skipped_product_gone",
					zap.Uint("order_id", t.Order.ID), zap.String("product", it.ProductName))
			}
		}
		returned = append(returned, ReturnedItem{Name: it.ProductName, Quantity: it.Quantity, Price: it.Price.StringFixed(2)})
	}
	t.events = append(t.events, OrderCancelled{OrderID: t.Order.ID, Items: returned, Customer: recipientOf(t.Order)})
	return nil
}

func notifyStatusChange(_ context.Context, _ *gorm.DB, t *transition) error {
	t.events = append(t.events, OrderStatusChanged{
		OrderID: t.Order.ID, UserID: t.Order.UserID, From: t.From, To: t.To,
		Total: t.Order.TotalPrice.StringFixed(2), At: time.Now(),
		Customer: recipientOf(t.Order),
	})
	return nil
}

func recipientOf(o *entity.Order) Recipient {
	return Recipient{Email: o.User.Email, Name: o.User.FullName()}
}

// Update applies a partial order update. Status moves must be in the
// transition table and are compare-and-set against the status read, so two
// concurrent updates cannot both apply the same move. Customers may only
// cancel their own Pending orders.
func (s *OrderService) Update(ctx context.Context, actor Actor, orderID uint, in *OrderUpdateIn) (*entity.Order, error) {
	var (
		out    *entity.Order
		events []outbox.Event
		moved  *transition
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadForActor(tx, actor, orderID)
		if err != nil {
			return err
		}

		to := o.Status
		if in.Status != nil {
			if to, err = entity.ParseOrderStatus(*in.Status); err != nil {
				return Validation(err.Error(), "status")
			}
		}

		if !actor.IsAdmin() {
			if to != entity.StatusCancelled || !in.onlyCancels() {
				return Forbidden("customers can only cancel their orders")
			}
			if o.Status != entity.StatusPending && o.Status != entity.StatusCancelled {
				return Validation(fmt.Sprintf("a %s order can no longer be cancelled", o.Status), "status")
			}
		}

		if to != o.Status {
			if !o.Status.CanTransitionTo(to) {
				return Validation(fmt.Sprintf("cannot move order from %s to %s", o.Status, to), "status")
			}
			n, err := s.Repo.UpdateStatusGuard(tx, o.ID, o.Status, to)
			if err != nil {
				return err
			}
			if n == 0 {
				return Conflict("order was changed by someone else, reload and try again")
			}
			moved = &transition{Order: o, From: o.Status, To: to}
			if err := s.runHooks(ctx, tx, moved); err != nil {
				return err
			}
			events = append(events, moved.events...)
		}

		fields, fieldEvents, err := s.fieldChanges(o, to, in)
		if err != nil {
			return err
		}
		if err := s.Repo.UpdateFields(tx, o.ID, fields); err != nil {
			return err
		}
		events = append(events, fieldEvents...)

		out, err = s.Repo.GetOrder(tx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved != nil {
		if s.Metrics != nil {
			s.Metrics.OrderTransitions.WithLabelValues(string(moved.From), string(moved.To)).Inc()
		}
		logging.From(ctx).Info("order_status_changed",
			zap.Uint("order_id", out.ID),
			zap.String("from", string(moved.From)),
			zap.String("to", string(moved.To)),
			zap.Uint("actor", actor.UserID),
		)
	}
	s.publish(ctx, events...)
	return out, nil
}

// Cancel is Update with status Cancelled; orders are never hard-deleted.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uint) (*entity.Order, error) {
	st := string(entity.StatusCancelled)
	return s.Update(ctx, actor, orderID, &OrderUpdateIn{Status: &st})
}

// fieldChanges diffs the non-status fields. Refund fields only make sense
// once the order is (or is becoming) Cancelled.
func (s *OrderService) fieldChanges(o *entity.Order, to entity.OrderStatus, in *OrderUpdateIn) (map[string]any, []outbox.Event, error) {
	fields := map[string]any{}
	var events []outbox.Event

	if in.TrackingNumber != nil {
		tn := strings.TrimSpace(*in.TrackingNumber)
		if tn != o.TrackingNumber {
			fields["tracking_number"] = tn
			if tn != "" {
				events = append(events, OrderTrackingUpdated{OrderID: o.ID, TrackingNumber: tn, Customer: recipientOf(o)})
			}
		}
	}
	if in.PaymentMethod != nil {
		if pm := strings.TrimSpace(*in.PaymentMethod); pm != "" && pm != o.PaymentMethod {
			fields["payment_method"] = pm
		}
	}

	if in.RefundStatus == nil && in.RefundProof == nil && in.RefundDate == nil {
		return fields, events, nil
	}
	if to != entity.StatusCancelled {
		return nil, nil, Validation("refund details only apply to cancelled orders", "refundStatus")
	}

	refund := o.RefundStatus
	if in.RefundStatus != nil {
		rs, err := entity.ParseRefundStatus(*in.RefundStatus)
		if err != nil {
			return nil, nil, Validation(err.Error(), "refundStatus")
		}
		refund = rs
	}
	refundDate := o.RefundDate
	if in.RefundDate != nil {
		refundDate = in.RefundDate
	} else if refund == entity.RefundRefunded && refundDate == nil {
		now := time.Now()
		refundDate = &now
	}
	if in.RefundProof != nil {
		fields["refund_proof"] = strings.TrimSpace(*in.RefundProof)
	}
	if refundDate != o.RefundDate {
		fields["refund_date"] = refundDate
	}
	if refund != o.RefundStatus {
		fields["refund_status"] = refund
		events = append(events, OrderRefundChanged{OrderID: o.ID, RefundStatus: refund, RefundDate: refundDate, Customer: recipientOf(o)})
	}
	return fields, events, nil
}
