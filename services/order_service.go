package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/logging"
	"github.com/duckieducksrgood/winchpoint/pkg/metrics"
	"github.com/duckieducksrgood/winchpoint/pkg/outbox"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderService struct {
	DB          *gorm.DB
	Repo        *repository.OrderRepository
	CartRepo    *repository.CartRepository
	ProductRepo *repository.ProductRepository
	Events      EventPublisher
	Metrics     *metrics.App // optional

	hooks map[hookKey][]transitionHook
}

func NewOrderService(
	db *gorm.DB,
	repo *repository.OrderRepository,
	cartRepo *repository.CartRepository,
	productRepo *repository.ProductRepository,
	events EventPublisher,
	m *metrics.App,
) *OrderService {
	s := &OrderService{DB: db, Repo: repo, CartRepo: cartRepo, ProductRepo: productRepo, Events: events, Metrics: m}
	s.hooks = s.transitionHooks()
	return s
}

// ----- DTOs from Controller -----

type CheckoutIn struct {
	CartItemIDs     []uint           `json:"cartItemIds"`
	TotalPrice      *decimal.Decimal `json:"totalPrice"`
	PaymentMethod   string           `json:"paymentMethod"`
	DeliveryAddress string           `json:"deliveryAddress"`
	ProofOfPayment  string           `json:"proofOfPayment"`
}

type CreateOrderRes struct {
	ID         uint            `json:"id"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func (in *CheckoutIn) missing() []string {
	var out []string
	if len(in.CartItemIDs) == 0 {
		out = append(out, "cartItemIds")
	}
	if in.TotalPrice == nil {
		out = append(out, "totalPrice")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		out = append(out, "paymentMethod")
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		out = append(out, "deliveryAddress")
	}
	if strings.TrimSpace(in.ProofOfPayment) == "" {
		out = append(out, "proofOfPayment")
	}
	return out
}

// Checkout turns the selected cart lines into a Pending order. Order row,
// item snapshots, cart-line removal and stock decrements commit together or
// not at all. Stock is taken with a conditional decrement, so two buyers
// racing for the last unit cannot both win.
func (s *OrderService) Checkout(ctx context.Context, userID uint, in *CheckoutIn) (*CreateOrderRes, error) {
	if missing := in.missing(); len(missing) > 0 {
		return nil, Validation("missing required fields", missing...)
	}

	var (
		order entity.Order
		user  entity.User
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.CartRepo.FindCart(tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("cart")
		}
		if err != nil {
			return err
		}

		items, err := s.CartRepo.ItemsByIDs(tx, cart.ID, dedupe(in.CartItemIDs))
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return Validation("none of the selected items are in your cart", "cartItemIds")
		}

		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		if !total.Equal(*in.TotalPrice) {
			return Validation(fmt.Sprintf("total price mismatch, expected %s", total.StringFixed(2)), "totalPrice")
		}

		order = entity.Order{
			UserID:          userID,
			Status:          entity.StatusPending,
			TotalPrice:      total,
			PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
			DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
			ProofOfPayment:  strings.TrimSpace(in.ProofOfPayment),
		}
		if err := s.Repo.CreateOrder(tx, &order); err != nil {
			return err
		}

		for _, it := range items {
			pid := it.ProductID
			oi := entity.OrderItem{
				OrderID:     order.ID,
				ProductID:   &pid,
				ProductName: it.Product.Name,
				Quantity:    it.Quantity,
				Price:       it.Product.EffectivePrice(),
			}
			if err := s.Repo.CreateOrderItem(tx, &oi); err != nil {
				return err
			}
			if err := s.CartRepo.DeleteItem(tx, it.ID); err != nil {
				return err
			}
			n, err := s.ProductRepo.DecrementStock(tx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if n == 0 {
				return Conflict(fmt.Sprintf("insufficient stock for %s", it.Product.Name))
			}
			order.Items = append(order.Items, oi)
		}

		return tx.First(&user, userID).Error
	})
	if err != nil {
		s.countCheckout(err)
		return nil, err
	}
	s.countCheckout(nil)

	logging.From(ctx).Info("order_checked_out",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", userID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalPrice.StringFixed(2)),
	)
	s.publish(ctx, OrderStatusChanged{
		OrderID: order.ID, UserID: userID, To: entity.StatusPending,
		Total: order.TotalPrice.StringFixed(2), At: order.CreatedAt,
		Customer: Recipient{Email: user.Email, Name: user.FullName()},
	})
	return &CreateOrderRes{ID: order.ID, TotalPrice: order.TotalPrice}, nil
}

func (s *OrderService) countCheckout(err error) {
	if s.Metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	s.Metrics.OrdersCheckedOut.WithLabelValues(result).Inc()
}

// publish never fails the caller; the bus is best-effort.
func (s *OrderService) publish(ctx context.Context, events ...outbox.Event) {
	if s.Events == nil {
		return
	}
	for _, e := range events {
		if err := s.Events.Publish(context.WithoutCancel(ctx), e); err != nil {
			logging.From(ctx).Warn("event_publish_failed",
				zap.String("event", e.EventName()), zap.Error(err))
		}
	}
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ----- List & Detail -----

type OrderListOut struct {
	Items []entity.Order `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// List shows customers their own orders; admins see everyone's.
func (s *OrderService) List(actor Actor, status string, page, limit int) (*OrderListOut, error) {
	f := repository.OrderFilter{Page: page, Limit: limit}
	f.Normalize()
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	if status != "" {
		st, err := entity.ParseOrderStatus(status)
		if err != nil {
			return nil, Validation(err.Error(), "status")
		}
		f.Status = st
	}
	items, total, err := s.Repo.List(f)
	if err != nil {
		return nil, err
	}
	return &OrderListOut{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *OrderService) Detail(actor Actor, orderID uint) (*entity.Order, error) {
	return s.loadForActor(s.DB, actor, orderID)
}

// loadForActor hides other customers' orders behind NotFound.
func (s *OrderService) loadForActor(tx *gorm.DB, actor Actor, orderID uint) (*entity.Order, error) {
	o, err := s.Repo.GetOrder(tx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("order")
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.UserID != actor.UserID {
		return nil, NotFound("order")
	}
	return o, nil
}
