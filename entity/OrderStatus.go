package entity

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusCompleted  OrderStatus = "Completed"
	StatusCancelled  OrderStatus = "Cancelled"
)

var AllOrderStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled}

// allowed moves; Completed and Cancelled are terminal
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range AllOrderStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool { return len(orderTransitions[s]) == 0 }

type RefundStatus string

const (
	RefundNone     RefundStatus = ""
	RefundPending  RefundStatus = "Pending"
	RefundRefunded RefundStatus = "Refunded"
)

func ParseRefundStatus(s string) (RefundStatus, error) {
	switch {
	case strings.TrimSpace(s) == "":
		return RefundNone, nil
	case strings.EqualFold(s, string(RefundPending)):
		return RefundPending, nil
	case strings.EqualFold(s, string(RefundRefunded)):
		return RefundRefunded, nil
	}
	return "", fmt.Errorf("unknown refund status %q", s)
}
