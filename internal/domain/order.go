package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

// OrderStatus represents the lifecycle state of a checkout attempt
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderPaid || s == OrderFailed
}

// Customer is the checkout form payload. Field names on the wire follow the
// storefront's form vocabulary.
type Customer struct {
	Name          string `json:"nombre" validate:"required"`
	Surname       string `json:"apellidos" validate:"required"`
	Email         string `json:"correo" validate:"required,basicemail"`
	Street        string `json:"calle" validate:"required"`
	Unit          string `json:"departamento,omitempty"`
	Region        string `json:"region" validate:"required"`
	Comune        string `json:"comuna" validate:"required"`
	DeliveryNotes string `json:"indicaciones,omitempty"`
}

// Order is the checkout artifact. Once persisted as the last order it is only
// mutated by the single pending->terminal transition.
type Order struct {
	ID            string      `json:"id"`
	RemoteID      int64       `json:"remoteId,omitempty"`
	Code          string      `json:"codigo"`
	Number        string      `json:"nro"`
	Customer      Customer    `json:"cliente"`
	Items         []CartLine  `json:"items"`
	Total         int64       `json:"total"`
	Timestamp     time.Time   `json:"fecha"`
	Status        OrderStatus `json:"estado"`
	RemoteStatus  string      `json:"estadoRemoto,omitempty"`
	FailureReason string      `json:"error,omitempty"`
}

// MarkPaid moves a pending order to paid
func (o *Order) MarkPaid() error {
	if o.Status != OrderPending {
		return ErrInvalidTransition
	}
	o.Status = OrderPaid
	o.FailureReason = ""
	return nil
}

// MarkFailed moves a pending order to failed, recording why
func (o *Order) MarkFailed(reason string) error {
	if o.Status != OrderPending {
		return ErrInvalidTransition
	}
	o.Status = OrderFailed
	o.FailureReason = reason
	return nil
}
