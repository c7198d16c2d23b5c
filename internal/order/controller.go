package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/metrics"
	"bakery-storefront/internal/remote"
	"bakery-storefront/internal/storage"
)

// DefaultFailureReason is recorded when the remote rejects a checkout without a message
const DefaultFailureReason = "failed to process order"

// failedDraftReason marks audit entries for forms that never reached the remote
const failedDraftReason = "checkout form failed validation"

// OutcomeKind says what the caller should show after a submission
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeFailure       OutcomeKind = "failure"
	OutcomeInvalid       OutcomeKind = "invalid"
	OutcomeRedirectCart  OutcomeKind = "redirect_cart"
	OutcomeLoginRequired OutcomeKind = "login_required"
)

// Outcome is the result of Submit
type Outcome struct {
	Kind   OutcomeKind      `json:"kind"`
	Order  *domain.Order    `json:"order,omitempty"`
	Errors ValidationErrors `json:"errors,omitempty"`
}

// Checkout creates an order from the shopper's remote cart
type Checkout interface {
	Checkout(ctx context.Context) (*remote.CheckoutResult, error)
}

// Cart is the shopper's cart as seen by checkout
type Cart interface {
	Peek(ctx context.Context) domain.Cart
	Load(ctx context.Context) domain.Cart
	Clear(ctx context.Context) (domain.Cart, error)
}

// AuditLog appends every submission attempt
type AuditLog interface {
	Record(ctx context.Context, o *domain.Order) error
}

// Publisher announces terminal order outcomes
type Publisher interface {
	PublishOrder(ctx context.Context, o *domain.Order) error
}

// Controller runs checkout submissions and serves their receipts
type Controller struct {
	checkout  Checkout
	store     storage.Store
	audit     AuditLog
	publisher Publisher
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewController creates a new order controller
func NewController(checkout Checkout, store storage.Store, audit AuditLog, publisher Publisher, logger *zap.Logger) *Controller {
	return &Controller{
		checkout:  checkout,
		store:     store,
		audit:     audit,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Submit validates the form and checks out the session's cart.
//
// An invalid form or an empty cart never reaches the remote and leaves both
// the cart and the last order untouched. A completed attempt, paid or failed,
// replaces the last order; only a paid one clears the cart. The returned error
// is non-nil only when ctx ends before the remote answers.
func (c *Controller) Submit(ctx context.Context, session string, cart Cart, form domain.Customer) (Outcome, error) {
	form = Normalize(form)
	log := c.logger.With(zap.String("session_id", session))

	if errs := Validate(form); errs != nil {
		if draft := cart.Peek(ctx); !draft.IsEmpty() {
			o := c.newOrder(form, draft)
			c.transition(log, o, func() error { return o.MarkFailed(failedDraftReason) })
			c.record(ctx, log, o)
		}
		metrics.RecordCheckout(string(OutcomeInvalid))
		return Outcome{Kind: OutcomeInvalid, Errors: errs}, nil
	}

	current := cart.Load(ctx)
	if current.IsEmpty() {
		metrics.RecordCheckout(string(OutcomeRedirectCart))
		return Outcome{Kind: OutcomeRedirectCart}, nil
	}

	if !remote.HasSession(ctx) {
		metrics.RecordCheckout(string(OutcomeLoginRequired))
		return Outcome{Kind: OutcomeLoginRequired}, nil
	}

	o := c.newOrder(form, current)
	res, err := c.checkout.Checkout(ctx)
	if err != nil {
		if ctx.Err() != nil && remote.IsCanceled(err) {
			return Outcome{}, err
		}

		reason := remote.Message(err)
		if reason == "" {
			reason = DefaultFailureReason
		}
		c.transition(log, o, func() error { return o.MarkFailed(reason) })
		EnsureIdentifiers(o, c.now())

		log.Warn("Checkout failed", zap.String("code", o.Code), zap.Error(err))
		c.finish(ctx, log, session, o)
		metrics.RecordCheckout(string(OutcomeFailure))
		return Outcome{Kind: OutcomeFailure, Order: o}, nil
	}

	c.transition(log, o, o.MarkPaid)
	c.applyRemote(o, res)

	c.finish(ctx, log, session, o)
	if _, err := cart.Clear(ctx); err != nil {
		log.Warn("Failed to clear cart after checkout", zap.Error(err))
	}

	log.Info("Checkout completed",
		zap.String("code", o.Code),
		zap.Int64("remote_id", o.RemoteID),
		zap.Int64("total", o.Total),
	)
	metrics.RecordCheckout(string(OutcomeSuccess))
	return Outcome{Kind: OutcomeSuccess, Order: o}, nil
}

// transition applies a status change. A rejected change leaves the order as it
// was, so the attempt is still stored and announced under its current status.
func (c *Controller) transition(log *zap.Logger, o *domain.Order, mark func() error) bool {
	if err := mark(); err != nil {
		log.Error("Order status change rejected",
			zap.String("order_id", o.ID),
			zap.String("status", string(o.Status)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (c *Controller) newOrder(form domain.Customer, cart domain.Cart) *domain.Order {
	return &domain.Order{
		ID:        c.newID(),
		Customer:  form,
		Items:     domain.CloneLines(cart.Lines),
		Total:     cart.Total,
		Timestamp: c.now(),
		Status:    domain.OrderPending,
	}
}

// applyRemote copies what the remote supplied onto a paid order
func (c *Controller) applyRemote(o *domain.Order, res *remote.CheckoutResult) {
	if res == nil {
		EnsureIdentifiers(o, c.now())
		return
	}
	if res.ID > 0 {
		o.RemoteID = res.ID
		o.Code = RemoteCode(res.ID)
		o.Number = RemoteNumber(res.ID, c.now())
	}
	if res.Total > 0 {
		o.Total = res.Total
	}
	if !res.CreatedAt.IsZero() {
		o.Timestamp = res.CreatedAt
	}
	o.RemoteStatus = res.Status
	EnsureIdentifiers(o, c.now())
}

// finish stores the order as the session's last order, then records and
// announces it
func (c *Controller) finish(ctx context.Context, log *zap.Logger, session string, o *domain.Order) {
	if err := c.saveLastOrder(ctx, session, o); err != nil {
		log.Error("Failed to store last order", zap.String("code", o.Code), zap.Error(err))
	}
	c.record(ctx, log, o)
	if err := c.publisher.PublishOrder(ctx, o); err != nil {
		log.Warn("Failed to publish order event", zap.String("code", o.Code), zap.Error(err))
	}
}

func (c *Controller) record(ctx context.Context, log *zap.Logger, o *domain.Order) {
	if err := c.audit.Record(ctx, o); err != nil {
		log.Warn("Failed to record order attempt", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (c *Controller) saveLastOrder(ctx context.Context, session string, o *domain.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}
	if err := c.store.Set(ctx, session, storage.KeyLastOrder, data); err != nil {
		return fmt.Errorf("failed to save last order: %w", err)
	}
	return nil
}
