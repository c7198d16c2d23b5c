package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bakery-storefront/internal/domain"
)

var (
	ErrOrderAttemptNotFound = errors.New("order attempt not found")
)

// DefaultAttemptPageSize is used when List receives a non-positive limit
const DefaultAttemptPageSize = 50

// OrderAttempt is one recorded checkout submission
type OrderAttempt struct {
	Order      domain.Order `json:"order"`
	RecordedAt time.Time    `json:"recordedAt"`
}

// OrderAttemptRepository is the append-only audit log of checkout submissions.
// Recording the same order id twice keeps the latest state.
type OrderAttemptRepository interface {
	Record(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*OrderAttempt, error)
	List(ctx context.Context, status domain.OrderStatus, limit int) ([]*OrderAttempt, error)
}

type orderAttemptRepository struct {
	db *sql.DB
}

// NewOrderAttemptRepository creates a Postgres-backed audit log
func NewOrderAttemptRepository(db *sql.DB) OrderAttemptRepository {
	return &orderAttemptRepository{db: db}
}

// Record upserts the attempt using parameterized queries
func (r *orderAttemptRepository) Record(ctx context.Context, o *domain.Order) error {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return fmt.Errorf("failed to record order attempt: invalid id %q: %w", o.ID, err)
	}

	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("failed to encode customer: %w", err)
	}
	items, err := json.Marshal(domain.CloneLines(o.Items))
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	var remoteID sql.NullInt64
	if o.RemoteID > 0 {
		remoteID = sql.NullInt64{Int64: o.RemoteID, Valid: true}
	}

	query := `
		INSERT INTO order_attempts (id, remote_id, code, number, status, remote_status, failure_reason,
		                            customer_email, customer, items, total, placed_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE
		SET remote_id = EXCLUDED.remote_id, code = EXCLUDED.code, number = EXCLUDED.number,
		    status = EXCLUDED.status, remote_status = EXCLUDED.remote_status,
		    failure_reason = EXCLUDED.failure_reason, customer_email = EXCLUDED.customer_email,
		    customer = EXCLUDED.customer, items = EXCLUDED.items, total = EXCLUDED.total,
		    placed_at = EXCLUDED.placed_at, recorded_at = NOW()
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		id,
		remoteID,
		o.Code,
		o.Number,
		string(o.Status),
		o.RemoteStatus,
		o.FailureReason,
		o.Customer.Email,
		customer,
		items,
		o.Total,
		o.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record order attempt: %w", err)
	}

	return nil
}

const selectAttempt = `
	SELECT id, remote_id, code, number, status, remote_status, failure_reason,
	       customer, items, total, placed_at, recorded_at
	FROM order_attempts
`

// FindByID retrieves an attempt by its order id
func (r *orderAttemptRepository) FindByID(ctx context.Context, id string) (*OrderAttempt, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderAttemptNotFound
	}

	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, selectAttempt+" WHERE id = $1", parsed))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderAttemptNotFound
		}
		return nil, fmt.Errorf("failed to find order attempt: %w", err)
	}
	return attempt, nil
}

// List returns the most recent attempts, optionally filtered by status
func (r *orderAttemptRepository) List(ctx context.Context, status domain.OrderStatus, limit int) ([]*OrderAttempt, error) {
	if limit <= 0 {
		limit = DefaultAttemptPageSize
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.db.QueryContext(ctx, selectAttempt+" ORDER BY placed_at DESC LIMIT $1", limit)
	} else {
		rows, err = r.db.QueryContext(ctx, selectAttempt+" WHERE status = $1 ORDER BY placed_at DESC LIMIT $2", string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list order attempts: %w", err)
	}
	defer rows.Close()

	attempts := []*OrderAttempt{}
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order attempts: %w", err)
	}

	return attempts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*OrderAttempt, error) {
	var (
		a                  OrderAttempt
		id                 uuid.UUID
		remoteID           sql.NullInt64
		status             string
		customer, itemsRaw []byte
	)
	err := row.Scan(
		&id,
		&remoteID,
		&a.Order.Code,
		&a.Order.Number,
		&status,
		&a.Order.RemoteStatus,
		&a.Order.FailureReason,
		&customer,
		&itemsRaw,
		&a.Order.Total,
		&a.Order.Timestamp,
		&a.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Order.ID = id.String()
	a.Order.RemoteID = remoteID.Int64
	a.Order.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(customer, &a.Order.Customer); err != nil {
		return nil, fmt.Errorf("failed to decode customer: %w", err)
	}
	if err := json.Unmarshal(itemsRaw, &a.Order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return &a, nil
}

type memoryOrderAttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]*OrderAttempt
	now      func() time.Time
}

// NewMemoryOrderAttemptRepository keeps the audit log in process memory. It is
// used when no database is configured.
func NewMemoryOrderAttemptRepository() OrderAttemptRepository {
	return &memoryOrderAttemptRepository{
		attempts: make(map[string]*OrderAttempt),
		now:      time.Now,
	}
}

func (r *memoryOrderAttemptRepository) Record(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return nil
	}
	copied := *o
	copied.Items = domain.CloneLines(o.Items)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[o.ID] = &OrderAttempt{Order: copied, RecordedAt: r.now()}
	return nil
}

func (r *memoryOrderAttemptRepository) FindByID(ctx context.Context, id string) (*OrderAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, ErrOrderAttemptNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memoryOrderAttemptRepository) List(ctx context.Context, status domain.OrderStatus, limit int) ([]*OrderAttempt, error) {
	if limit <= 0 {
		limit = DefaultAttemptPageSize
	}

	r.mu.RLock()
	out := make([]*OrderAttempt, 0, len(r.attempts))
	for _, a := range r.attempts {
		if status != "" && a.Order.Status != status {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	r.mu.RUnlock()

	sortAttempts(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortAttempts orders newest first, breaking ties by id
func sortAttempts(attempts []*OrderAttempt) {
	slices.SortFunc(attempts, func(a, b *OrderAttempt) int {
		if c := b.Order.Timestamp.Compare(a.Order.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.Order.ID, b.Order.ID)
	})
}
