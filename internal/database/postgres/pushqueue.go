package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forcelink/forcelink/internal/domain"
)

// PushQueueRepository implements repository.PushQueue
type PushQueueRepository struct {
	db *pgxpool.Pool
}

// NewPushQueueRepository creates a new push queue repository
func NewPushQueueRepository(db *pgxpool.Pool) *PushQueueRepository {
	return &PushQueueRepository{db: db}
}

const queueColumns = `
	item_id, mapping_id, local_id, operation, created_at,
	claimed_until, failure_count, quarantined, last_error
`

// Enqueue upserts on (mapping_id, local_id): a second local edit before the
// first push updates the pending item's operation instead of adding a row.
// A quarantined item keeps its quarantine; only an operator returns it.
func (r *PushQueueRepository) Enqueue(ctx context.Context, mappingID, localID string, op domain.Operation) error {
	query := `
		INSERT INTO sync_push_queue (mapping_id, local_id, operation)
		VALUES ($1, $2, $3)
		ON CONFLICT (mapping_id, local_id) DO UPDATE
		SET operation = EXCLUDED.operation
	`
	if _, err := r.db.Exec(ctx, query, mappingID, localID, string(op)); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToEnqueueItem, err)
	}
	return nil
}

// ClaimBatch claims with a single conditional UPDATE so concurrent workers
// never claim the same item. Expired leases are reclaimed automatically.
func (r *PushQueueRepository) ClaimBatch(ctx context.Context, mappingID string, limit int, lease time.Duration, now time.Time) ([]*domain.PushQueueItem, error) {
	query := `
		UPDATE sync_push_queue
		SET claimed_until = $4
		WHERE item_id IN (
			SELECT item_id FROM sync_push_queue
			WHERE NOT quarantined
			  AND (claimed_until IS NULL OR claimed_until <= $3)
			  AND ($1::text = '' OR mapping_id::text = $1::text)
			ORDER BY created_at, item_id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + queueColumns
	rows, err := r.db.Query(ctx, query, mappingID, limit, now, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToClaimItems, err)
	}
	defer rows.Close()

	var out []*domain.PushQueueItem
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToClaimItems, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PushQueueRepository) Release(ctx context.Context, item *domain.PushQueueItem) error {
	tag, err := r.db.Exec(ctx, `UPDATE sync_push_queue SET claimed_until = NULL WHERE item_id = $1`, item.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToReleaseItem, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *PushQueueRepository) Delete(ctx context.Context, item *domain.PushQueueItem) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sync_push_queue WHERE item_id = $1`, item.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteItem, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *PushQueueRepository) Fail(ctx context.Context, item *domain.PushQueueItem, cause string, quarantine bool) error {
	query := `
		UPDATE sync_push_queue
		SET failure_count = failure_count + 1,
		    last_error = $2,
		    claimed_until = NULL,
		    quarantined = $3
		WHERE item_id = $1
	`
	tag, err := r.db.Exec(ctx, query, item.ID, cause, quarantine)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToFailItem, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *PushQueueRepository) ListQuarantined(ctx context.Context) ([]*domain.PushQueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM sync_push_queue WHERE quarantined ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListQuarantined, err)
	}
	defer rows.Close()

	var out []*domain.PushQueueItem
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListQuarantined, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PushQueueRepository) Retry(ctx context.Context, id string) error {
	query := `
		UPDATE sync_push_queue
		SET quarantined = FALSE, failure_count = 0, last_error = '', claimed_until = NULL
		WHERE item_id = $1 AND quarantined
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToRetryItem, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *PushQueueRepository) Purge(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sync_push_queue WHERE item_id = $1 AND quarantined`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToPurgeItem, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *PushQueueRepository) Depth(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sync_push_queue WHERE NOT quarantined`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToCountQueue, err)
	}
	return n, nil
}

func scanQueueItem(row pgx.Row) (*domain.PushQueueItem, error) {
	var (
		it domain.PushQueueItem
		op string
	)
	err := row.Scan(
		&it.ID,
		&it.MappingID,
		&it.LocalID,
		&op,
		&it.CreatedAt,
		&it.ClaimedUntil,
		&it.FailureCount,
		&it.Quarantined,
		&it.LastError,
	)
	if err != nil {
		return nil, err
	}
	it.Operation = domain.Operation(op)
	return &it, nil
}

