package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forcelink/forcelink/internal/domain"
)

// LinkRepository implements repository.Link
type LinkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: db}
}

const linkColumns = `
	link_id, mapping_id, local_type, local_id, remote_id,
	force_pull, last_synced_at, revision
`

func (r *LinkRepository) GetByLocal(ctx context.Context, mappingID, localID string) (*domain.LinkedRecord, error) {
	query := `SELECT ` + linkColumns + ` FROM sync_links WHERE mapping_id = $1 AND local_id = $2`
	return r.get(ctx, query, mappingID, localID)
}

func (r *LinkRepository) GetByRemote(ctx context.Context, mappingID, remoteID string) (*domain.LinkedRecord, error) {
	query := `SELECT ` + linkColumns + ` FROM sync_links WHERE mapping_id = $1 AND remote_id = $2`
	return r.get(ctx, query, mappingID, remoteID)
}

func (r *LinkRepository) ListByMapping(ctx context.Context, mappingID string) ([]*domain.LinkedRecord, error) {
	query := `SELECT ` + linkColumns + ` FROM sync_links WHERE mapping_id = $1 ORDER BY local_id`
	rows, err := r.db.Query(ctx, query, mappingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListLinks, err)
	}
	defer rows.Close()

	var out []*domain.LinkedRecord
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListLinks, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Upsert inserts the link, or updates the row for the same (mapping, local)
// pair. A unique violation on (mapping, remote) means the remote record is
// already linked elsewhere and surfaces as domain.ErrLinkConflict.
func (r *LinkRepository) Upsert(ctx context.Context, link *domain.LinkedRecord) error {
	query := `
		INSERT INTO sync_links (mapping_id, local_type, local_id, remote_id, force_pull, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mapping_id, local_id) DO UPDATE
		SET remote_id = EXCLUDED.remote_id,
		    force_pull = EXCLUDED.force_pull,
		    last_synced_at = EXCLUDED.last_synced_at,
		    revision = sync_links.revision + 1
		RETURNING link_id, revision
	`
	err := r.db.QueryRow(ctx, query,
		link.MappingID,
		link.LocalType,
		link.LocalID,
		link.RemoteID,
		link.ForcePull,
		link.LastSyncedAt,
	).Scan(&link.ID, &link.Revision)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == PgErrorCodeUniqueViolation {
			return domain.ErrLinkConflict
		}
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertLink, err)
	}
	return nil
}

func (r *LinkRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sync_links WHERE link_id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteLink, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *LinkRepository) SetForcePull(ctx context.Context, id string, force bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE sync_links SET force_pull = $2 WHERE link_id = $1`, id, force)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertLink, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *LinkRepository) get(ctx context.Context, query string, args ...any) (*domain.LinkedRecord, error) {
	l, err := scanLink(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetLink, err)
	}
	return l, nil
}

func scanLink(row pgx.Row) (*domain.LinkedRecord, error) {
	var l domain.LinkedRecord
	err := row.Scan(
		&l.ID,
		&l.MappingID,
		&l.LocalType,
		&l.LocalID,
		&l.RemoteID,
		&l.ForcePull,
		&l.LastSyncedAt,
		&l.Revision,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
