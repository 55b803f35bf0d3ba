package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forcelink/forcelink/internal/domain"
)

// MappingRepository implements repository.Mapping
type MappingRepository struct {
	db *pgxpool.Pool
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *pgxpool.Pool) *MappingRepository {
	return &MappingRepository{db: db}
}

const mappingColumns = `
	mapping_id, name, local_type, local_subtype, remote_object,
	bindings, triggers, external_key_field, pull_date_field,
	push_standalone, pull_standalone, last_pull_at, last_delete_at
`

func (r *MappingRepository) GetMapping(ctx context.Context, id string) (*domain.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM sync_mappings WHERE mapping_id = $1`
	m, err := scanMapping(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetMapping, err)
	}
	return m, nil
}

func (r *MappingRepository) ListMappings(ctx context.Context) ([]*domain.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM sync_mappings ORDER BY name`
	return r.list(ctx, query)
}

func (r *MappingRepository) ListForLocalType(ctx context.Context, localType, subtype string) ([]*domain.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM sync_mappings
		WHERE local_type = $1 AND (local_subtype = '' OR local_subtype = $2)
		ORDER BY name
	`
	return r.list(ctx, query, localType, subtype)
}

func (r *MappingRepository) ListPushMappings(ctx context.Context) ([]*domain.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM sync_mappings
		WHERE (triggers->>'local_create')::boolean
		   OR (triggers->>'local_update')::boolean
		   OR (triggers->>'local_delete')::boolean
		ORDER BY name
	`
	return r.list(ctx, query)
}

func (r *MappingRepository) ListPullMappings(ctx context.Context) ([]*domain.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM sync_mappings
		WHERE (triggers->>'remote_create')::boolean
		   OR (triggers->>'remote_update')::boolean
		   OR (triggers->>'remote_delete')::boolean
		ORDER BY name
	`
	return r.list(ctx, query)
}

func (r *MappingRepository) AdvancePullWatermark(ctx context.Context, mappingID string, to time.Time) error {
	return r.advance(ctx, mappingID, "last_pull_at", to)
}

func (r *MappingRepository) AdvanceDeleteWatermark(ctx context.Context, mappingID string, to time.Time) error {
	return r.advance(ctx, mappingID, "last_delete_at", to)
}

func (r *MappingRepository) advance(ctx context.Context, mappingID, column string, to time.Time) error {
	// column is one of two repository-controlled names, never user input.
	query := fmt.Sprintf(`UPDATE sync_mappings SET %s = $2, updated_at = NOW() WHERE mapping_id = $1`, column)
	tag, err := r.db.Exec(ctx, query, mappingID, to)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToAdvanceWatermark, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMappingNotFound
	}
	return nil
}

func (r *MappingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Mapping, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListMappings, err)
	}
	defer rows.Close()

	var out []*domain.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListMappings, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMapping(row pgx.Row) (*domain.Mapping, error) {
	var (
		m            domain.Mapping
		bindingsJSON []byte
		triggersJSON []byte
	)
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.LocalType,
		&m.LocalSubtype,
		&m.RemoteObject,
		&bindingsJSON,
		&triggersJSON,
		&m.ExternalKeyField,
		&m.PullDateField,
		&m.PushStandalone,
		&m.PullStandalone,
		&m.LastPullAt,
		&m.LastDeleteAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bindingsJSON, &m.Bindings); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToDecodeBindings, err)
	}
	if err := json.Unmarshal(triggersJSON, &m.Triggers); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToDecodeBindings, err)
	}
	return &m, nil
}
