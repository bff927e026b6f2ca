package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// SiftStatus is the record lifecycle state, stored inside the metadata bag.
type SiftStatus string

const (
	SiftStatusPending   SiftStatus = "pending"
	SiftStatusCompleted SiftStatus = "completed"
	SiftStatusFailed    SiftStatus = "failed"
)

// SiftMetadata is the jsonb metadata bag on a sift row.
type SiftMetadata struct {
	Status SiftStatus `json:"status"`
	// DebugTrace accumulates which pipeline stages degraded. Support-only,
	// never shown to end users.
	DebugTrace string `json:"debug_trace,omitempty"`
}

// Sift is a persisted artifact produced by the ingestion pipeline.
type Sift struct {
	ID            pgtype.UUID        `json:"id"`
	OwnerID       string             `json:"owner_id"`
	SourceURL     string             `json:"source_url"`
	Title         string             `json:"title"`
	Summary       string             `json:"summary"`
	Tags          []string           `json:"tags"`
	Category      string             `json:"category"`
	Extras        map[string]any     `json:"structured_extras"`
	CoverImageURL *string            `json:"cover_image_url"`
	Metadata      SiftMetadata       `json:"metadata"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

const siftColumns = `id, owner_id, source_url, title, summary, tags, category, structured_extras, cover_image_url, metadata, created_at, updated_at`

func scanSift(row pgx.Row) (*Sift, error) {
	var s Sift
	var extras, metadata []byte
	err := row.Scan(&s.ID, &s.OwnerID, &s.SourceURL, &s.Title, &s.Summary,
		&s.Tags, &s.Category, &extras, &s.CoverImageURL, &metadata,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &s.Extras); err != nil {
			return nil, fmt.Errorf("decode structured_extras: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &s, nil
}

// SiftParams carries the full writable payload of a sift row.
type SiftParams struct {
	OwnerID       string
	SourceURL     string
	Title         string
	Summary       string
	Tags          []string
	Category      string
	Extras        map[string]any
	CoverImageURL *string
	Metadata      SiftMetadata
}

func (p *SiftParams) encode() (extras, metadata []byte, err error) {
	if p.Extras == nil {
		p.Extras = map[string]any{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	extras, err = json.Marshal(p.Extras)
	if err != nil {
		return nil, nil, fmt.Errorf("encode structured_extras: %w", err)
	}
	metadata, err = json.Marshal(p.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	return extras, metadata, nil
}

// InsertSift inserts a new sift. When id is non-nil the row is created with
// that id (placeholders created by clients carry a locally-known id).
func (q *Queries) InsertSift(ctx context.Context, id *uuid.UUID, p *SiftParams) (*Sift, error) {
	rowID := uuid.New()
	if id != nil {
		rowID = *id
	}
	pgID := pgtype.UUID{Bytes: rowID, Valid: true}

	extras, metadata, err := p.encode()
	if err != nil {
		return nil, err
	}

	row := q.db.QueryRow(ctx, `
		INSERT INTO sifts (id, owner_id, source_url, title, summary, tags, category, structured_extras, cover_image_url, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+siftColumns,
		pgID, p.OwnerID, p.SourceURL, p.Title, p.Summary, p.Tags, p.Category,
		extras, p.CoverImageURL, metadata)
	return scanSift(row)
}

// UpdateSift replaces the payload of an existing row in place.
func (q *Queries) UpdateSift(ctx context.Context, id pgtype.UUID, p *SiftParams) (*Sift, error) {
	extras, metadata, err := p.encode()
	if err != nil {
		return nil, err
	}

	row := q.db.QueryRow(ctx, `
		UPDATE sifts
		SET source_url = $2, title = $3, summary = $4, tags = $5, category = $6,
		    structured_extras = $7, cover_image_url = $8, metadata = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+siftColumns,
		id, p.SourceURL, p.Title, p.Summary, p.Tags, p.Category,
		extras, p.CoverImageURL, metadata)
	return scanSift(row)
}

func (q *Queries) SelectSiftByID(ctx context.Context, id pgtype.UUID) (*Sift, error) {
	row := q.db.QueryRow(ctx, `SELECT `+siftColumns+` FROM sifts WHERE id = $1`, id)
	return scanSift(row)
}

// SelectSiftsByOwner returns an owner's sifts newest first.
func (q *Queries) SelectSiftsByOwner(ctx context.Context, ownerID string, limit int) ([]*Sift, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.Query(ctx, `
		SELECT `+siftColumns+` FROM sifts
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sifts []*Sift
	for rows.Next() {
		s, err := scanSift(rows)
		if err != nil {
			return nil, err
		}
		sifts = append(sifts, s)
	}
	return sifts, rows.Err()
}

// CountSiftsByOwner is the quota-check query.
func (q *Queries) CountSiftsByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM sifts WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}

// DeleteSift removes a sift owned by ownerID. Returns pgx.ErrNoRows when the
// row does not exist or belongs to someone else.
func (q *Queries) DeleteSift(ctx context.Context, id pgtype.UUID, ownerID string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM sifts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecoverStalePendingSifts completes pending placeholders whose pipeline
// call never came back (client crashed mid-flight). Returns the number of
// rows touched.
func (q *Queries) RecoverStalePendingSifts(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE sifts
		SET title = 'Link from ' || coalesce(nullif(split_part(split_part(source_url, '//', 2), '/', 1), ''), 'unknown'),
		    summary = 'Content extraction failed, but link saved.',
		    tags = ARRAY['Link'],
		    metadata = metadata || jsonb_build_object('status', 'completed', 'debug_trace',
		        coalesce(metadata->>'debug_trace', '') || ' | recovered stale pending record'),
		    updated_at = now()
		WHERE metadata->>'status' = 'pending'
		  AND created_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListenSiftChanges issues LISTEN for the change feed. Must be called on a
// dedicated connection.
func (q *Queries) ListenSiftChanges(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `LISTEN sift_changes`)
	return err
}
