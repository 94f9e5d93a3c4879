// Package sqlite provides a draft.Saver backed by an in-memory SQLite
// database, so List filters and pagination run as SQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/flowgraph/creditflow/internal/core/draft"
	"github.com/flowgraph/creditflow/internal/infrastructure/logging"
	"github.com/flowgraph/creditflow/internal/infrastructure/metrics"
	"github.com/flowgraph/creditflow/pkg/serialization"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// DraftSaverConfig holds configuration for DraftSaver.
type DraftSaverConfig struct {
	TableName  string
	Serializer *serialization.Serializer
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
}

// DraftSaver implements draft.Saver for SQLite. The serialized draft is kept
// in one column; the remaining columns exist for filtering.
type DraftSaver struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

// NewDraftSaver wraps an open database. Call CreateTables before use.
func NewDraftSaver(db *sql.DB, config DraftSaverConfig) *DraftSaver {
	if config.Serializer == nil {
		config.Serializer = serialization.DefaultSerializer()
	}
	s := &DraftSaver{
		db:         db,
		serializer: config.Serializer,
		tableName:  "drafts",
		logger:     logging.OrNop(config.Logger).With(zap.String("component", "sqlite_draft_saver")),
		metrics:    config.Metrics,
	}
	if isSafeIdent(config.TableName) {
		s.tableName = config.TableName
	}
	return s
}

// OpenMemory opens an in-memory database and creates the draft table. The
// pool is pinned to one connection since every connection to :memory: sees
// its own database.
func OpenMemory(ctx context.Context, config DraftSaverConfig) (*DraftSaver, error) {
	db, err := sql.Open("sqlite", MemoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := NewDraftSaver(db, config)
	if err := s.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Only alphanumeric and underscore are permitted in the table name.
func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Save stores a draft, replacing one with the same ID.
func (s *DraftSaver) Save(ctx context.Context, d *draft.Draft) error {
	if d == nil {
		return draft.ErrInvalidDraftID
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("draft validation failed: %w", err)
	}

	data, err := s.serializer.Serialize(d)
	if err != nil {
		return fmt.Errorf("draft serialization failed: %w", err)
	}
	tags := d.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (id, name, tags, data, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query,
		d.ID, d.Name, string(tagsJSON), data, d.Timestamp.UnixNano(), d.Version); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	s.metrics.Draft("save")
	s.logger.Debug("draft saved", zap.String("id", d.ID), zap.Int("bytes", len(data)))
	return nil
}

// Load retrieves a draft by ID.
func (s *DraftSaver) Load(ctx context.Context, id string) (*draft.Draft, error) {
	if id == "" {
		return nil, draft.ErrInvalidDraftID
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE id = ?", s.tableName)
	var data []byte
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, draft.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	d, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	s.metrics.Draft("load")
	return d, nil
}

// List returns drafts matching the filter, newest first.
func (s *DraftSaver) List(ctx context.Context, filter draft.Filter) ([]*draft.Draft, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	drafts := make([]*draft.Draft, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan draft row: %w", err)
		}
		d, err := s.decode(data)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	s.metrics.Draft("list")
	return drafts, nil
}

// Delete removes a draft by ID.
func (s *DraftSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return draft.ErrInvalidDraftID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return draft.ErrDraftNotFound
	}

	s.metrics.Draft("delete")
	return nil
}

// CreateTables creates the draft table and its indexes.
func (s *DraftSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			data BLOB NOT NULL,
			timestamp INTEGER NOT NULL,
			version TEXT NOT NULL DEFAULT '1'
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s (timestamp);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// buildListQuery constructs the SQL query for listing drafts.
func (s *DraftSaver) buildListQuery(filter draft.Filter) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT data FROM %s WHERE 1=1", s.tableName)
	args := make([]interface{}, 0)

	if filter.Name != "" {
		b.WriteString(" AND instr(lower(name), lower(?)) > 0")
		args = append(args, filter.Name)
	}
	for _, tag := range filter.Tags {
		b.WriteString(" AND EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value = ?)")
		args = append(args, tag)
	}
	if filter.Since != nil {
		b.WriteString(" AND timestamp >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if filter.Before != nil {
		b.WriteString(" AND timestamp < ?")
		args = append(args, filter.Before.UnixNano())
	}

	b.WriteString(" ORDER BY timestamp DESC, id ASC")

	// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := -1
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, filter.Offset)
	}

	return b.String(), args
}

func (s *DraftSaver) decode(data []byte) (*draft.Draft, error) {
	var d draft.Draft
	if err := s.serializer.Deserialize(data, &d); err != nil {
		return nil, fmt.Errorf("draft deserialization failed: %w", err)
	}
	return &d, nil
}

// Close closes the database connection.
func (s *DraftSaver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
