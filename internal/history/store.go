// Package history persists parse run snapshots to ClickHouse for later
// analytics. The store is optional supporting infrastructure: the parse
// pipeline itself never depends on it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"terraform-archviz/internal/summary"
	"terraform-archviz/pkg/arch"
	"terraform-archviz/pkg/platform"
)

// Snapshot is one recorded parse run.
type Snapshot struct {
	ID               uuid.UUID `ch:"id" json:"id"`
	Source           string    `ch:"source" json:"source"` // file name or "api"
	Provider         string    `ch:"provider" json:"provider"`
	StateVersion     uint8     `ch:"state_version" json:"state_version"`
	TerraformVersion string    `ch:"terraform_version" json:"terraform_version"`
	ResourceCount    uint32    `ch:"resource_count" json:"resource_count"`
	EdgeCount        uint32    `ch:"edge_count" json:"edge_count"`
	GroupCount       uint32    `ch:"group_count" json:"group_count"`
	SummaryJSON      string    `ch:"summary_json" json:"summary_json"`
	CreatedAt        time.Time `ch:"created_at" json:"created_at"`
}

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns configuration from the CLICKHOUSE_* environment
// variables, falling back to development defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:     platform.GetEnv("CLICKHOUSE_HOST", "localhost"),
		Port:     platform.GetEnvInt("CLICKHOUSE_PORT", 9000),
		Database: platform.GetEnv("CLICKHOUSE_DATABASE", "archviz"),
		Username: platform.GetEnv("CLICKHOUSE_USER", "default"),
		Password: platform.GetEnv("CLICKHOUSE_PASSWORD", ""),
		Debug:    platform.GetEnvBool("CLICKHOUSE_DEBUG", false),
	}
}

// Store records parse snapshots in ClickHouse.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore connects to ClickHouse with the given configuration.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Migrate creates the snapshot table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS parse_snapshots (
			id UUID,
			source String,
			provider LowCardinality(String),
			state_version UInt8,
			terraform_version String,
			resource_count UInt32,
			edge_count UInt32,
			group_count UInt32,
			summary_json String,
			created_at DateTime
		) ENGINE = MergeTree()
		ORDER BY (created_at, id)
	`
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create parse_snapshots table: %w", err)
	}
	return nil
}

// newSnapshot maps one parse run onto the stored row.
func newSnapshot(source string, a *arch.Architecture, sum *summary.Summary) (*Snapshot, error) {
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	groupCount := 0
	a.Groups.Walk(func(*arch.GroupNode) { groupCount++ })

	return &Snapshot{
		ID:               a.RunID,
		Source:           source,
		Provider:         string(a.Provider),
		StateVersion:     uint8(a.StateVersion),
		TerraformVersion: a.TerraformVersion,
		ResourceCount:    uint32(len(a.Resources)),
		EdgeCount:        uint32(len(a.Edges)),
		GroupCount:       uint32(groupCount),
		SummaryJSON:      string(summaryJSON),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// Record stores one parse run.
func (s *Store) Record(ctx context.Context, source string, a *arch.Architecture, sum *summary.Summary) (*Snapshot, error) {
	snap, err := newSnapshot(source, a, sum)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO parse_snapshots (
			id, source, provider, state_version, terraform_version,
			resource_count, edge_count, group_count, summary_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query,
		snap.ID,
		snap.Source,
		snap.Provider,
		snap.StateVersion,
		snap.TerraformVersion,
		snap.ResourceCount,
		snap.EdgeCount,
		snap.GroupCount,
		snap.SummaryJSON,
		snap.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert parse snapshot: %w", err)
	}
	return snap, nil
}

// Recent returns the most recent snapshots, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, source, provider, state_version, terraform_version,
		       resource_count, edge_count, group_count, summary_json, created_at
		FROM parse_snapshots
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query parse snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.ID,
			&snap.Source,
			&snap.Provider,
			&snap.StateVersion,
			&snap.TerraformVersion,
			&snap.ResourceCount,
			&snap.EdgeCount,
			&snap.GroupCount,
			&snap.SummaryJSON,
			&snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan parse snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
