package domain

import (
	"context"
	"time"
)

// Repository persists scored batch output. Scoring itself never touches the
// repository; the pipeline writes a full batch only after both scoring
// stages and the hybrid aggregation have completed.
type Repository interface {
	// Batch lifecycle
	SaveBatch(ctx context.Context, batch *Batch) error
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	LatestBatch(ctx context.Context) (*Batch, error)

	// Scored output, written per completed batch
	SaveScoredApplicants(ctx context.Context, batchID string, rows []ScoredApplicant) error
	SaveScoredTransactions(ctx context.Context, batchID string, rows []ScoredTransaction) error
	SaveProfiles(ctx context.Context, batchID string, profiles []CustomerProfile) error

	// Reporting reads
	GetProfile(ctx context.Context, batchID string, customerID string) (*CustomerProfile, error)
	ListProfiles(ctx context.Context, batchID string, status HybridStatus) ([]CustomerProfile, error)

	Ping(ctx context.Context) error
	Close() error
}

// Batch records one pipeline run.
type Batch struct {
	ID           string       `json:"id"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt"`
	Applicants   int          `json:"applicants"`
	Transactions int          `json:"transactions"`
	Customers    int          `json:"customers"`
	Summary      BatchSummary `json:"summary"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `json:"driver"`

	// SQLite settings (Community tier)
	SQLitePath string `json:"sqlitePath"`

	// PostgreSQL settings (Pro tier)
	PostgresHost     string `json:"postgresHost"`
	PostgresPort     int    `json:"postgresPort"`
	PostgresDB       string `json:"postgresDb"`
	PostgresUser     string `json:"postgresUser"`
	PostgresPassword string `json:"postgresPassword"`
	PostgresSSLMode  string `json:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}
