// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveBatch stores a completed batch record.
func (r *SQLRepository) SaveBatch(ctx context.Context, batch *domain.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("%w: batch ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO batches (
			id, started_at, finished_at, applicants, transactions, customers,
			high_risk_count, high_risk_pct, review_reduction_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		batch.ID, batch.StartedAt, batch.FinishedAt,
		batch.Applicants, batch.Transactions, batch.Customers,
		batch.Summary.HighRiskCount, batch.Summary.HighRiskPct,
		batch.Summary.ReviewReductionPct,
	)
	return err
}

// GetBatch retrieves a batch record by ID.
func (r *SQLRepository) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	query := `
		SELECT id, started_at, finished_at, applicants, transactions, customers,
			   high_risk_count, high_risk_pct, review_reduction_pct
		FROM batches
		WHERE id = ?
	`

	return r.scanBatch(r.db.QueryRowContext(ctx, r.rebind(query), batchID))
}

// LatestBatch retrieves the most recently finished batch.
func (r *SQLRepository) LatestBatch(ctx context.Context) (*domain.Batch, error) {
	query := `
		SELECT id, started_at, finished_at, applicants, transactions, customers,
			   high_risk_count, high_risk_pct, review_reduction_pct
		FROM batches
		ORDER BY finished_at DESC
		LIMIT 1
	`

	return r.scanBatch(r.db.QueryRowContext(ctx, r.rebind(query)))
}

func (r *SQLRepository) scanBatch(row *sql.Row) (*domain.Batch, error) {
	var b domain.Batch

	err := row.Scan(
		&b.ID, &b.StartedAt, &b.FinishedAt,
		&b.Applicants, &b.Transactions, &b.Customers,
		&b.Summary.HighRiskCount, &b.Summary.HighRiskPct,
		&b.Summary.ReviewReductionPct,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.Summary.BatchID = b.ID
	b.Summary.TotalCustomers = b.Customers

	return &b, nil
}

// SaveScoredApplicants stores the credit scoring output for a batch.
func (r *SQLRepository) SaveScoredApplicants(ctx context.Context, batchID string, rows []domain.ScoredApplicant) error {
	if batchID == "" {
		return fmt.Errorf("%w: batchID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO scored_applicants (
			batch_id, customer_id, monthly_income, debt_to_income, emi_to_income,
			open_credit_lines, real_estate_loans, loan_amount,
			credit_risk_score, risk_reason_summary, risk_band
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.rebind(query))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range rows {
			a := &rows[i]
			if _, err := stmt.ExecContext(ctx,
				batchID, a.CustomerID, a.MonthlyIncome, a.DebtToIncome,
				a.EMIToIncome, a.OpenCreditLines, a.RealEstateLoans, a.LoanAmount,
				a.CreditRiskScore, a.RiskReasonSummary, string(a.RiskBand),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveScoredTransactions stores the fraud scoring output for a batch.
func (r *SQLRepository) SaveScoredTransactions(ctx context.Context, batchID string, rows []domain.ScoredTransaction) error {
	if batchID == "" {
		return fmt.Errorf("%w: batchID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO scored_transactions (
			batch_id, customer_id, timestamp, amount, merchant_category, city,
			transaction_hour, high_risk_merchant,
			txn_count_5min, txn_count_1h, geo_inconsistency,
			fraud_risk_score, risk_reason_summary, risk_band
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.rebind(query))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range rows {
			t := &rows[i]
			if _, err := stmt.ExecContext(ctx,
				batchID, t.CustomerID, t.Timestamp, t.Amount,
				t.MerchantCategory, t.City, t.Hour, boolToInt(t.HighRiskMerchant),
				t.TxnCount5Min, t.TxnCount1H, boolToInt(t.GeoInconsistency),
				t.FraudRiskScore, t.RiskReasonSummary, string(t.RiskBand),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveProfiles stores the hybrid customer profiles for a batch.
func (r *SQLRepository) SaveProfiles(ctx context.Context, batchID string, profiles []domain.CustomerProfile) error {
	if batchID == "" {
		return fmt.Errorf("%w: batchID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO customer_profiles (
			batch_id, customer_id, max_credit_score, credit_risk_band,
			max_fraud_score, fraud_risk_band, hybrid_score, hybrid_status,
			avg_monthly_income, avg_hourly_txns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.rebind(query))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range profiles {
			p := &profiles[i]
			if _, err := stmt.ExecContext(ctx,
				batchID, p.CustomerID,
				p.MaxCreditScore, string(p.CreditRiskBand),
				p.MaxFraudScore, string(p.FraudRiskBand),
				p.HybridScore, string(p.HybridStatus),
				p.AvgMonthlyIncome, p.AvgHourlyTxns,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetProfile retrieves a single customer profile from a batch.
func (r *SQLRepository) GetProfile(ctx context.Context, batchID string, customerID string) (*domain.CustomerProfile, error) {
	if batchID == "" {
		return nil, fmt.Errorf("%w: batchID is required", ErrInvalidInput)
	}

	query := `
		SELECT customer_id, max_credit_score, credit_risk_band,
			   max_fraud_score, fraud_risk_band, hybrid_score, hybrid_status,
			   avg_monthly_income, avg_hourly_txns
		FROM customer_profiles
		WHERE batch_id = ? AND customer_id = ?
	`

	var p domain.CustomerProfile
	err := r.db.QueryRowContext(ctx, r.rebind(query), batchID, customerID).Scan(
		&p.CustomerID, &p.MaxCreditScore, &p.CreditRiskBand,
		&p.MaxFraudScore, &p.FraudRiskBand, &p.HybridScore, &p.HybridStatus,
		&p.AvgMonthlyIncome, &p.AvgHourlyTxns,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ListProfiles retrieves customer profiles from a batch, optionally filtered
// by hybrid status. An empty status returns all profiles.
func (r *SQLRepository) ListProfiles(ctx context.Context, batchID string, status domain.HybridStatus) ([]domain.CustomerProfile, error) {
	if batchID == "" {
		return nil, fmt.Errorf("%w: batchID is required", ErrInvalidInput)
	}

	query := `
		SELECT customer_id, max_credit_score, credit_risk_band,
			   max_fraud_score, fraud_risk_band, hybrid_score, hybrid_status,
			   avg_monthly_income, avg_hourly_txns
		FROM customer_profiles
		WHERE batch_id = ?
	`
	args := []any{batchID}

	if status != "" {
		query += ` AND hybrid_status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY customer_id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.CustomerProfile
	for rows.Next() {
		var p domain.CustomerProfile
		if err := rows.Scan(
			&p.CustomerID, &p.MaxCreditScore, &p.CreditRiskBand,
			&p.MaxFraudScore, &p.FraudRiskBand, &p.HybridScore, &p.HybridStatus,
			&p.AvgMonthlyIncome, &p.AvgHourlyTxns,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// inTx runs fn inside a transaction, rolling back on error.
func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
