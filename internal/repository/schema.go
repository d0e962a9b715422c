package repository

// Schema definitions for Harrier database.
// Compatible with both SQLite and PostgreSQL.

const schemaBatches = `
CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    applicants INTEGER NOT NULL,
    transactions INTEGER NOT NULL,
    customers INTEGER NOT NULL,
    high_risk_count INTEGER NOT NULL,
    high_risk_pct REAL NOT NULL,
    review_reduction_pct REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batches_finished ON batches(finished_at);
`

const schemaScoredApplicants = `
CREATE TABLE IF NOT EXISTS scored_applicants (
    batch_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    monthly_income REAL NOT NULL,
    debt_to_income REAL NOT NULL,
    emi_to_income REAL NOT NULL,
    open_credit_lines INTEGER NOT NULL,
    real_estate_loans INTEGER NOT NULL,
    loan_amount REAL NOT NULL,
    credit_risk_score INTEGER NOT NULL,
    risk_reason_summary TEXT NOT NULL,
    risk_band TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scored_applicants_batch ON scored_applicants(batch_id);
CREATE INDEX IF NOT EXISTS idx_scored_applicants_customer ON scored_applicants(batch_id, customer_id);
`

const schemaScoredTransactions = `
CREATE TABLE IF NOT EXISTS scored_transactions (
    batch_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    amount REAL NOT NULL,
    merchant_category TEXT NOT NULL,
    city TEXT NOT NULL,
    transaction_hour INTEGER NOT NULL,
    high_risk_merchant INTEGER NOT NULL,
    txn_count_5min INTEGER NOT NULL,
    txn_count_1h INTEGER NOT NULL,
    geo_inconsistency INTEGER NOT NULL,
    fraud_risk_score INTEGER NOT NULL,
    risk_reason_summary TEXT NOT NULL,
    risk_band TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scored_transactions_batch ON scored_transactions(batch_id);
CREATE INDEX IF NOT EXISTS idx_scored_transactions_customer ON scored_transactions(batch_id, customer_id);
CREATE INDEX IF NOT EXISTS idx_scored_transactions_timestamp ON scored_transactions(batch_id, timestamp);
`

const schemaCustomerProfiles = `
CREATE TABLE IF NOT EXISTS customer_profiles (
    batch_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    max_credit_score INTEGER NOT NULL,
    credit_risk_band TEXT NOT NULL,
    max_fraud_score INTEGER NOT NULL,
    fraud_risk_band TEXT NOT NULL,
    hybrid_score REAL NOT NULL,
    hybrid_status TEXT NOT NULL,
    avg_monthly_income REAL NOT NULL,
    avg_hourly_txns REAL NOT NULL,
    PRIMARY KEY (batch_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_customer_profiles_status ON customer_profiles(batch_id, hybrid_status);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaBatches,
		schemaScoredApplicants,
		schemaScoredTransactions,
		schemaCustomerProfiles,
	}
}
