// Package pipeline orchestrates one scoring batch: load the cleaned tables,
// score credit and fraud in parallel, build the hybrid profiles, and emit
// reports, persistence writes, and events.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/harrier/internal/backtest"
	"github.com/opensource-finance/harrier/internal/credit"
	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/hybrid"
)

var tracer = otel.Tracer("harrier-pipeline")

// Output file names, written under the configured output directory.
const (
	CreditScoresFile = "credit_risk_scores.csv"
	FraudScoresFile  = "fraud_risk_scores.csv"
	ProfilesFile     = "hybrid_customer_profiles.csv"
	SummaryFile      = "hybrid_risk_report.csv"
	BacktestFile     = "backtest_summary.csv"
)

// Pipeline runs scoring batches. Repository, cache, and bus are optional;
// a nil component is skipped.
type Pipeline struct {
	cfg    domain.PipelineConfig
	credit *credit.Scorer
	fraud  *fraud.Scorer
	repo   domain.Repository
	cache  domain.Cache
	bus    domain.EventBus

	mu   sync.Mutex
	last *Result
}

// Result is the in-memory output of one batch run.
type Result struct {
	Batch        *domain.Batch
	Applicants   []domain.ScoredApplicant
	Transactions []domain.ScoredTransaction
	Profiles     []domain.CustomerProfile
	Backtest     []domain.MonthlyBacktest
}

// BatchEvent is the payload published on the batch stage topics.
type BatchEvent struct {
	BatchID string `json:"batchId"`
	Stage   string `json:"stage"`
	Rows    int    `json:"rows"`
}

// AlertEvent is the payload published per Hypersensitive customer.
type AlertEvent struct {
	BatchID      string  `json:"batchId"`
	CustomerID   string  `json:"customerId"`
	HybridScore  float64 `json:"hybridRiskScore"`
	HybridStatus string  `json:"hybridRiskStatus"`
}

// New creates a pipeline with the given scorers and optional infrastructure.
func New(cfg domain.PipelineConfig, creditScorer *credit.Scorer, fraudScorer *fraud.Scorer, repo domain.Repository, cache domain.Cache, bus domain.EventBus) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		credit: creditScorer,
		fraud:  fraudScorer,
		repo:   repo,
		cache:  cache,
		bus:    bus,
	}
}

// Run executes one full batch and returns the scored output.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	batchID := uuid.New().String()
	started := time.Now().UTC()

	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.String("batch.id", batchID)),
	)
	defer span.End()

	slog.Info("batch started",
		"batch_id", batchID,
		"applicants_path", p.cfg.ApplicantsPath,
		"transactions_path", p.cfg.TransactionsPath,
	)

	applicants, txns, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	scoredApplicants, scoredTxns, err := p.score(ctx, batchID, applicants, txns)
	if err != nil {
		return nil, err
	}

	// Hybrid aggregation requires both scoring stages complete.
	profiles := hybrid.BuildProfiles(scoredApplicants, scoredTxns)
	summary := hybrid.Summarize(batchID, profiles)
	monthly := backtest.Monthly(scoredTxns)

	p.publishStage(ctx, domain.TopicHybridBuilt, batchID, "hybrid", len(profiles))

	result := &Result{
		Batch: &domain.Batch{
			ID:           batchID,
			StartedAt:    started,
			FinishedAt:   time.Now().UTC(),
			Applicants:   len(scoredApplicants),
			Transactions: len(scoredTxns),
			Customers:    len(profiles),
			Summary:      summary,
		},
		Applicants:   scoredApplicants,
		Transactions: scoredTxns,
		Profiles:     profiles,
		Backtest:     monthly,
	}

	if err := p.writeReports(ctx, result); err != nil {
		return nil, err
	}
	if err := p.persist(ctx, result); err != nil {
		return nil, err
	}
	p.cacheProfiles(ctx, profiles)
	p.publishAlerts(ctx, batchID, profiles)

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	slog.Info("batch finished",
		"batch_id", batchID,
		"applicants", len(scoredApplicants),
		"transactions", len(scoredTxns),
		"customers", len(profiles),
		"high_risk_pct", summary.HighRiskPct,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return result, nil
}

// LastResult returns the most recent completed batch, or nil if none has
// run in this process.
func (p *Pipeline) LastResult() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// load reads the cleaned input tables.
func (p *Pipeline) load(ctx context.Context) ([]domain.Applicant, []domain.Transaction, error) {
	_, span := tracer.Start(ctx, "pipeline.load")
	defer span.End()

	applicants, err := dataset.ReadApplicants(p.cfg.ApplicantsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load applicants: %w", err)
	}

	txns, err := dataset.ReadTransactions(p.cfg.TransactionsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	span.SetAttributes(
		attribute.Int("applicants", len(applicants)),
		attribute.Int("transactions", len(txns)),
	)

	return applicants, txns, nil
}

// score runs the credit and fraud scorers in parallel and joins on both
// before returning. Either stage failing fails the batch.
func (p *Pipeline) score(ctx context.Context, batchID string, applicants []domain.Applicant, txns []domain.Transaction) ([]domain.ScoredApplicant, []domain.ScoredTransaction, error) {
	ctx, span := tracer.Start(ctx, "pipeline.score")
	defer span.End()

	var (
		wg               sync.WaitGroup
		scoredApplicants []domain.ScoredApplicant
		scoredTxns       []domain.ScoredTransaction
		creditErr        error
		fraudErr         error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		scoredApplicants, creditErr = p.credit.ScoreBatch(ctx, applicants)
	}()
	go func() {
		defer wg.Done()
		scoredTxns, fraudErr = p.fraud.ScoreBatch(ctx, txns)
	}()
	wg.Wait()

	if creditErr != nil {
		return nil, nil, fmt.Errorf("credit scoring failed: %w", creditErr)
	}
	if fraudErr != nil {
		return nil, nil, fmt.Errorf("fraud scoring failed: %w", fraudErr)
	}

	p.publishStage(ctx, domain.TopicCreditScored, batchID, "credit", len(scoredApplicants))
	p.publishStage(ctx, domain.TopicFraudScored, batchID, "fraud", len(scoredTxns))

	return scoredApplicants, scoredTxns, nil
}

// writeReports emits the scored tables and reports as CSV.
func (p *Pipeline) writeReports(ctx context.Context, result *Result) error {
	_, span := tracer.Start(ctx, "pipeline.writeReports")
	defer span.End()

	dir := p.cfg.OutputDir
	if dir == "" {
		return nil
	}

	writes := []struct {
		name string
		fn   func() error
	}{
		{CreditScoresFile, func() error {
			return dataset.WriteScoredApplicants(filepath.Join(dir, CreditScoresFile), result.Applicants)
		}},
		{FraudScoresFile, func() error {
			return dataset.WriteScoredTransactions(filepath.Join(dir, FraudScoresFile), result.Transactions)
		}},
		{ProfilesFile, func() error {
			return dataset.WriteProfiles(filepath.Join(dir, ProfilesFile), result.Profiles)
		}},
		{SummaryFile, func() error {
			return dataset.WriteSummary(filepath.Join(dir, SummaryFile), result.Batch.Summary)
		}},
		{BacktestFile, func() error {
			return dataset.WriteBacktest(filepath.Join(dir, BacktestFile), result.Backtest)
		}},
	}

	for _, w := range writes {
		if err := w.fn(); err != nil {
			return fmt.Errorf("failed to write %s: %w", w.name, err)
		}
	}

	return nil
}

// persist stores the batch output in the repository.
func (p *Pipeline) persist(ctx context.Context, result *Result) error {
	if p.repo == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "pipeline.persist")
	defer span.End()

	batchID := result.Batch.ID
	if err := p.repo.SaveBatch(ctx, result.Batch); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	if err := p.repo.SaveScoredApplicants(ctx, batchID, result.Applicants); err != nil {
		return fmt.Errorf("failed to save scored applicants: %w", err)
	}
	if err := p.repo.SaveScoredTransactions(ctx, batchID, result.Transactions); err != nil {
		return fmt.Errorf("failed to save scored transactions: %w", err)
	}
	if err := p.repo.SaveProfiles(ctx, batchID, result.Profiles); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	return nil
}

// cacheProfiles warms the profile cache for the reporting API.
func (p *Pipeline) cacheProfiles(ctx context.Context, profiles []domain.CustomerProfile) {
	if p.cache == nil {
		return
	}

	for i := range profiles {
		if err := p.cache.SetProfile(ctx, &profiles[i], 10*time.Minute); err != nil {
			slog.Warn("failed to cache profile",
				"customer_id", profiles[i].CustomerID,
				"error", err,
			)
			return
		}
	}
}

// publishStage emits a batch stage event. Publish failures are logged but
// never fail the batch.
func (p *Pipeline) publishStage(ctx context.Context, topic, batchID, stage string, rows int) {
	if p.bus == nil {
		return
	}

	payload, _ := json.Marshal(BatchEvent{BatchID: batchID, Stage: stage, Rows: rows})
	if err := p.bus.Publish(ctx, topic, payload); err != nil {
		slog.Warn("failed to publish stage event",
			"topic", topic,
			"batch_id", batchID,
			"error", err,
		)
	}
}

// publishAlerts emits one alert per Hypersensitive customer.
func (p *Pipeline) publishAlerts(ctx context.Context, batchID string, profiles []domain.CustomerProfile) {
	if p.bus == nil {
		return
	}

	for i := range profiles {
		pr := &profiles[i]
		if pr.HybridStatus != domain.StatusHypersensitive {
			continue
		}

		payload, _ := json.Marshal(AlertEvent{
			BatchID:      batchID,
			CustomerID:   pr.CustomerID,
			HybridScore:  pr.HybridScore,
			HybridStatus: string(pr.HybridStatus),
		})
		if err := p.bus.Publish(ctx, domain.TopicCustomerAlert, payload); err != nil {
			slog.Warn("failed to publish customer alert",
				"customer_id", pr.CustomerID,
				"error", err,
			)
		}
	}
}
