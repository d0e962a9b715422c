package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/credit"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/rules"
)

const applicantsCSV = `CustomerID,MonthlyIncome,debt_to_income_ratio,emi_to_income_ratio,NumberOfOpenCreditLinesAndLoans,NumberRealEstateLoansOrLines,LoanAmount
c1,9000,0.10,0.05,4,1,10000
c2,6500,0.20,0.10,6,2,15000
c3,1200,0.90,0.70,2,1,60000
`

const transactionsCSV = `CustomerID,Time,Amount,MerchantCategory,City,transaction_hour,is_high_risk_merchant
c1,0,120.50,Grocery,Austin,9,0
c2,3600,450.00,Electronics,Dallas,10,1
c3,14400,15000.00,Jewelry,Houston,3,1
c3,14700,9000.00,Jewelry,Miami,3,1
`

// createTestServer wires a server against a temp SQLite repository and a
// pipeline reading fixture CSVs. No event bus, so POST /run is synchronous.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	applicantsPath := filepath.Join(dir, "credit.csv")
	txnsPath := filepath.Join(dir, "txns.csv")
	if err := os.WriteFile(applicantsPath, []byte(applicantsCSV), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.WriteFile(txnsPath, []byte(transactionsCSV), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(dir, "harrier.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	profileCache, err := cache.New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { profileCache.Close() })

	creditScorer, err := credit.NewScorer(rules.DefaultCreditRules())
	if err != nil {
		t.Fatalf("failed to build credit scorer: %v", err)
	}
	fraudScorer, err := fraud.NewScorer(rules.DefaultScoringConfig())
	if err != nil {
		t.Fatalf("failed to build fraud scorer: %v", err)
	}

	cfg := domain.PipelineConfig{
		ApplicantsPath:   applicantsPath,
		TransactionsPath: txnsPath,
		OutputDir:        dir,
	}
	p := pipeline.New(cfg, creditScorer, fraudScorer, repo, profileCache, nil)

	serverCfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	return NewServer(serverCfg, repo, profileCache, nil, p, "test-v1")
}

func doRequest(server *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t)

	rr := doRequest(server, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	var health map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("invalid health response: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected healthy, got %s", health["status"])
	}
	if health["version"] != "test-v1" {
		t.Errorf("expected version test-v1, got %s", health["version"])
	}

	rr = doRequest(server, http.MethodGet, "/ready")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestReportingFlow(t *testing.T) {
	server := createTestServer(t)

	t.Run("BacktestBeforeAnyRun", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/backtest")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404 before first run, got %d", rr.Code)
		}
	})

	var batchID string

	t.Run("RunBatchSynchronously", func(t *testing.T) {
		rr := doRequest(server, http.MethodPost, "/run")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp RunResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid run response: %v", err)
		}
		if !resp.Accepted || resp.BatchID == "" {
			t.Fatalf("expected accepted run with batch ID, got %+v", resp)
		}
		if resp.Summary == nil || resp.Summary.TotalCustomers != 3 {
			t.Errorf("expected summary over 3 customers, got %+v", resp.Summary)
		}
		batchID = resp.BatchID
	})

	t.Run("GetBatch", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/batches/"+batchID)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		var batch domain.Batch
		if err := json.Unmarshal(rr.Body.Bytes(), &batch); err != nil {
			t.Fatalf("invalid batch response: %v", err)
		}
		if batch.Applicants != 3 || batch.Transactions != 4 {
			t.Errorf("unexpected batch counts: %+v", batch)
		}
	})

	t.Run("GetBatchNotFound", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/batches/nonexistent")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("ListProfiles", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/profiles")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		var resp struct {
			BatchID  string                   `json:"batchId"`
			Profiles []domain.CustomerProfile `json:"profiles"`
			Count    int                      `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid profiles response: %v", err)
		}
		if resp.BatchID != batchID {
			t.Errorf("expected batch %s, got %s", batchID, resp.BatchID)
		}
		if resp.Count != 3 {
			t.Errorf("expected 3 profiles, got %d", resp.Count)
		}
	})

	t.Run("ListProfilesBadStatus", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/profiles?status=Bogus")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("GetProfile", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/profiles/c1")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		var profile domain.CustomerProfile
		if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
			t.Fatalf("invalid profile response: %v", err)
		}
		if profile.CustomerID != "c1" {
			t.Errorf("expected c1, got %s", profile.CustomerID)
		}
	})

	t.Run("GetProfileNotFound", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/profiles/nobody")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("GetSummary", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/summary")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		var summary domain.BatchSummary
		if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
			t.Fatalf("invalid summary response: %v", err)
		}
		if summary.TotalCustomers != 3 {
			t.Errorf("expected 3 customers, got %d", summary.TotalCustomers)
		}
	})

	t.Run("GetBacktest", func(t *testing.T) {
		rr := doRequest(server, http.MethodGet, "/backtest")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		var resp struct {
			BatchID string                   `json:"batchId"`
			Months  []domain.MonthlyBacktest `json:"months"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid backtest response: %v", err)
		}
		if len(resp.Months) == 0 {
			t.Error("expected at least one backtest month")
		}
	})
}
