package rules

import (
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func creditActivation(overrides map[string]any) map[string]any {
	act := map[string]any{
		"dti":               0.2,
		"emi_ratio":         0.1,
		"open_credit_lines": int64(3),
		"real_estate_loans": int64(1),
		"monthly_income":    5000.0,
		"loan_amount":       10000.0,
		"dti_p80":           0.5,
		"emi_p80":           0.4,
		"income_p10":        1500.0,
		"loan_p75":          50000.0,
	}
	for k, v := range overrides {
		act[k] = v
	}
	return act
}

func newCreditEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	env, err := CreditEnv()
	if err != nil {
		t.Fatalf("failed to create env: %v", err)
	}
	ev, err := NewEvaluator(env, DefaultCreditRules())
	if err != nil {
		t.Fatalf("failed to compile rule table: %v", err)
	}
	return ev
}

func TestEvaluatorNoRulesFire(t *testing.T) {
	ev := newCreditEvaluator(t)

	res, err := ev.Evaluate(creditActivation(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 0 {
		t.Errorf("expected score 0, got %d", res.Score)
	}
	if res.ReasonSummary != "" {
		t.Errorf("expected empty reasons, got %q", res.ReasonSummary)
	}
}

func TestEvaluatorReasonOrderIsStable(t *testing.T) {
	ev := newCreditEvaluator(t)

	// Fires both High DTI (first row) and Low Income (fourth row); the
	// summary must always list them in table order.
	act := creditActivation(map[string]any{
		"dti":            0.9,
		"monthly_income": 100.0,
	})

	for i := 0; i < 10; i++ {
		res, err := ev.Evaluate(act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ReasonSummary != "High DTI; Low Income; " {
			t.Fatalf("run %d: got %q, want %q", i, res.ReasonSummary, "High DTI; Low Income; ")
		}
		if res.Score != 35 {
			t.Fatalf("run %d: got score %d, want 35", i, res.Score)
		}
	}
}

func TestEvaluatorAllCreditRulesFire(t *testing.T) {
	ev := newCreditEvaluator(t)

	act := creditActivation(map[string]any{
		"dti":               0.9,
		"emi_ratio":         0.8,
		"open_credit_lines": int64(0),
		"real_estate_loans": int64(0),
		"monthly_income":    100.0,
		"loan_amount":       90000.0,
	})

	res, err := ev.Evaluate(act)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Full table sums to 90; no clip needed.
	if res.Score != 90 {
		t.Errorf("expected score 90, got %d", res.Score)
	}
	if len(res.Fired) != 5 {
		t.Errorf("expected 5 fired rules, got %d", len(res.Fired))
	}
}

func TestEvaluatorClipsOnceAfterAllRules(t *testing.T) {
	env, err := CreditEnv()
	if err != nil {
		t.Fatalf("failed to create env: %v", err)
	}

	// Synthetic table whose raw sum exceeds the bound.
	table := []domain.RuleConfig{
		{ID: "a", Expression: "dti > 0.0", Weight: 60, Reason: "A", Enabled: true},
		{ID: "b", Expression: "dti > 0.0", Weight: 60, Reason: "B", Enabled: true},
	}
	ev, err := NewEvaluator(env, table)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	res, err := ev.Evaluate(creditActivation(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != ScoreMax {
		t.Errorf("expected clip to %d, got %d", ScoreMax, res.Score)
	}
	if res.ReasonSummary != "A; B; " {
		t.Errorf("clip must not drop reasons: got %q", res.ReasonSummary)
	}
}

func TestEvaluatorRejectsNonBooleanRule(t *testing.T) {
	env, _ := CreditEnv()
	_, err := NewEvaluator(env, []domain.RuleConfig{
		{ID: "bad", Expression: "dti + 1.0", Weight: 10, Reason: "Bad", Enabled: true},
	})
	if err == nil {
		t.Fatal("expected error for non-boolean expression")
	}
}

func TestEvaluatorRejectsInvalidExpression(t *testing.T) {
	env, _ := CreditEnv()
	_, err := NewEvaluator(env, []domain.RuleConfig{
		{ID: "bad", Expression: "this is not CEL !!!", Weight: 10, Reason: "Bad", Enabled: true},
	})
	if err == nil {
		t.Fatal("expected error for invalid expression")
	}
}

func TestEvaluatorSkipsDisabledRules(t *testing.T) {
	env, _ := CreditEnv()
	table := []domain.RuleConfig{
		{ID: "on", Expression: "dti > 0.0", Weight: 10, Reason: "On", Enabled: true},
		{ID: "off", Expression: "dti > 0.0", Weight: 90, Reason: "Off", Enabled: false},
	}
	ev, err := NewEvaluator(env, table)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	if ev.RulesCount() != 1 {
		t.Fatalf("expected 1 compiled rule, got %d", ev.RulesCount())
	}

	res, _ := ev.Evaluate(creditActivation(nil))
	if res.Score != 10 {
		t.Errorf("disabled rule contributed: score %d", res.Score)
	}
}

func TestFraudTableDoubleCountsExtremeAmounts(t *testing.T) {
	env, err := FraudEnv()
	if err != nil {
		t.Fatalf("failed to create env: %v", err)
	}
	ev, err := NewEvaluator(env, DefaultFraudRules())
	if err != nil {
		t.Fatalf("failed to compile fraud table: %v", err)
	}

	base := map[string]any{
		"amount":             0.0,
		"hour":               int64(12),
		"high_risk_merchant": false,
		"txn_count_5min":     1.0,
		"txn_count_1h":       1.0,
		"geo_inconsistency":  false,
		"amount_p95":         100.0,
		"amount_p99":         500.0,
		"burst_threshold":    5.0,
		"velocity_threshold": 10.0,
	}

	t.Run("95th-99th band scores 15", func(t *testing.T) {
		act := map[string]any{}
		for k, v := range base {
			act[k] = v
		}
		act["amount"] = 200.0
		res, err := ev.Evaluate(act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Score != 15 {
			t.Errorf("expected 15, got %d", res.Score)
		}
		if res.ReasonSummary != "High Value; " {
			t.Errorf("got %q", res.ReasonSummary)
		}
	})

	t.Run("above 99th scores layered 20+15+5", func(t *testing.T) {
		act := map[string]any{}
		for k, v := range base {
			act[k] = v
		}
		act["amount"] = 1000.0
		res, err := ev.Evaluate(act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Score != 40 {
			t.Errorf("expected 40, got %d", res.Score)
		}
		want := "Extreme Price Shock; High Value; Extreme Value; "
		if res.ReasonSummary != want {
			t.Errorf("got %q, want %q", res.ReasonSummary, want)
		}
	})
}
