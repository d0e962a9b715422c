// Package rules provides the CEL-Go based static rule evaluator.
//
// A rule table is an ordered list of (predicate, weight, reason) triples.
// Every predicate is evaluated independently -- rules are not mutually
// exclusive, all matching rules contribute -- and the total is clipped to
// [0,100] once, after the whole table has run. Reason fragments concatenate
// in table order, each terminated by "; ".
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ScoreMax bounds every risk score; ScoreMin is the lower clip.
const (
	ScoreMin = 0
	ScoreMax = 100
)

// Evaluator evaluates a fixed, ordered rule table against per-entity
// activations. Rules live in a slice, never a map, so evaluation order is
// identical on every run.
type Evaluator struct {
	rules []compiledRule
}

type compiledRule struct {
	cfg     domain.RuleConfig
	program cel.Program
}

// Result is the outcome of evaluating a full rule table for one entity.
type Result struct {
	// Score is the clipped sum of matched rule weights.
	Score int

	// ReasonSummary concatenates matched reasons in table order.
	ReasonSummary string

	// Fired lists the IDs of the rules that matched, in table order.
	Fired []string
}

// NewEvaluator compiles a rule table against the given CEL environment.
// Every expression must produce a boolean; anything else is a configuration
// error caught here, not at scoring time.
func NewEvaluator(env *cel.Env, cfgs []domain.RuleConfig) (*Evaluator, error) {
	if env == nil {
		return nil, fmt.Errorf("rules: environment is required")
	}

	ev := &Evaluator{rules: make([]compiledRule, 0, len(cfgs))}
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		if cfg.Weight < 0 {
			return nil, fmt.Errorf("rules: rule %s has negative weight %d", cfg.ID, cfg.Weight)
		}

		ast, issues := env.Compile(cfg.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rules: failed to compile rule %s: %w", cfg.ID, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rules: rule %s must return bool, got %s", cfg.ID, ast.OutputType())
		}

		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rules: failed to create program for rule %s: %w", cfg.ID, err)
		}

		ev.rules = append(ev.rules, compiledRule{cfg: cfg, program: program})
	}

	return ev, nil
}

// Evaluate runs the full table against one entity's activation variables.
func (e *Evaluator) Evaluate(activation map[string]any) (Result, error) {
	var res Result
	total := 0

	for _, rule := range e.rules {
		out, _, err := rule.program.Eval(activation)
		if err != nil {
			return Result{}, fmt.Errorf("rules: rule %s evaluation failed: %w", rule.cfg.ID, err)
		}

		matched, ok := out.(types.Bool)
		if !ok {
			return Result{}, fmt.Errorf("rules: rule %s produced non-boolean %v", rule.cfg.ID, out)
		}
		if !bool(matched) {
			continue
		}

		total += rule.cfg.Weight
		res.ReasonSummary += rule.cfg.Reason + "; "
		res.Fired = append(res.Fired, rule.cfg.ID)
	}

	res.Score = clip(total)
	return res, nil
}

// RulesCount returns the number of compiled rules.
func (e *Evaluator) RulesCount() int {
	return len(e.rules)
}

// clip bounds a raw weight sum to the score range. Applied once per entity,
// after all rules have contributed.
func clip(score int) int {
	if score > ScoreMax {
		return ScoreMax
	}
	if score < ScoreMin {
		return ScoreMin
	}
	return score
}
