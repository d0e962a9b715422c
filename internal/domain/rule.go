package domain

// RuleConfig defines one scoring rule: a CEL predicate over the entity's
// activation variables, the points it contributes when it fires, and the
// reason fragment appended to the entity's reason summary.
//
// Rules are held in ordered slices, never maps: evaluation order is part of
// the scoring contract (reason summaries concatenate in table order).
type RuleConfig struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Weight     int    `json:"weight"`
	Reason     string `json:"reason"`
	Enabled    bool   `json:"enabled"`
}

// ScoringConfig carries the full rule and threshold parameterization for one
// batch run. It replaces what the legacy pipeline kept as module-level
// globals, so independent batches and tests can score with independent
// parameters.
type ScoringConfig struct {
	CreditRules []RuleConfig `json:"creditRules"`
	FraudRules  []RuleConfig `json:"fraudRules"`

	// HighRiskMerchants derives the merchant flag when the cleaned input
	// does not carry one.
	HighRiskMerchants []string `json:"highRiskMerchants"`

	// Trailing window sizes, in seconds.
	BurstWindowSecs    int `json:"burstWindowSecs"`
	VelocityWindowSecs int `json:"velocityWindowSecs"`

	// Floors for the velocity thresholds: the empirical quantile is never
	// allowed below these, keeping small batches from flagging everything.
	BurstFloor    float64 `json:"burstFloor"`
	VelocityFloor float64 `json:"velocityFloor"`
}
