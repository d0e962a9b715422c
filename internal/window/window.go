// Package window computes per-customer time-windowed transaction features.
//
// This is the behavioral half of fraud scoring: trailing-window counts and
// the sequential geo-consistency check. Everything here is pure batch
// computation over an in-memory table; velocity state is never persisted
// between runs.
package window

import (
	"sort"
	"sync"
)

// Default window sizes, in seconds.
const (
	DefaultBurstWindowSecs    = 300
	DefaultVelocityWindowSecs = 3600

	// DefaultGeoGapSecs is the largest same-customer city-change gap still
	// treated as travel-time infeasible.
	DefaultGeoGapSecs = 3600
)

// Config parameterizes feature extraction.
type Config struct {
	BurstWindowSecs    int
	VelocityWindowSecs int
	GeoGapSecs         int

	// MaxWorkers bounds the number of customer partitions processed
	// concurrently. Zero means a sensible default.
	MaxWorkers int
}

func (c Config) withDefaults() Config {
	if c.BurstWindowSecs <= 0 {
		c.BurstWindowSecs = DefaultBurstWindowSecs
	}
	if c.VelocityWindowSecs <= 0 {
		c.VelocityWindowSecs = DefaultVelocityWindowSecs
	}
	if c.GeoGapSecs <= 0 {
		c.GeoGapSecs = DefaultGeoGapSecs
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 8
	}
	return c
}

// Record is the minimal transaction view the extractor needs.
type Record struct {
	CustomerID string
	Timestamp  int64 // seconds
	City       string
}

// Features holds the extracted values for one record, in the extractor's
// canonical (customer, timestamp) order.
type Features struct {
	// Self-inclusive trailing-window counts. Always >= 1.
	Count5Min int
	Count1H   int

	// Predecessor lookup: the same customer's immediately preceding
	// transaction, or HasPrev=false for the customer's first.
	HasPrev  bool
	PrevCity string
	PrevTime int64

	// GeoInconsistency is true iff a predecessor exists in a different
	// city within GeoGapSecs.
	GeoInconsistency bool
}

// Extract computes window features for a batch of records.
//
// The input need not be ordered: records are defensively sorted by
// (customer, timestamp) before windowing, with a stable sort so equal
// timestamps keep their input order. The returned order slice maps output
// position i to the original input index, and features[i] belongs to
// records[order[i]].
//
// Records with an empty customer id are excluded from windowing: their
// counts fall back to the self-inclusive minimum of 1 and they never carry
// a predecessor.
func Extract(records []Record, cfg Config) (features []Features, order []int) {
	cfg = cfg.withDefaults()

	order = make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := records[order[a]], records[order[b]]
		if ra.CustomerID != rb.CustomerID {
			return ra.CustomerID < rb.CustomerID
		}
		return ra.Timestamp < rb.Timestamp
	})

	features = make([]Features, len(records))

	// Partition boundaries over the sorted view. Each partition is one
	// customer's time-ordered sequence and is independent of every other.
	type span struct{ lo, hi int }
	var spans []span
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && records[order[hi]].CustomerID == records[order[lo]].CustomerID {
			hi++
		}
		spans = append(spans, span{lo, hi})
		lo = hi
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.MaxWorkers)

	for _, s := range spans {
		wg.Add(1)
		go func(s span) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if records[order[s.lo]].CustomerID == "" {
				for i := s.lo; i < s.hi; i++ {
					features[i] = Features{Count5Min: 1, Count1H: 1}
				}
				return
			}
			extractPartition(records, order, features, s.lo, s.hi, cfg)
		}(s)
	}

	wg.Wait()
	return features, order
}

// extractPartition computes features for one customer's sorted slice
// [lo, hi) using two sliding left pointers, one per window. Each pointer
// only ever advances, so the partition is linear in its length.
func extractPartition(records []Record, order []int, features []Features, lo, hi int, cfg Config) {
	burst := int64(cfg.BurstWindowSecs)
	velocity := int64(cfg.VelocityWindowSecs)
	geoGap := int64(cfg.GeoGapSecs)

	left5, left1h := lo, lo
	for i := lo; i < hi; i++ {
		cur := records[order[i]]

		// Window is (t-W, t]: the current transaction always counts
		// itself, a transaction exactly W seconds old does not.
		for cur.Timestamp-records[order[left5]].Timestamp >= burst {
			left5++
		}
		for cur.Timestamp-records[order[left1h]].Timestamp >= velocity {
			left1h++
		}

		f := Features{
			Count5Min: i - left5 + 1,
			Count1H:   i - left1h + 1,
		}

		if i > lo {
			prev := records[order[i-1]]
			f.HasPrev = true
			f.PrevCity = prev.City
			f.PrevTime = prev.Timestamp
			f.GeoInconsistency = cur.City != prev.City &&
				cur.Timestamp-prev.Timestamp <= geoGap
		}

		features[i] = f
	}
}
