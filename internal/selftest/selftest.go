// Package selftest exercises every guardrail against known-violating and
// known-valid inputs. It is deterministic and side-effect free, usable as
// a startup canary (MustPass) or a non-fatal health probe (QuickCheck).
package selftest

import (
	"fmt"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/laws"
	"github.com/lumela/huecircle/internal/models"
)

// Failure is one assertion that did not behave as required.
type Failure struct {
	Name    string
	Message string
}

// Report summarizes one harness run.
type Report struct {
	Total    int
	Passed   int
	Failed   int
	Failures []Failure
}

// OK reports whether every assertion behaved as required.
func (r *Report) OK() bool { return r.Failed == 0 }

type check struct {
	name          string
	run           func() error
	wantViolation bool
}

func cases() []check {
	goodViewer := models.ToViewerPayload(identity.NewConnectionID(), models.ColorAmber, "Alex")
	return []check{
		// no-history law
		{"no-history accepts plain signal record", func() error {
			return laws.AssertNoHistory(map[string]any{"color": "cyan", "ttlExpiresAt": 1})
		}, false},
		{"no-history rejects top-level array", func() error {
			return laws.AssertNoHistory([]any{map[string]any{"color": "cyan"}})
		}, true},
		{"no-history rejects history lexicon key", func() error {
			return laws.AssertNoHistory(map[string]any{"signalHistory": []any{}})
		}, true},
		{"no-history rejects timestamp key", func() error {
			return laws.AssertNoHistory(map[string]any{"createdAt": 12345})
		}, true},
		{"no-history rejects nested At-suffix key", func() error {
			return laws.AssertNoHistory(map[string]any{"inner": map[string]any{"revokedAt": 1}})
		}, true},
		{"no-history rejects disguised object array", func() error {
			return laws.AssertNoHistory(map[string]any{"items": []any{
				map[string]any{"a": 1}, map[string]any{"b": 2},
			}})
		}, true},
		// no-aggregation law
		{"no-aggregation accepts zero", func() error {
			return laws.AssertNoAggregation(0)
		}, false},
		{"no-aggregation accepts the ceiling", func() error {
			return laws.AssertNoAggregation(laws.MaxConnections)
		}, false},
		{"no-aggregation rejects negative", func() error {
			return laws.AssertNoAggregation(-1)
		}, true},
		{"no-aggregation rejects ceiling+1", func() error {
			return laws.AssertNoAggregation(laws.MaxConnections + 1)
		}, true},
		// symmetry law
		{"symmetry accepts the sentinel", func() error {
			return laws.AssertSymmetry(laws.RelationBidirectional)
		}, false},
		{"symmetry rejects lowercase variant", func() error {
			return laws.AssertSymmetry("bidirectional")
		}, true},
		{"symmetry rejects one-way", func() error {
			return laws.AssertSymmetry("ONE_WAY")
		}, true},
		{"symmetry rejects empty tag", func() error {
			return laws.AssertSymmetry("")
		}, true},
		// viewer-safe law
		{"viewer-safe accepts minimal projection", func() error {
			return laws.AssertViewerSafe(goodViewer)
		}, false},
		{"viewer-safe rejects ttl leak", func() error {
			return laws.AssertViewerSafe(map[string]any{
				"connectionId": "c", "color": "red", "ttlExpiresAt": 1,
			})
		}, true},
		{"viewer-safe rejects owner leak", func() error {
			return laws.AssertViewerSafe(map[string]any{
				"connectionId": "c", "color": "red", "ownerId": "x",
			})
		}, true},
		{"viewer-safe rejects schema key", func() error {
			return laws.AssertViewerSafe(map[string]any{
				"connectionId": "c", "color": "red", "_v": 2,
			})
		}, true},
		{"viewer-safe rejects bad color", func() error {
			return laws.AssertViewerSafe(map[string]any{
				"connectionId": "c", "color": "chartreuse",
			})
		}, true},
		{"viewer-safe rejects array payload", func() error {
			return laws.AssertViewerSafe([]any{})
		}, true},
		// projection helper round-trip
		{"viewer projection always viewer-safe", func() error {
			p := models.ToViewerPayload(identity.NewConnectionID(), models.ColorRed, "")
			return laws.AssertViewerSafe(p)
		}, false},
	}
}

// Run executes the battery and returns the structured report.
func Run() *Report {
	r := &Report{}
	for _, c := range cases() {
		r.Total++
		err := c.run()
		gotViolation := laws.IsViolation(err)
		switch {
		case c.wantViolation && !gotViolation:
			r.Failed++
			r.Failures = append(r.Failures, Failure{
				Name:    c.name,
				Message: fmt.Sprintf("expected a law violation, got %v", err),
			})
		case !c.wantViolation && err != nil:
			r.Failed++
			r.Failures = append(r.Failures, Failure{
				Name:    c.name,
				Message: fmt.Sprintf("expected no error, got %v", err),
			})
		default:
			r.Passed++
		}
	}
	return r
}

// MustPass runs the battery and panics on any failure. Wire it into
// process startup so a broken guardrail can never reach users quietly.
func MustPass() {
	r := Run()
	if !r.OK() {
		panic(fmt.Sprintf("guardrail self-test failed: %d of %d checks, first: %s: %s",
			r.Failed, r.Total, r.Failures[0].Name, r.Failures[0].Message))
	}
}

// QuickCheck runs the battery and reports overall health. It never panics;
// use it for non-fatal health probes.
func QuickCheck() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return Run().OK()
}
