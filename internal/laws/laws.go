// Package laws implements the runtime guardrails of the presence-signal
// subsystem. Each assertion either returns nil or a *Violation describing
// which safety law an operation would break.
//
// Violations are hard stops, not soft validations: callers must propagate
// them, never catch-and-suppress. MustPass turns a Violation into a panic
// for startup canaries and other non-interactive contexts.
package laws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// MaxConnections is the ceiling on active connections per user. It bounds
// both the stored connection set and any batch read across peers.
const MaxConnections = 25

// RelationBidirectional is the only relationship tag the subsystem accepts.
const RelationBidirectional = "BIDIRECTIONAL"

// Law identifies the safety invariant a violation broke. Its value is the
// stable code emitted to audit logs.
type Law string

const (
	LawNoHistory     Law = "history-detected"
	LawNoAggregation Law = "aggregation-exceeded"
	LawSymmetry      Law = "asymmetric-relation"
	LawViewerSafe    Law = "viewer-unsafe"
)

// Violation is a non-recoverable guardrail breach. It indicates a
// programming error in a caller, not a user-facing condition.
type Violation struct {
	Law    Law
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("law violation [%s]: %s", v.Law, v.Detail)
}

func violate(law Law, format string, args ...any) *Violation {
	return &Violation{Law: law, Detail: fmt.Sprintf(format, args...)}
}

// IsViolation reports whether err is (or wraps) a guardrail Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// MustPass panics if err is a Violation and returns err unchanged otherwise.
// Use it on paths where a violation must crash rather than propagate.
func MustPass(err error) error {
	if IsViolation(err) {
		panic(err)
	}
	return err
}

// historyLexicon matches keys that smell like stored history. Matching is
// case-insensitive substring, per the no-history law: a field named
// "loginHistory" or "trendData" is disguised history even if its value is
// a scalar today.
var historyLexicon = []string{"history", "timeline", "archive", "log", "trend"}

// timestampLexicon matches keys that carry time metadata.
var timestampLexicon = []string{"createdat", "updatedat", "timestamp"}

// ttlWhitelistKey is the single timestamp field a stored signal may carry.
const ttlWhitelistKey = "ttlExpiresAt"

// AssertNoHistory rejects any payload that stores, or could be used to
// reconstruct, a history of signals.
//
// Rejected shapes:
//   - a top-level array (a list is a timeline);
//   - any key matching the history lexicon (substring, case-insensitive);
//   - any key matching the timestamp lexicon or ending in "At" (length > 2),
//     except the whitelisted ttlExpiresAt;
//   - any nested array of two or more objects, or an array whose elements
//     carry a time-like key (disguised history).
//
// The check recurses into nested objects. Structs are normalized through
// JSON before inspection, so it accepts both typed records and raw maps.
func AssertNoHistory(payload any) error {
	v, err := normalize(payload)
	if err != nil {
		return violate(LawNoHistory, "payload is not inspectable: %v", err)
	}
	if _, ok := v.([]any); ok {
		return violate(LawNoHistory, "top-level array payload")
	}
	return walkNoHistory(v, "")
}

func walkNoHistory(v any, path string) error {
	switch t := v.(type) {
	case map[string]any:
		for key, val := range t {
			if err := checkHistoryKey(key, path); err != nil {
				return err
			}
			if err := walkNoHistory(val, joinPath(path, key)); err != nil {
				return err
			}
		}
	case []any:
		objs := 0
		for _, el := range t {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			objs++
			for key := range m {
				if isTimeLikeKey(key) {
					return violate(LawNoHistory, "array element carries time-like key %q at %s", key, path)
				}
			}
		}
		if objs >= 2 {
			return violate(LawNoHistory, "array of %d objects at %s looks like history", objs, path)
		}
		for _, el := range t {
			if err := walkNoHistory(el, path+"[]"); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkHistoryKey(key, path string) error {
	lower := strings.ToLower(key)
	for _, word := range historyLexicon {
		if strings.Contains(lower, word) {
			return violate(LawNoHistory, "key %q at %s matches history lexicon (%s)", key, path, word)
		}
	}
	if key == ttlWhitelistKey {
		return nil
	}
	if isTimeLikeKey(key) {
		return violate(LawNoHistory, "key %q at %s is a timestamp field", key, path)
	}
	return nil
}

// isTimeLikeKey reports whether key carries time metadata. Note that the
// ttlExpiresAt whitelist is applied by the caller at the object-key level
// only; inside arrays even the whitelisted key marks disguised history.
func isTimeLikeKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range timestampLexicon {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return len(key) > 2 && strings.HasSuffix(key, "At")
}

// AssertNoAggregation rejects any peer count outside [0, MaxConnections].
// It bounds both stored connection sets and batch signal reads.
func AssertNoAggregation(count int) error {
	if count < 0 {
		return violate(LawNoAggregation, "negative count %d", count)
	}
	if count > MaxConnections {
		return violate(LawNoAggregation, "count %d exceeds ceiling %d", count, MaxConnections)
	}
	return nil
}

// AssertSymmetry accepts only the exact sentinel RelationBidirectional.
// Case variants, ONE_WAY, and empty tags are all asymmetric relations.
func AssertSymmetry(relationshipTag string) error {
	if relationshipTag != RelationBidirectional {
		return violate(LawSymmetry, "relationship tag %q is not %s", relationshipTag, RelationBidirectional)
	}
	return nil
}

// viewerAllowedKeys is the complete set of fields a peer may ever see.
var viewerAllowedKeys = map[string]bool{
	"connectionId":    true,
	"peerDisplayName": true,
	"color":           true,
}

// viewerForbiddenLexicon matches internal metadata by substring. It is
// checked in addition to the allow-list so the law still holds if the
// allow-list is ever widened carelessly.
var viewerForbiddenLexicon = []string{
	"timestamp", "ttl", "expir", "createdat", "updatedat",
	"tag", "note", "score", "location", "device", "owner",
	"internal", "schema",
}

// viewerColors are the only color values a viewer-safe payload may carry.
var viewerColors = map[string]bool{
	"cyan": true, "amber": true, "red": true, "unknown": true,
}

// AssertViewerSafe rejects any payload that exposes more than the minimal
// signal projection to a peer: exactly the allow-listed keys
// {connectionId, peerDisplayName, color}, with color one of
// cyan|amber|red|unknown, and nothing matching the forbidden lexicon.
func AssertViewerSafe(payload any) error {
	v, err := normalize(payload)
	if err != nil {
		return violate(LawViewerSafe, "payload is not inspectable: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return violate(LawViewerSafe, "viewer payload must be a plain object, got %T", v)
	}
	for key := range obj {
		if strings.HasPrefix(key, "_") {
			return violate(LawViewerSafe, "schema/internal key %q in viewer payload", key)
		}
		lower := strings.ToLower(key)
		for _, word := range viewerForbiddenLexicon {
			if strings.Contains(lower, word) {
				return violate(LawViewerSafe, "forbidden key %q in viewer payload (%s)", key, word)
			}
		}
		if !viewerAllowedKeys[key] {
			return violate(LawViewerSafe, "key %q is not in the viewer allow-list", key)
		}
	}
	color, ok := obj["color"].(string)
	if !ok {
		return violate(LawViewerSafe, "viewer payload is missing a color")
	}
	if !viewerColors[color] {
		return violate(LawViewerSafe, "color %q is not a known signal color", color)
	}
	return nil
}

// normalize converts an arbitrary payload into the map/slice/scalar domain
// via a JSON round trip, so struct-typed and map-typed payloads are
// inspected identically. Maps and slices are round-tripped too: their
// elements may be typed values that the walkers would otherwise skip.
func normalize(payload any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
