package laws

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireViolation(t *testing.T, err error, law Law) {
	t.Helper()
	require.Error(t, err)
	v := &Violation{}
	require.ErrorAs(t, err, &v)
	assert.Equal(t, law, v.Law)
}

func TestAssertNoHistory_SingleSignalPasses(t *testing.T) {
	err := AssertNoHistory(map[string]any{
		"color":        "cyan",
		"ttlExpiresAt": "2026-08-26T12:00:00Z",
	})
	require.NoError(t, err)
}

func TestAssertNoHistory_TopLevelArray(t *testing.T) {
	requireViolation(t, AssertNoHistory([]any{
		map[string]any{"color": "cyan"},
	}), LawNoHistory)
}

func TestAssertNoHistory_LexiconKeys(t *testing.T) {
	cases := []string{
		"history", "signalHistory", "loginHistory",
		"timeline", "archive", "log", "auditLog", "trend", "trendData",
	}
	for _, key := range cases {
		t.Run(key, func(t *testing.T) {
			requireViolation(t, AssertNoHistory(map[string]any{key: 1}), LawNoHistory)
		})
	}
}

func TestAssertNoHistory_TimestampKeys(t *testing.T) {
	for _, key := range []string{"createdAt", "updatedAt", "timestamp", "lastSeenAt", "expiresAt"} {
		t.Run(key, func(t *testing.T) {
			requireViolation(t, AssertNoHistory(map[string]any{key: "x"}), LawNoHistory)
		})
	}
}

func TestAssertNoHistory_TTLWhitelistIsExact(t *testing.T) {
	require.NoError(t, AssertNoHistory(map[string]any{"ttlExpiresAt": "x"}))
	// Case variants are not the whitelisted key.
	requireViolation(t, AssertNoHistory(map[string]any{"TTLExpiresAt": "x"}), LawNoHistory)
}

func TestAssertNoHistory_ShortKeysAllowed(t *testing.T) {
	// "At" alone is too short to count as a timestamp suffix.
	require.NoError(t, AssertNoHistory(map[string]any{"At": 1, "color": "red"}))
}

func TestAssertNoHistory_NestedObjects(t *testing.T) {
	requireViolation(t, AssertNoHistory(map[string]any{
		"outer": map[string]any{
			"inner": map[string]any{"signalHistory": []any{}},
		},
	}), LawNoHistory)
}

func TestAssertNoHistory_ArrayOfTwoObjects(t *testing.T) {
	requireViolation(t, AssertNoHistory(map[string]any{
		"entries": []any{
			map[string]any{"color": "cyan"},
			map[string]any{"color": "red"},
		},
	}), LawNoHistory)
}

func TestAssertNoHistory_ArrayElementWithTimeKey(t *testing.T) {
	// One object is not a timeline, unless it carries time metadata;
	// the whitelist does not apply inside arrays.
	requireViolation(t, AssertNoHistory(map[string]any{
		"entries": []any{
			map[string]any{"ttlExpiresAt": "x"},
		},
	}), LawNoHistory)
}

func TestAssertNoHistory_ScalarArrayPasses(t *testing.T) {
	require.NoError(t, AssertNoHistory(map[string]any{
		"tags": []any{"a", "b", "c"},
	}))
}

func TestAssertNoHistory_StructPayload(t *testing.T) {
	type bad struct {
		History []string `json:"history"`
	}
	requireViolation(t, AssertNoHistory(bad{}), LawNoHistory)

	type good struct {
		Color string `json:"color"`
	}
	require.NoError(t, AssertNoHistory(good{Color: "cyan"}))
}

func TestAssertNoHistory_StructsNestedInContainers(t *testing.T) {
	// Typed values inside a map or slice must be normalized like top-level
	// structs; otherwise a slice of timestamped records slips past every
	// rule.
	type event struct {
		Color     string `json:"color"`
		CreatedAt int64  `json:"createdAt"`
	}

	requireViolation(t, AssertNoHistory(map[string]any{
		"items": []any{event{CreatedAt: 1}, event{CreatedAt: 2}},
	}), LawNoHistory)

	requireViolation(t, AssertNoHistory(map[string]any{
		"latest": event{Color: "cyan", CreatedAt: 3},
	}), LawNoHistory)

	type entry struct {
		Color string `json:"color"`
	}
	requireViolation(t, AssertNoHistory(map[string]any{
		"entries": []entry{{Color: "cyan"}, {Color: "red"}},
	}), LawNoHistory)

	require.NoError(t, AssertNoHistory(map[string]any{
		"current": entry{Color: "cyan"},
	}))
}

func TestAssertNoAggregation(t *testing.T) {
	require.NoError(t, AssertNoAggregation(0))
	require.NoError(t, AssertNoAggregation(MaxConnections))
	requireViolation(t, AssertNoAggregation(MaxConnections+1), LawNoAggregation)
	requireViolation(t, AssertNoAggregation(-1), LawNoAggregation)
	requireViolation(t, AssertNoAggregation(1000), LawNoAggregation)
}

func TestAssertSymmetry(t *testing.T) {
	require.NoError(t, AssertSymmetry("BIDIRECTIONAL"))
	for _, tag := range []string{"", "bidirectional", "Bidirectional", "ONE_WAY", "FOLLOWER"} {
		t.Run(fmt.Sprintf("%q", tag), func(t *testing.T) {
			requireViolation(t, AssertSymmetry(tag), LawSymmetry)
		})
	}
}

func TestAssertViewerSafe_MinimalProjection(t *testing.T) {
	require.NoError(t, AssertViewerSafe(map[string]any{
		"connectionId":    "conn_1",
		"peerDisplayName": "Jo",
		"color":           "amber",
	}))
	// peerDisplayName is optional.
	require.NoError(t, AssertViewerSafe(map[string]any{
		"connectionId": "conn_1",
		"color":        "unknown",
	}))
}

func TestAssertViewerSafe_ExtraKeyRejected(t *testing.T) {
	requireViolation(t, AssertViewerSafe(map[string]any{
		"connectionId": "conn_1",
		"color":        "cyan",
		"mood":         "great",
	}), LawViewerSafe)
}

func TestAssertViewerSafe_ForbiddenLexicon(t *testing.T) {
	for _, key := range []string{
		"ttlExpiresAt", "timestamp", "relationshipTag", "privateNote",
		"wellnessScore", "location", "deviceId", "ownerUserId", "internalFlags",
	} {
		t.Run(key, func(t *testing.T) {
			requireViolation(t, AssertViewerSafe(map[string]any{
				"connectionId": "conn_1",
				"color":        "cyan",
				key:            "x",
			}), LawViewerSafe)
		})
	}
}

func TestAssertViewerSafe_UnderscoreKeys(t *testing.T) {
	requireViolation(t, AssertViewerSafe(map[string]any{
		"connectionId": "conn_1",
		"color":        "cyan",
		"_v":           2,
	}), LawViewerSafe)
}

func TestAssertViewerSafe_ColorRequired(t *testing.T) {
	requireViolation(t, AssertViewerSafe(map[string]any{
		"connectionId": "conn_1",
	}), LawViewerSafe)
	requireViolation(t, AssertViewerSafe(map[string]any{
		"connectionId": "conn_1",
		"color":        "chartreuse",
	}), LawViewerSafe)
}

func TestAssertViewerSafe_NonObject(t *testing.T) {
	requireViolation(t, AssertViewerSafe([]any{"cyan"}), LawViewerSafe)
	requireViolation(t, AssertViewerSafe(nil), LawViewerSafe)
	requireViolation(t, AssertViewerSafe("cyan"), LawViewerSafe)
}

func TestIsViolation(t *testing.T) {
	assert.True(t, IsViolation(AssertSymmetry("nope")))
	assert.True(t, IsViolation(fmt.Errorf("wrapped: %w", AssertNoAggregation(99))))
	assert.False(t, IsViolation(nil))
	assert.False(t, IsViolation(fmt.Errorf("plain")))
}

func TestMustPass(t *testing.T) {
	require.NoError(t, MustPass(nil))

	plain := fmt.Errorf("not a violation")
	assert.Equal(t, plain, MustPass(plain))

	assert.Panics(t, func() {
		_ = MustPass(AssertNoAggregation(MaxConnections + 1))
	})
}
