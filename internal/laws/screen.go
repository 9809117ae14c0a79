package laws

// Check selects which guardrails Screen runs for a given operation.
type Check func() error

// Payload schedules AssertNoHistory against an outbound payload.
func Payload(payload any) Check {
	return func() error { return AssertNoHistory(payload) }
}

// Count schedules AssertNoAggregation against a peer count.
func Count(n int) Check {
	return func() error { return AssertNoAggregation(n) }
}

// Relation schedules AssertSymmetry against a relationship tag.
func Relation(tag string) Check {
	return func() error { return AssertSymmetry(tag) }
}

// Viewer schedules AssertViewerSafe against a projection payload.
func Viewer(payload any) Check {
	return func() error { return AssertViewerSafe(payload) }
}

// Screen runs the given checks in order and returns the first violation.
// Operations pass whichever subset applies to their inputs:
//
//	if err := laws.Screen(laws.Count(n), laws.Relation(tag)); err != nil { ... }
func Screen(checks ...Check) error {
	for _, c := range checks {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}
