package driving

import "context"

// CheckResult is the outcome of one verification step.
type CheckResult struct {
	// Name identifies the check.
	Name string

	// Passed is false when the check found a problem.
	Passed bool

	// Detail is a human-readable explanation.
	Detail string
}

// VerifyService runs read-only health checks over the persisted
// artifacts: file presence, vector-count and dimension consistency, and
// document/embedding cross-reference completeness.
type VerifyService interface {
	// Verify runs every check and returns all results, failed or not.
	Verify(ctx context.Context) ([]CheckResult, error)
}
