package check

import "github.com/optimode/mailscore/types"

// Score weights. They are a compatibility contract with existing consumers;
// the maximum attainable score is their sum, 100.
const (
	WeightSyntax        = 30
	WeightMXRecords     = 35
	WeightNotDisposable = 20
	WeightNotRoleBased  = 10
	WeightNotFree       = 5
)

// Score computes the 0-100 quality score from the sub-checks.
// Free providers are informational and only cost WeightNotFree.
func Score(c types.Checks, isFreeProvider bool) int {
	score := 0
	if c.Syntax {
		score += WeightSyntax
	}
	if c.MXRecords {
		score += WeightMXRecords
	}
	if c.NotDisposable {
		score += WeightNotDisposable
	}
	if c.NotRoleBased {
		score += WeightNotRoleBased
	}
	if !isFreeProvider {
		score += WeightNotFree
	}
	return score
}

// Valid is the deliverability decision: correct syntax, at least one mail
// exchanger and a non-disposable domain.
func Valid(c types.Checks, isDisposable bool) bool {
	return c.Syntax && c.MXRecords && !isDisposable
}
