package service

import (
	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeProgress compares current against goal. The percentage is clamped
// to [0, 100] and rounded to cents; a goal <= 0 yields 0%.
func ComputeProgress(goal, current decimal.Decimal) domain.GoalProgress {
	pct := decimal.Zero
	if goal.IsPositive() {
		pct = current.Div(goal).Mul(hundred).Round(2)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		if pct.IsNegative() {
			pct = decimal.Zero
		}
	}

	remaining := goal.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return domain.GoalProgress{
		Goal:       goal,
		Current:    current,
		Percentage: pct,
		Remaining:  remaining,
	}
}
