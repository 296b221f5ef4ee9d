// Package schedule computes sync run times from cron expressions and drives
// the periodic sync loop.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Rule answers "next occurrence strictly after t" for one recurrence rule.
// A zero time means the rule yields no future occurrence.
//
// The cron parser is kept behind this interface so the scheduler never
// depends on a particular cron implementation.
type Rule interface {
	Next(after time.Time) time.Time
}

type cronRule struct {
	expr     string
	schedule cron.Schedule
}

func (r cronRule) Next(after time.Time) time.Time { return r.schedule.Next(after) }

func (r cronRule) String() string { return r.expr }

// Parse parses a standard 5-field cron expression into a Rule.
func Parse(expr string) (Rule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return cronRule{expr: expr, schedule: s}, nil
}

// ParseAll parses every expression; the first failure aborts. A malformed
// rule must never silently disappear from the schedule.
func ParseAll(exprs []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(exprs))
	for _, expr := range exprs {
		r, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
