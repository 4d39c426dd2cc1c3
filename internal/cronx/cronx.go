// Package cronx expands a cron expression into the ordered sequence of
// Unix timestamps at which it fires within a bounded window.
package cronx

import (
	"fmt"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/robfig/cron/v3"
)

// parser accepts the standard 5-field dialect (minute hour dom month dow)
// with *, ranges, lists, and */N — no seconds field, no L/W/# operators.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Expand enumerates every firing of expression strictly after fromInclusive
// and up to and including toInclusive, in UTC. It is pure and deterministic.
func Expand(expression string, fromInclusive, toInclusive time.Time) ([]int64, error) {
	schedule, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidCronExpression, expression, err)
	}

	from := fromInclusive.UTC()
	to := toInclusive.UTC()

	var firings []int64
	next := schedule.Next(from)
	for !next.After(to) {
		firings = append(firings, next.Unix())
		next = schedule.Next(next)
	}
	return firings, nil
}

// Validate reports whether expression parses under the standard dialect.
func Validate(expression string) error {
	_, err := parser.Parse(expression)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", domain.ErrInvalidCronExpression, expression, err)
	}
	return nil
}
