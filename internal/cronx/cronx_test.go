package cronx_test

import (
	"errors"
	"testing"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/cronx"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
)

func TestExpand_EveryTwoMinutes(t *testing.T) {
	from := time.Unix(1_000_000, 0).UTC()
	to := from.Add(10 * time.Minute)

	firings, err := cronx.Expand("*/2 * * * *", from, to)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(firings) == 0 {
		t.Fatal("Expand returned no firings")
	}
	for i, f := range firings {
		if f <= from.Unix() {
			t.Fatalf("firing %d (%d) not strictly after fromInclusive (%d)", i, f, from.Unix())
		}
		if f > to.Unix() {
			t.Fatalf("firing %d (%d) exceeds toInclusive (%d)", i, f, to.Unix())
		}
	}
}

func TestExpand_IsIdempotent(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)

	a, err := cronx.Expand("0 8 * * *", from, to)
	if err != nil {
		t.Fatalf("Expand first call: %v", err)
	}
	b, err := cronx.Expand("0 8 * * *", from, to)
	if err != nil {
		t.Fatalf("Expand second call: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("Expand not idempotent: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expand not idempotent at index %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestExpand_DailyAt8AM_MatchesScenarioS2(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)

	firings, err := cronx.Expand("0 8 * * *", from, to)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(firings) != 0 {
		t.Fatalf("08:00 should not fire within a 2h window from midnight, got %v", firings)
	}
}

func TestExpand_InvalidExpression(t *testing.T) {
	_, err := cronx.Expand("not a cron", time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, domain.ErrInvalidCronExpression) {
		t.Fatalf("err = %v, want ErrInvalidCronExpression", err)
	}
}

func TestExpand_NoSecondsField(t *testing.T) {
	// A 6-field expression (with seconds) must be rejected under the
	// standard 5-field dialect.
	_, err := cronx.Expand("*/5 * * * * *", time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, domain.ErrInvalidCronExpression) {
		t.Fatalf("err = %v, want ErrInvalidCronExpression for 6-field expression", err)
	}
}

func TestValidate(t *testing.T) {
	if err := cronx.Validate("*/2 * * * *"); err != nil {
		t.Fatalf("Validate valid expression: %v", err)
	}
	if err := cronx.Validate("garbage"); err == nil {
		t.Fatal("Validate garbage expression should fail")
	}
}
