// Package helpers is the compile-time catalogue of built-in helpers. Each
// file registers exactly one helper from its own init().
package helpers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
)

func init() {
	helperkit.Register(domain.HelperDefinition{
		ID:          "checkIn",
		Name:        "Check In",
		Description: "Sends a heartbeat ping to monitor cron uptime.",
		Internal:    true,
		BootRun:     true,
		Priority:    2,
		Timeout:     120,
		Schedule:    []string{"*/2 * * * *"},
		RegionLock:  []string{domain.WildcardRegion},
	}, runCheckIn)
}

func runCheckIn(ctx context.Context, rc helperkit.RunContext) error {
	target := os.Getenv("HEARTBEAT_URL")
	if target == "" {
		rc.Logger.WarnContext(ctx, "checkIn: HEARTBEAT_URL not configured, skipping")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build heartbeat request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}
	defer resp.Body.Close()

	rc.Logger.InfoContext(ctx, "checkIn: heartbeat sent", "status", resp.StatusCode)
	return nil
}
