package helpers

import (
	"context"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
)

func init() {
	helperkit.Register(domain.HelperDefinition{
		ID:                       "regionAlert",
		Name:                     "Region Alert",
		Description:              "Sends region-specific service alerts; restricted to US accounts.",
		AllowExecutionTimeConfig: true,
		Priority:                 3,
		Timeout:                  180,
		Schedule:                 []string{"0 12 * * *"},
		RegionLock:               []string{"US"},
	}, runRegionAlert)
}

func runRegionAlert(ctx context.Context, rc helperkit.RunContext) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	rc.Logger.InfoContext(ctx, "regionAlert: alert dispatched", "user_id", rc.UserID)
	return nil
}
