package helpers

import (
	"context"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
)

func init() {
	helperkit.Register(domain.HelperDefinition{
		ID:                     "adminAudit",
		Name:                   "Admin Audit",
		Description:            "Runs a privileged consistency sweep over subscription state.",
		AdminOnly:              true,
		RequireAdminActivation: true,
		Priority:               4,
		Timeout:                600,
		Schedule:               []string{"0 3 * * *"},
		RegionLock:             []string{domain.WildcardRegion},
	}, runAdminAudit)
}

func runAdminAudit(ctx context.Context, rc helperkit.RunContext) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	rc.Logger.InfoContext(ctx, "adminAudit: sweep complete", "user_id", rc.UserID)
	return nil
}
