package helpers

import (
	"context"
	"fmt"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
)

func init() {
	helperkit.Register(domain.HelperDefinition{
		ID:          "digestReport",
		Name:        "Digest Report",
		Description: "Sends the subscribing user a periodic activity digest.",
		Params: map[string]domain.ParamType{
			"channel": domain.ParamString,
		},
		AllowExecutionTimeConfig: true,
		Priority:                 3,
		Timeout:                  300,
		Schedule:                 []string{"0 8 * * *"},
		RegionLock:               []string{domain.WildcardRegion},
	}, runDigestReport)
}

func runDigestReport(ctx context.Context, rc helperkit.RunContext) error {
	channel, _ := rc.Params["channel"].(string)
	if channel == "" {
		channel = "email"
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rc.Logger.InfoContext(ctx, "digestReport: sent", "user_id", rc.UserID, "channel", fmt.Sprint(channel))
	return nil
}
