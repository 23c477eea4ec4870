package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"startup-revenue-alerts/internal/alerting"
	"startup-revenue-alerts/internal/mention"
)

// SimulateAlert pushes one synthetic alert through the configured
// notification channels to verify delivery end to end.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channels configured")
	}

	kind := mention.KindFromString(opts.Kind)
	if kind == mention.KindUnknown {
		kind = mention.KindRevenue
	}

	alert := alerting.Alert{
		Company:        opts.Company,
		AmountMillions: decimal.NewFromFloat(opts.AmountMillions),
		Kind:           string(kind),
		Confidence:     1.0,
		Source:         "simulated",
		Title:          "Simulated revenue alert",
		AlertedAt:      time.Now().UTC(),
	}

	if err := notifier.Notify(ctx, []alerting.Alert{alert}); err != nil {
		return err
	}

	a.Logger.Info().Str("company", alert.Company).Str("amount", alert.AmountMillions.StringFixed(1)).Msg("simulated alert delivered")
	return nil
}
