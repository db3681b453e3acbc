package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// StartScheduler runs the promoter daily at midnight. The returned cron must
// be stopped on shutdown.
func StartScheduler(p *Promoter, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		n, err := p.Run(ctx)
		if err != nil {
			logger.Error("scheduled student upgrade failed", "err", err)
			return
		}
		logger.Info("scheduled student upgrade done", "upgraded_count", n)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
