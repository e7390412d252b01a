package cron

import (
	"context"

	"github.com/davlet61/costwatch/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartHealthScanCron schedules a daily health scan in addition to the
// on-demand /scan endpoint. Repeated runs are safe: the dedup gate absorbs
// identical alerts within the same calendar day.
func StartHealthScanCron(healthScan *services.HealthScanService) *cron.Cron {
	c := cron.New()

	c.AddFunc("@daily", func() {
		emitted, err := healthScan.Run(context.Background())
		if err != nil {
			logrus.WithError(err).Error("Scheduled health scan failed")
			return
		}
		logrus.WithField("emitted", emitted).Info("Scheduled health scan finished")
	})

	c.Start()
	return c
}
