package service

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSweepCron schedules Sweep. Caller stops the returned cron on shutdown.
func StartSweepCron(g *Generator, schedule string, grace time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		n, err := g.Sweep(ctx, grace, 200)
		if err != nil {
			log.Printf("[CRON] receipt sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[CRON] receipt sweep issued %d receipts", n)
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[CRON] receipt sweep scheduled %q grace=%s", schedule, grace)
	return c, nil
}
