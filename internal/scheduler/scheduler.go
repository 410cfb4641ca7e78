package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/tirelane/tirelane/internal/config"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/service"
	"github.com/tirelane/tirelane/internal/types"
)

// Scheduler runs the daily billing pass at a fixed wall-clock time in the
// configured time zone. It complements the HTTP cron endpoint: deployments
// with an external scheduler disable this one and hit the endpoint instead.
type Scheduler struct {
	cron    *cron.Cron
	billing service.BillingService
	log     *logger.Logger
}

// New creates the scheduler with the billing entry registered.
func New(cfg *config.Configuration, billing service.BillingService, log *logger.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(cfg.BillingLocation()))

	s := &Scheduler{
		cron:    c,
		billing: billing,
		log:     log,
	}

	spec := fmt.Sprintf("%d %d * * *", cfg.Billing.CronMinute, cfg.Billing.CronHour)
	if _, err := c.AddFunc(spec, s.runDailyBilling); err != nil {
		return nil, err
	}

	log.Infow("billing scheduler configured",
		"spec", spec,
		"timezone", cfg.Billing.Timezone)
	return s, nil
}

func (s *Scheduler) runDailyBilling() {
	ctx := types.SetUserID(context.Background(), types.DefaultUserID)
	if _, err := s.billing.ProcessDueSubscriptions(ctx); err != nil {
		s.log.Errorw("scheduled billing pass failed", "error", err)
	}
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for any running job and stops the scheduler.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
