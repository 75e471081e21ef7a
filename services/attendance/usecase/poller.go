package usecase

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"siapguru/domain"
)

type puller interface {
	Pull(ctx context.Context) *domain.SyncReport
}

// Poller runs periodic pulls. A tick that finds the previous pull still
// running is skipped.
type Poller struct {
	cron *cron.Cron
	log  *logrus.Logger
}

func NewPoller(p puller, schedule string, log *logrus.Logger) (*Poller, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))))

	_, err := c.AddFunc(schedule, func() {
		report := p.Pull(context.Background())
		log.WithFields(logrus.Fields{
			"outcome": report.Outcome,
			"records": report.Records,
			"online":  report.Status.Online,
			"pending": report.Status.Pending,
		}).Debug("Scheduled pull finished")
	})
	if err != nil {
		return nil, fmt.Errorf("could not schedule pull %q: %w", schedule, err)
	}

	return &Poller{cron: c, log: log}, nil
}

func (p *Poller) Start() {
	p.cron.Start()
	p.log.Info("Pull poller started")
}

// Stop waits for a running pull to finish or ctx to expire.
func (p *Poller) Stop(ctx context.Context) {
	done := p.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	p.log.Info("Pull poller stopped")
}
