package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultPollSchedule = "@every 1m"

// PollerConfig carries optional poller settings.
type PollerConfig struct {
	// Schedule is a cron spec; defaults to one poll per minute.
	Schedule string
	// Timeout bounds each poll request.
	Timeout time.Duration
	Logger  *logrus.Logger
	// OnChange fires when the unread count differs from the last poll.
	OnChange func(count int)
}

// Poller refreshes the unread count on a schedule while the user is
// signed in. It keeps polling through transient API errors and only
// stops when told to.
type Poller struct {
	service  *Service
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	logger   *logrus.Entry
	onChange func(count int)

	mu      sync.Mutex
	started bool
	last    int
	haveOne bool
}

// NewPoller creates a notification poller around a service.
func NewPoller(service *Service, config *PollerConfig) *Poller {
	if config == nil {
		config = &PollerConfig{}
	}
	schedule := config.Schedule
	if schedule == "" {
		schedule = defaultPollSchedule
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Poller{
		service:  service,
		cron:     cron.New(),
		schedule: schedule,
		timeout:  timeout,
		logger:   logger.WithField("component", "notification-poller"),
		onChange: config.OnChange,
	}
}

// Start begins polling. Calling Start twice is a no-op.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if _, err := p.cron.AddFunc(p.schedule, p.poll); err != nil {
		return err
	}
	p.cron.Start()
	p.started = true
	p.logger.WithField("schedule", p.schedule).Info("notification poller started")
	return nil
}

// Stop halts polling and waits for an in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	<-p.cron.Stop().Done()
	p.logger.Info("notification poller stopped")
}

// Unread returns the most recent unread count and whether a poll has
// succeeded yet.
func (p *Poller) Unread() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.haveOne
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	count, err := p.service.UnreadCount(ctx)
	if err != nil {
		// Transient failures keep the last known count.
		p.logger.WithError(err).Warn("unread count poll failed")
		return
	}

	p.mu.Lock()
	changed := !p.haveOne || count != p.last
	p.last = count
	p.haveOne = true
	p.mu.Unlock()

	if changed {
		p.logger.WithField("unread", count).Debug("unread count changed")
		if p.onChange != nil {
			p.onChange(count)
		}
	}
}
