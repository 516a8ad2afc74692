package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/pluginapi/cluster"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/metrics"
)

// DefaultInterval is the reference poll interval
const DefaultInterval = 10 * time.Second

var (
	// ErrStopped is returned by operations on a controller after Stop
	ErrStopped = errors.New("alert controller stopped")

	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("alert controller already started")
)

// Source is the part of the gateway the controller needs
type Source interface {
	GetCameraAlerts(ctx context.Context) gateway.Result[[]gateway.Alert]
	AcknowledgeAlert(ctx context.Context, id string) gateway.Result[struct{}]
}

// State is the poll state of a controller
type State int

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Config identifies a controller and what it watches. Immutable.
type Config struct {
	WatchID  string
	Name     string
	Filter   Filter
	Interval time.Duration
}

// Dependencies are the collaborators of a controller. Store, Logger and
// Metrics are optional.
type Dependencies struct {
	Source    Source
	Notifier  Notifier
	Scheduler JobScheduler
	Store     StatusStore
	Logger    gateway.Logger
	Metrics   *metrics.Metrics
}

// Snapshot is a point-in-time copy of a controller's feed
type Snapshot struct {
	State               State           `json:"state"`
	Items               []gateway.Alert `json:"items"`
	KnownCount          int             `json:"knownCount"`
	LastPollAt          time.Time       `json:"lastPollAt"`
	ConsecutiveFailures int             `json:"consecutiveFailures"`
	LastError           string          `json:"lastError,omitempty"`
}

// Controller polls camera alerts for one watch, keeps the filtered feed, and
// notifies once per new alert id. At most one scheduled poll is in flight;
// completions older than the last applied one are discarded.
type Controller struct {
	config    Config
	source    Source
	notifier  Notifier
	scheduler JobScheduler
	store     StatusStore
	logger    gateway.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	// ctx is canceled by Stop and bounds every request the controller makes
	ctx    context.Context
	cancel context.CancelFunc

	// completing is held for reading while a poll records its outcome and
	// notifies. Stop takes it for writing, so nothing a poll does outlives Stop.
	completing sync.RWMutex

	mu         sync.Mutex
	feed       *feed
	job        Job
	stopped    bool
	inflight   int
	issuedSeq  uint64
	appliedSeq uint64
	failures   int
	lastError  string
}

// NewController creates an idle controller. Call Start to begin polling and
// Stop when the watch goes away.
func NewController(config Config, deps Dependencies) (*Controller, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("alert source is required")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("job scheduler is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		config:    config,
		source:    deps.Source,
		notifier:  deps.Notifier,
		scheduler: deps.Scheduler,
		store:     deps.Store,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		feed:      newFeed(),
	}, nil
}

// Start schedules the recurring poll job
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.job != nil {
		return ErrAlreadyStarted
	}

	jobID := fmt.Sprintf("crimewatch_poll_%s", c.config.WatchID)
	job, err := c.scheduler.Schedule(jobID, c.nextWaitInterval, c.tick)
	if err != nil {
		return fmt.Errorf("failed to schedule poll job: %w", err)
	}

	c.job = job
	c.logger.Info("Alert controller started",
		"watchId", c.config.WatchID,
		"watchName", c.config.Name,
		"interval", c.config.Interval.String())
	return nil
}

// Stop cancels in-flight requests, closes the job and resets the feed.
// It waits for a completion that is already recording its result; requests
// still waiting on the backend are not waited for and have no effect when
// they return. Stop is idempotent.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.cancel()
	job := c.job
	c.job = nil
	c.feed.reset()
	c.mu.Unlock()

	c.completing.Lock()
	c.completing.Unlock() //nolint:staticcheck // barrier for running completions

	if job != nil {
		if err := job.Close(); err != nil {
			c.logger.Error("Failed to close poll job", "watchId", c.config.WatchID, "error", err.Error())
			return fmt.Errorf("failed to close poll job: %w", err)
		}
	}

	c.logger.Info("Alert controller stopped", "watchId", c.config.WatchID, "watchName", c.config.Name)
	return nil
}

// nextWaitInterval runs the first poll immediately and then waits the
// configured interval after each finished poll.
func (c *Controller) nextWaitInterval(now time.Time, metadata cluster.JobMetadata) time.Duration {
	if metadata.LastFinished.IsZero() {
		return 0
	}

	sinceLastFinished := now.Sub(metadata.LastFinished)
	if sinceLastFinished < c.config.Interval {
		return c.config.Interval - sinceLastFinished
	}

	return 0
}

// tick is the scheduled poll. It is skipped while another poll is in flight.
func (c *Controller) tick() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.inflight > 0 {
		c.mu.Unlock()
		c.metrics.IncPollSkipped(c.config.Name)
		c.logger.Debug("Skipping poll, previous poll still in flight", "watchId", c.config.WatchID)
		return
	}
	seq := c.beginPollLocked()
	c.mu.Unlock()

	_ = c.poll(c.ctx, seq)
}

// Refresh polls now, even if a scheduled poll is in flight. The result of
// whichever poll was issued last wins.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	seq := c.beginPollLocked()
	c.mu.Unlock()

	ctx, cancel := c.bind(ctx)
	defer cancel()

	return c.poll(ctx, seq)
}

// bind derives a context that is also canceled when the controller stops
func (c *Controller) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) beginPollLocked() uint64 {
	c.issuedSeq++
	c.inflight++
	return c.issuedSeq
}

// poll runs one fetch-filter-notify cycle for sequence number seq
func (c *Controller) poll(ctx context.Context, seq uint64) error {
	c.logger.Debug("Starting poll cycle", "watchId", c.config.WatchID, "seq", seq)

	c.saveLastPoll()

	res := c.source.GetCameraAlerts(ctx)

	c.completing.RLock()
	defer c.completing.RUnlock()

	c.mu.Lock()
	c.inflight--

	if c.stopped {
		c.mu.Unlock()
		c.logger.Debug("Discarding poll completion after stop", "watchId", c.config.WatchID, "seq", seq)
		return ErrStopped
	}

	// A completion older than the last applied poll carries no news, success or failure
	if applied := c.appliedSeq; seq <= applied {
		c.mu.Unlock()
		c.metrics.IncStaleCompletion(c.config.Name)
		c.logger.Debug("Discarding stale poll completion",
			"watchId", c.config.WatchID,
			"seq", seq,
			"appliedSeq", applied)
		if res.Err != nil {
			return res.Err
		}
		return nil
	}

	if res.Err != nil {
		c.failures++
		c.lastError = res.Err.Message
		c.mu.Unlock()
		c.handlePollError(res.Err)
		return res.Err
	}

	now := c.now()
	filtered := c.config.Filter.Apply(res.Value)
	c.appliedSeq = seq
	newest, fresh := c.feed.apply(filtered, now)
	c.failures = 0
	c.lastError = ""
	c.mu.Unlock()

	c.metrics.IncPoll(c.config.Name, "success")
	c.recordSuccess(now)

	c.logger.Debug("Poll cycle completed",
		"watchId", c.config.WatchID,
		"watchName", c.config.Name,
		"totalAlerts", len(res.Value),
		"matchingAlerts", len(filtered),
		"newAlerts", fresh)

	if newest != nil {
		if c.isStopped() {
			c.logger.Debug("Dropping notification after stop", "watchId", c.config.WatchID, "alertId", newest.ID)
			return ErrStopped
		}

		c.metrics.IncNotification(c.config.Name)
		if err := c.notifier.Notify(ctx, *newest); err != nil {
			c.logger.Error("Failed to notify about new alert",
				"watchId", c.config.WatchID,
				"alertId", newest.ID,
				"error", err.Error())
		}
	}

	return nil
}

// saveLastPoll records the attempt unless the controller is stopping
func (c *Controller) saveLastPoll() {
	if c.store == nil {
		return
	}

	c.completing.RLock()
	defer c.completing.RUnlock()
	if c.isStopped() {
		return
	}

	if err := c.store.SaveLastPoll(c.now()); err != nil {
		c.logger.Error("Failed to save last poll time", "watchId", c.config.WatchID, "error", err.Error())
	}
}

func (c *Controller) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Controller) recordSuccess(t time.Time) {
	if c.store == nil {
		return
	}

	if err := c.store.SaveLastSuccess(t); err != nil {
		c.logger.Error("Failed to save last success time", "watchId", c.config.WatchID, "error", err.Error())
	}
	if err := c.store.ResetFailures(); err != nil {
		c.logger.Error("Failed to reset failure counter", "watchId", c.config.WatchID, "error", err.Error())
	}
	if err := c.store.SaveLastError(""); err != nil {
		c.logger.Error("Failed to clear last error", "watchId", c.config.WatchID, "error", err.Error())
	}
}

// handlePollError records a failed poll. Items and known ids stay as they
// were and polling continues on schedule.
func (c *Controller) handlePollError(gwErr *gateway.Error) {
	c.metrics.IncPoll(c.config.Name, string(gwErr.Kind))
	c.logger.Warn("Poll cycle failed",
		"watchId", c.config.WatchID,
		"watchName", c.config.Name,
		"kind", string(gwErr.Kind),
		"error", gwErr.Message)

	if c.store == nil {
		return
	}

	if err := c.store.SaveLastError(gwErr.Message); err != nil {
		c.logger.Error("Failed to save last error", "watchId", c.config.WatchID, "error", err.Error())
	}
	if _, err := c.store.IncrementFailures(); err != nil {
		c.logger.Error("Failed to increment failure counter", "watchId", c.config.WatchID, "error", err.Error())
	}
}

// Acknowledge marks the alert handled on the backend and drops it from the
// feed. An alert the backend no longer knows counts as acknowledged. The id
// stays known, so it never notifies again this session.
func (c *Controller) Acknowledge(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.mu.Unlock()

	ctx, cancel := c.bind(ctx)
	defer cancel()

	res := c.source.AcknowledgeAlert(ctx, id)
	if res.Err != nil {
		if !gateway.IsAlreadyAcknowledged(res.Err) {
			c.logger.Warn("Failed to acknowledge alert",
				"watchId", c.config.WatchID,
				"alertId", id,
				"error", res.Err.Message)
			return res.Err
		}
		c.logger.Debug("Alert already acknowledged", "watchId", c.config.WatchID, "alertId", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	c.feed.remove(id)
	return nil
}

// Snapshot returns a copy of the current feed
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := Idle
	if c.inflight > 0 {
		state = Polling
	}

	return Snapshot{
		State:               state,
		Items:               c.feed.snapshotItems(),
		KnownCount:          len(c.feed.known),
		LastPollAt:          c.feed.lastPollAt,
		ConsecutiveFailures: c.failures,
		LastError:           c.lastError,
	}
}

// Config returns the controller's configuration
func (c *Controller) Config() Config {
	return c.config
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
