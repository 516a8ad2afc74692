package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/alerts"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/metrics"
)

// ErrDisabled is returned when polling is requested on a disabled watch
var ErrDisabled = errors.New("watch is disabled")

// AlertPoster posts a new alert into a channel.
type AlertPoster interface {
	PostAlert(alert gateway.Alert, watchName, channelID string) error
}

// Deduplicator tracks alert ids already posted. RecordAlert returns false when
// the id was already recorded under namespace.
type Deduplicator interface {
	RecordAlert(namespace, alertID string) bool
}

// Dependencies are the collaborators of a CameraWatch. Deduplicator,
// Scheduler, Logger and Metrics are optional; Scheduler defaults to the
// Mattermost cluster scheduler.
type Dependencies struct {
	API          plugin.API
	Source       alerts.Source
	Poster       AlertPoster
	Deduplicator Deduplicator
	Scheduler    alerts.JobScheduler
	Logger       gateway.Logger
	Metrics      *metrics.Metrics
}

// CameraWatch polls camera alerts for one site and category and posts each new
// alert to the watch's channel.
type CameraWatch struct {
	config       Config
	poster       AlertPoster
	deduplicator Deduplicator
	logger       gateway.Logger
	stateStore   *alerts.StateStore
	controller   *alerts.Controller

	mu      sync.Mutex
	running bool
}

var _ Watch = (*CameraWatch)(nil)

// New creates a camera watch. It does not start polling.
func New(config Config, deps Dependencies) (*CameraWatch, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("watch ID is required")
	}
	if config.ChannelID == "" {
		return nil, fmt.Errorf("channel ID is required")
	}
	if deps.API == nil {
		return nil, fmt.Errorf("plugin API is required")
	}
	if deps.Poster == nil {
		return nil, fmt.Errorf("alert poster is required")
	}

	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = alerts.NewClusterJobScheduler(deps.API)
	}

	w := &CameraWatch{
		config:       config,
		poster:       deps.Poster,
		deduplicator: deps.Deduplicator,
		logger:       deps.Logger,
		stateStore:   alerts.NewStateStore(deps.API, config.ID),
	}

	controller, err := alerts.NewController(config.ControllerConfig(), alerts.Dependencies{
		Source:    deps.Source,
		Notifier:  alerts.NotifierFunc(w.notify),
		Scheduler: scheduler,
		Store:     w.stateStore,
		Logger:    deps.Logger,
		Metrics:   deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create alert controller: %w", err)
	}
	w.controller = controller

	return w, nil
}

// notify posts alert unless another watch already posted it to the same channel
func (w *CameraWatch) notify(_ context.Context, alert gateway.Alert) error {
	if w.deduplicator != nil && !w.deduplicator.RecordAlert(w.config.ChannelID, alert.ID) {
		if w.logger != nil {
			w.logger.Debug("Alert already posted to channel", "watchId", w.config.ID, "alertId", alert.ID)
		}
		return nil
	}

	if err := w.poster.PostAlert(alert, w.config.Name, w.config.ChannelID); err != nil {
		return fmt.Errorf("failed to post alert %s: %w", alert.ID, err)
	}

	return nil
}

// Start begins polling
func (w *CameraWatch) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watch already running")
	}

	if !w.config.Enabled {
		return ErrDisabled
	}

	if err := w.controller.Start(); err != nil {
		return fmt.Errorf("failed to start alert controller: %w", err)
	}

	w.running = true
	return nil
}

// Stop ends polling for good; a stopped watch is replaced, not restarted
func (w *CameraWatch) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running = false
	if err := w.controller.Stop(); err != nil {
		return fmt.Errorf("failed to stop alert controller: %w", err)
	}

	return nil
}

func (w *CameraWatch) GetID() string {
	return w.config.ID
}

func (w *CameraWatch) GetName() string {
	return w.config.Name
}

func (w *CameraWatch) GetChannelID() string {
	return w.config.ChannelID
}

// GetStatus combines the persisted poll health with the live feed size
func (w *CameraWatch) GetStatus() Status {
	status := Status{
		ID:        w.config.ID,
		Name:      w.config.Name,
		ChannelID: w.config.ChannelID,
		Enabled:   w.config.Enabled,
		Alerts:    len(w.controller.Snapshot().Items),
	}

	stored, err := w.stateStore.GetStatus()
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("Failed to load watch status", "watchId", w.config.ID, "error", err.Error())
		}
		return status
	}

	status.LastPollTime = stored.LastPoll
	status.LastSuccessTime = stored.LastSuccess
	status.ConsecutiveFailures = stored.ConsecutiveFailures
	status.LastError = stored.LastError
	return status
}

func (w *CameraWatch) Snapshot() alerts.Snapshot {
	return w.controller.Snapshot()
}

// Refresh polls immediately
func (w *CameraWatch) Refresh(ctx context.Context) error {
	if !w.config.Enabled {
		return ErrDisabled
	}
	return w.controller.Refresh(ctx)
}

func (w *CameraWatch) Acknowledge(ctx context.Context, alertID string) error {
	return w.controller.Acknowledge(ctx, alertID)
}

// ClearState removes the persisted status of the watch
func (w *CameraWatch) ClearState() error {
	return w.stateStore.ClearAll()
}
