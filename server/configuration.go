package main

import (
	"reflect"
	"time"

	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/watch"
)

const (
	defaultBotUsername    = "crimewatch"
	defaultBotDisplayName = "Crimewatch"
)

// configuration captures the plugin's external configuration as exposed in the Mattermost server
// configuration, as well as values computed from the configuration. Any public fields will be
// deserialized from the Mattermost server configuration in OnConfigurationChange.
//
// As plugins are inherently concurrent (hooks being called asynchronously), and the plugin
// configuration can change at any time, access to the configuration must be synchronized. The
// strategy used in this plugin is to guard a pointer to the configuration, and clone the entire
// struct whenever it changes.
type configuration struct {
	// BackendURL is the origin of the crime backend, e.g. http://localhost:8000
	BackendURL string `json:"backendUrl"`

	BotUsername    string `json:"botUsername"`
	BotDisplayName string `json:"botDisplayName"`

	// RequestTimeoutSeconds bounds each backend request; zero uses the gateway default
	RequestTimeoutSeconds int `json:"requestTimeoutSeconds"`

	// RequestsPerSecond paces calls per gateway; zero uses the default, negative disables pacing
	RequestsPerSecond float64 `json:"requestsPerSecond"`

	// Watches are the camera alert watches, each posting into its own channel
	Watches []watch.Config `json:"watches"`
}

// Clone creates a deep copy of the configuration.
func (c *configuration) Clone() *configuration {
	clone := *c

	if c.Watches != nil {
		clone.Watches = make([]watch.Config, len(c.Watches))
		copy(clone.Watches, c.Watches)
	}

	return &clone
}

// gatewayConfig is the gateway configuration derived from the plugin settings
func (c *configuration) gatewayConfig() gateway.Config {
	return gateway.Config{
		BaseURL:           c.BackendURL,
		Endpoints:         gateway.DefaultEndpoints(),
		Timeout:           time.Duration(c.RequestTimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// backendConfigured reports whether a backend URL is set
func (c *configuration) backendConfigured() bool {
	return c.BackendURL != ""
}

// backendChanged reports whether gateways built for c are stale under other
func (c *configuration) backendChanged(other *configuration) bool {
	return c.BackendURL != other.BackendURL ||
		c.RequestTimeoutSeconds != other.RequestTimeoutSeconds ||
		c.RequestsPerSecond != other.RequestsPerSecond
}

// Validate checks the backend settings and every watch
func (c *configuration) Validate() error {
	if c.RequestTimeoutSeconds < 0 {
		return errors.New("request timeout must not be negative")
	}

	if c.backendConfigured() {
		if err := c.gatewayConfig().Validate(); err != nil {
			return errors.Wrap(err, "invalid backend URL")
		}
	}

	if err := watch.ValidateWatches(c.Watches); err != nil {
		return errors.Wrap(err, "invalid watch configuration")
	}

	return nil
}

func (c *configuration) botUsername() string {
	if c.BotUsername == "" {
		return defaultBotUsername
	}
	return c.BotUsername
}

func (c *configuration) botDisplayName() string {
	if c.BotDisplayName == "" {
		return defaultBotDisplayName
	}
	return c.BotDisplayName
}

// getConfiguration retrieves the active configuration under lock, making it safe to use
// concurrently. The active configuration may change underneath the client of this method, but
// the struct returned by this API call is considered immutable.
func (p *Plugin) getConfiguration() *configuration {
	p.configurationLock.RLock()
	defer p.configurationLock.RUnlock()

	if p.configuration == nil {
		return &configuration{}
	}

	return p.configuration
}

// setConfiguration replaces the active configuration under lock.
//
// Do not call setConfiguration while holding the configurationLock, as sync.Mutex is not
// reentrant. In particular, avoid using the plugin API entirely, as this may in turn trigger a
// hook back into the plugin. If that hook attempts to acquire this lock, a deadlock may occur.
//
// This method panics if setConfiguration is called with the existing configuration. This almost
// certainly means that the configuration was modified without being cloned and may result in
// an unsafe access.
func (p *Plugin) setConfiguration(configuration *configuration) {
	p.configurationLock.Lock()
	defer p.configurationLock.Unlock()

	if configuration != nil && p.configuration == configuration {
		// Ignore assignment if the configuration struct is empty. Go will optimize the
		// allocation for same to point at the same memory address, breaking the check
		// above.
		if reflect.ValueOf(*configuration).NumField() == 0 {
			return
		}

		panic("setConfiguration called with the existing configuration")
	}

	p.configuration = configuration
}

// unregisterWatch stops a watch and removes it from the registry.
// With clearState the watch's persisted status is deleted as well.
func unregisterWatch(registry *watch.Registry, api plugin.API, id string, reason string, clearState bool) {
	w := registry.Get(id)
	if err := registry.Unregister(id); err != nil {
		api.LogWarn("Failed to unregister watch", "id", id, "reason", reason, "error", err.Error())
	} else {
		api.LogInfo("Unregistered watch", "id", id, "reason", reason)
	}

	if clearState && w != nil {
		if err := w.ClearState(); err != nil {
			api.LogWarn("Failed to clear watch state", "id", id, "error", err.Error())
		}
	}
}

// OnConfigurationChange is invoked when configuration changes may have been made.
func (p *Plugin) OnConfigurationChange() error {
	var newConfig = new(configuration)

	// Load the public configuration fields from the Mattermost server configuration.
	if err := p.API.LoadPluginConfiguration(newConfig); err != nil {
		return errors.Wrap(err, "failed to load plugin configuration")
	}

	if err := newConfig.Validate(); err != nil {
		return errors.Wrap(err, "invalid plugin configuration")
	}

	oldConfig := p.getConfiguration()
	toAdd, toUpdate, toRemove := watch.DiffWatchConfigs(oldConfig.Watches, newConfig.Watches)

	p.setConfiguration(newConfig)

	// Not activated yet; OnActivate starts from the stored configuration
	if p.registry == nil {
		return nil
	}

	for _, id := range toRemove {
		unregisterWatch(p.registry, p.API, id, "watch removed from configuration", true)
	}

	if oldConfig.backendChanged(newConfig) {
		p.API.LogInfo("Backend settings changed, restarting watches", "backendUrl", newConfig.BackendURL)
		if err := p.registry.UnregisterAll(); err != nil {
			p.API.LogWarn("Failed to stop watches", "error", err.Error())
		}
		if err := p.reloadGateways(newConfig); err != nil {
			p.API.LogError("Failed to create backend gateway", "error", err.Error())
		}
		for _, cfg := range newConfig.Watches {
			p.createAndStartWatch(cfg)
		}
		return nil
	}

	for _, id := range toUpdate {
		unregisterWatch(p.registry, p.API, id, "watch configuration changed", false)
		if cfg, found := watch.FindByID(newConfig.Watches, id); found {
			p.createAndStartWatch(cfg)
		}
	}

	for _, id := range toAdd {
		if cfg, found := watch.FindByID(newConfig.Watches, id); found {
			p.createAndStartWatch(cfg)
		}
	}

	return nil
}
