package main

import (
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/pkg/errors"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/metrics"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/poster"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/watch"
)

var errBackendNotConfigured = errors.New("crime backend URL is not configured")

// Plugin implements the interface expected by the Mattermost server to communicate between the server and plugin processes.
type Plugin struct {
	plugin.MattermostPlugin

	// client is the Mattermost server API client.
	client *pluginapi.Client

	// configurationLock synchronizes access to the configuration.
	configurationLock sync.RWMutex

	// configuration is the active plugin configuration. Consult getConfiguration and
	// setConfiguration for usage.
	configuration *configuration

	// registry manages all active watches.
	registry *watch.Registry

	// poster posts alerts and messages as the bot.
	poster *poster.Poster

	// deduplicator is shared across all watches so a channel never gets the same alert twice
	deduplicator *Deduplicator

	metrics *metrics.Metrics

	// gatewayLock guards service and newGateway
	gatewayLock sync.RWMutex

	// service is the gateway the watches poll through
	service gateway.Gateway

	// newGateway builds a gateway for the current backend settings. Replaced in tests.
	newGateway func(cfg gateway.Config) (gateway.Gateway, error)

	// sessions holds one gateway per Mattermost user
	sessions *sessionStore
}

// OnActivate is invoked when the plugin is activated. If an error is returned, the plugin will be deactivated.
func (p *Plugin) OnActivate() error {
	p.client = pluginapi.NewClient(p.API, p.Driver)
	p.registry = watch.NewRegistry()
	p.deduplicator = NewDeduplicator(&p.client.Log)
	p.metrics = metrics.New()
	p.sessions = newSessionStore(nil)
	if p.newGateway == nil {
		p.newGateway = p.defaultGateway
	}

	config := p.getConfiguration()

	botID, err := p.API.EnsureBotUser(&model.Bot{
		Username:    config.botUsername(),
		DisplayName: config.botDisplayName(),
		Description: "Bot for posting camera crime alerts to Mattermost channels",
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure bot user")
	}

	p.API.LogInfo("Bot user initialized", "botID", botID, "username", config.botUsername())

	p.poster = poster.New(p.API, botID)

	if err := p.reloadGateways(config); err != nil {
		// Watches and the API report the missing backend; the plugin stays up
		// so an admin can fix the URL.
		p.API.LogError("Failed to create backend gateway", "error", err.Error())
	}

	for _, watchConfig := range config.Watches {
		p.createAndStartWatch(watchConfig)
	}

	return nil
}

// OnDeactivate is invoked when the plugin is deactivated.
func (p *Plugin) OnDeactivate() error {
	if p.registry != nil {
		if err := p.registry.UnregisterAll(); err != nil {
			p.API.LogError("Failed to unregister all watches during deactivation", "error", err.Error())
			return err
		}
	}

	if p.deduplicator != nil {
		p.deduplicator.Stop()
	}

	if p.sessions != nil {
		p.sessions.Stop()
	}

	return nil
}

func (p *Plugin) defaultGateway(cfg gateway.Config) (gateway.Gateway, error) {
	return gateway.NewClient(cfg, &p.client.Log, p.metrics)
}

// reloadGateways replaces the service gateway and drops every user session.
// Without a backend URL both are cleared.
func (p *Plugin) reloadGateways(config *configuration) error {
	p.gatewayLock.Lock()
	defer p.gatewayLock.Unlock()

	p.service = nil
	p.sessions.Reset(nil)

	if !config.backendConfigured() {
		return errBackendNotConfigured
	}

	gwConfig := config.gatewayConfig()
	newGateway := p.newGateway

	service, err := newGateway(gwConfig)
	if err != nil {
		return errors.Wrap(err, "failed to create service gateway")
	}

	p.service = service
	p.sessions.Reset(func() (gateway.Gateway, error) {
		return newGateway(gwConfig)
	})

	p.API.LogInfo("Backend gateway ready", "backendUrl", service.BaseURL())
	return nil
}

// serviceGateway returns the shared gateway, or nil without a backend
func (p *Plugin) serviceGateway() gateway.Gateway {
	p.gatewayLock.RLock()
	defer p.gatewayLock.RUnlock()
	return p.service
}

// createAndStartWatch creates a watch and registers it.
// If the watch is enabled, it also starts polling.
// Logs errors but does not fail - errors are non-fatal for individual watches.
func (p *Plugin) createAndStartWatch(config watch.Config) {
	source := p.serviceGateway()
	if source == nil {
		p.API.LogWarn("Watch not started, no backend configured", "id", config.ID, "name", config.Name)
		return
	}

	w, err := watch.New(config, watch.Dependencies{
		API:          p.API,
		Source:       source,
		Poster:       p.poster,
		Deduplicator: p.deduplicator,
		Logger:       &p.client.Log,
		Metrics:      p.metrics,
	})
	if err != nil {
		p.API.LogError("Failed to create watch", "id", config.ID, "name", config.Name, "error", err.Error())
		return
	}

	// Always register, even if disabled, so its status shows up
	if err := p.registry.Register(w); err != nil {
		p.API.LogError("Failed to register watch", "id", config.ID, "name", config.Name, "error", err.Error())
		return
	}

	if !config.Enabled {
		p.API.LogInfo("Watch registered but not started (disabled)", "id", config.ID, "name", config.Name)
		return
	}

	if err := w.Start(); err != nil {
		p.API.LogError("Failed to start watch", "id", config.ID, "name", config.Name, "error", err.Error())
		return
	}

	p.API.LogInfo("Watch started", "id", config.ID, "name", config.Name, "channelId", config.ChannelID)
}

// See https://developers.mattermost.com/extend/plugins/server/reference/
