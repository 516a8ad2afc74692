package main

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/mattermost/mattermost/server/public/plugin/plugintest"
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/mocks"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/poster"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/watch"
)

func disabledWatch() watch.Config {
	return watch.Config{
		ID:                  testWatchID,
		Name:                "Library Fights",
		Enabled:             false,
		Site:                "UDSM New Library",
		Category:            "Fighting",
		ChannelID:           testChannelID,
		PollIntervalSeconds: 10,
	}
}

// allowLogs accepts log calls with up to five key/value pairs
func allowLogs(api *plugintest.API) {
	for _, level := range []string{"LogDebug", "LogInfo", "LogWarn", "LogError"} {
		for n := 1; n <= 11; n += 2 {
			args := make([]interface{}, n)
			for i := range args {
				args[i] = mock.Anything
			}
			api.On(level, args...).Maybe()
		}
	}
}

func TestConfiguration_Clone(t *testing.T) {
	original := &configuration{
		BackendURL: "http://backend:8000",
		Watches:    []watch.Config{disabledWatch()},
	}

	clone := original.Clone()
	clone.Watches[0].Name = "Changed"
	clone.BackendURL = "http://other:8000"

	assert.Equal(t, "Library Fights", original.Watches[0].Name)
	assert.Equal(t, "http://backend:8000", original.BackendURL)
	assert.Nil(t, (&configuration{}).Clone().Watches)
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      configuration
		errContains string
	}{
		{name: "empty", config: configuration{}},
		{name: "backend only", config: configuration{BackendURL: "https://crime.example.com"}},
		{name: "backend with watch", config: configuration{BackendURL: "http://localhost:8000", Watches: []watch.Config{disabledWatch()}}},
		{name: "bad scheme", config: configuration{BackendURL: "ftp://crime.example.com"}, errContains: "invalid backend URL"},
		{name: "missing host", config: configuration{BackendURL: "http://"}, errContains: "invalid backend URL"},
		{name: "negative timeout", config: configuration{RequestTimeoutSeconds: -1}, errContains: "must not be negative"},
		{name: "bad watch", config: configuration{Watches: []watch.Config{{Name: "No ID"}}}, errContains: "invalid watch configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestConfiguration_BackendChanged(t *testing.T) {
	base := &configuration{BackendURL: "http://backend:8000", RequestTimeoutSeconds: 30}

	same := base.Clone()
	same.Watches = []watch.Config{disabledWatch()}
	same.BotDisplayName = "Campus Watch"
	assert.False(t, base.backendChanged(same))

	url := base.Clone()
	url.BackendURL = "http://backend:9000"
	assert.True(t, base.backendChanged(url))

	timeout := base.Clone()
	timeout.RequestTimeoutSeconds = 5
	assert.True(t, base.backendChanged(timeout))

	rate := base.Clone()
	rate.RequestsPerSecond = 2
	assert.True(t, base.backendChanged(rate))
}

func TestConfiguration_BotDefaults(t *testing.T) {
	c := &configuration{}
	assert.Equal(t, "crimewatch", c.botUsername())
	assert.Equal(t, "Crimewatch", c.botDisplayName())

	c.BotUsername = "campus-watch"
	c.BotDisplayName = "Campus Watch"
	assert.Equal(t, "campus-watch", c.botUsername())
	assert.Equal(t, "Campus Watch", c.botDisplayName())
}

func TestConfiguration_GatewayConfig(t *testing.T) {
	c := &configuration{BackendURL: "http://backend:8000", RequestTimeoutSeconds: 15, RequestsPerSecond: 4}

	gwConfig := c.gatewayConfig()
	assert.Equal(t, "http://backend:8000", gwConfig.BaseURL)
	assert.Equal(t, float64(4), gwConfig.RequestsPerSecond)
	assert.Equal(t, "15s", gwConfig.Timeout.String())
	assert.Equal(t, gateway.DefaultEndpoints(), gwConfig.Endpoints)
}

// expectConfiguration makes the next LoadPluginConfiguration return config
func expectConfiguration(api *plugintest.API, config configuration) {
	api.On("LoadPluginConfiguration", mock.AnythingOfType("*main.configuration")).
		Run(func(args mock.Arguments) {
			*args.Get(0).(*configuration) = config
		}).
		Return(nil).Once()
}

func TestOnConfigurationChange(t *testing.T) {
	t.Run("before activation only stores the configuration", func(t *testing.T) {
		api := &plugintest.API{}
		p := &Plugin{}
		p.SetAPI(api)
		expectConfiguration(api, configuration{BackendURL: "http://backend:8000", Watches: []watch.Config{disabledWatch()}})

		require.NoError(t, p.OnConfigurationChange())
		assert.Equal(t, "http://backend:8000", p.getConfiguration().BackendURL)
		assert.Nil(t, p.registry)
	})

	t.Run("invalid configuration is rejected", func(t *testing.T) {
		api := &plugintest.API{}
		p := &Plugin{}
		p.SetAPI(api)
		expectConfiguration(api, configuration{BackendURL: "not a url"})

		err := p.OnConfigurationChange()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid plugin configuration")
		assert.Empty(t, p.getConfiguration().BackendURL)
	})

	t.Run("watches follow the configuration", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(ctrl)
		gw.EXPECT().BaseURL().Return("http://backend:8000").AnyTimes()

		api := &plugintest.API{}
		allowLogs(api)

		gateways := 0
		p := &Plugin{}
		p.SetAPI(api)
		p.client = pluginapi.NewClient(api, &plugintest.Driver{})
		p.registry = watch.NewRegistry()
		p.sessions = newSessionStore(nil)
		p.poster = poster.New(api, testBotID)
		p.newGateway = func(gateway.Config) (gateway.Gateway, error) {
			gateways++
			return gw, nil
		}

		// Backend configured: gateways are built and the watch registered
		expectConfiguration(api, configuration{BackendURL: "http://backend:8000", Watches: []watch.Config{disabledWatch()}})
		require.NoError(t, p.OnConfigurationChange())

		assert.Equal(t, 1, p.registry.Count())
		assert.NotNil(t, p.serviceGateway())
		assert.Equal(t, 1, gateways)

		userGateway, err := p.sessions.Get(testUserID)
		require.NoError(t, err)
		assert.Same(t, gw, userGateway)
		assert.Equal(t, 2, gateways)

		// Bot settings only: nothing is rebuilt
		expectConfiguration(api, configuration{BackendURL: "http://backend:8000", BotDisplayName: "Campus", Watches: []watch.Config{disabledWatch()}})
		require.NoError(t, p.OnConfigurationChange())
		assert.Equal(t, 2, gateways)
		assert.Equal(t, 1, p.sessions.Len())

		// Watch removed: it is stopped and its state cleared
		api.On("KVDelete", mock.AnythingOfType("string")).Return(nil).Times(4)
		expectConfiguration(api, configuration{BackendURL: "http://backend:8000"})
		require.NoError(t, p.OnConfigurationChange())
		assert.Equal(t, 0, p.registry.Count())
		api.AssertNumberOfCalls(t, "KVDelete", 4)

		// Backend removed: gateways and sessions are dropped
		expectConfiguration(api, configuration{Watches: []watch.Config{disabledWatch()}})
		require.NoError(t, p.OnConfigurationChange())
		assert.Nil(t, p.serviceGateway())
		assert.Equal(t, 0, p.registry.Count())
		_, err = p.sessions.Get(testUserID)
		assert.ErrorIs(t, err, errBackendNotConfigured)
	})
}
