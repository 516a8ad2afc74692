package alerts

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWatchID = "3f1c9a52-8d4e-4b7a-9c21-5e6f7a8b9c0d"

func TestStateStore_Times(t *testing.T) {
	t.Run("save and retrieve last poll", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStateStore(api, testWatchID)

		pollTime := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		expectedKey := "watch_" + testWatchID + "_last_poll"
		expectedData, _ := json.Marshal(pollTime)

		api.On("KVSet", expectedKey, expectedData).Return(nil)
		require.NoError(t, store.SaveLastPoll(pollTime))

		api.On("KVGet", expectedKey).Return(expectedData, nil)
		got, err := store.GetLastPoll()
		require.NoError(t, err)
		assert.Equal(t, pollTime, got)
		api.AssertExpectations(t)
	})

	t.Run("last success when none stored", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStateStore(api, testWatchID)

		api.On("KVGet", "watch_"+testWatchID+"_last_success").Return(nil, nil)

		got, err := store.GetLastSuccess()
		require.NoError(t, err)
		assert.True(t, got.IsZero())
		api.AssertExpectations(t)
	})

	t.Run("corrupted time", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStateStore(api, testWatchID)

		api.On("KVGet", "watch_"+testWatchID+"_last_poll").Return([]byte("not a time"), nil)

		_, err := store.GetLastPoll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})

	t.Run("kv error", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStateStore(api, testWatchID)

		api.On("KVSet", "watch_"+testWatchID+"_last_success", mock.Anything).
			Return(model.NewAppError("KVSet", "kv.error", nil, "", http.StatusInternalServerError))

		err := store.SaveLastSuccess(time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save last_success time")
	})
}

func TestStateStore_Failures(t *testing.T) {
	api := &plugintest.API{}
	store := NewStateStore(api, testWatchID)
	key := "watch_" + testWatchID + "_failures"

	// First increment starts from nothing stored
	api.On("KVGet", key).Return(nil, nil).Once()
	api.On("KVSet", key, []byte("1")).Return(nil).Once()

	count, err := store.IncrementFailures()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	api.On("KVGet", key).Return([]byte("1"), nil).Once()
	api.On("KVSet", key, []byte("2")).Return(nil).Once()

	count, err = store.IncrementFailures()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	api.On("KVSet", key, []byte("0")).Return(nil).Once()
	require.NoError(t, store.ResetFailures())

	api.AssertExpectations(t)
}

func TestStateStore_GetStatus(t *testing.T) {
	api := &plugintest.API{}
	store := NewStateStore(api, testWatchID)

	lastPoll := time.Date(2024, 1, 1, 10, 0, 10, 0, time.UTC)
	lastSuccess := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	pollData, _ := json.Marshal(lastPoll)
	successData, _ := json.Marshal(lastSuccess)

	api.On("KVGet", "watch_"+testWatchID+"_last_poll").Return(pollData, nil)
	api.On("KVGet", "watch_"+testWatchID+"_last_success").Return(successData, nil)
	api.On("KVGet", "watch_"+testWatchID+"_failures").Return([]byte("3"), nil)
	api.On("KVGet", "watch_"+testWatchID+"_last_error").Return([]byte("Network error"), nil)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, Status{
		LastPoll:            lastPoll,
		LastSuccess:         lastSuccess,
		ConsecutiveFailures: 3,
		LastError:           "Network error",
	}, status)
	api.AssertExpectations(t)
}

func TestStateStore_ClearAll(t *testing.T) {
	api := &plugintest.API{}
	store := NewStateStore(api, testWatchID)

	for _, suffix := range []string{"last_poll", "last_success", "failures", "last_error"} {
		api.On("KVDelete", "watch_"+testWatchID+"_"+suffix).Return(nil)
	}

	require.NoError(t, store.ClearAll())
	api.AssertExpectations(t)
}
