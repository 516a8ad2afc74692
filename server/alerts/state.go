package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattermost/mattermost/server/public/plugin"
)

// StatusStore persists poll health for a watch. *StateStore is the KV-backed
// implementation; the probe CLI runs without one.
type StatusStore interface {
	SaveLastPoll(t time.Time) error
	SaveLastSuccess(t time.Time) error
	ResetFailures() error
	SaveLastError(errMsg string) error
	IncrementFailures() (int, error)
}

// StateStore keeps watch state in the Mattermost KV store.
// All keys are scoped to one watch ID.
type StateStore struct {
	api     plugin.API
	watchID string
}

// NewStateStore creates a new state store for a specific watch
func NewStateStore(api plugin.API, watchID string) *StateStore {
	return &StateStore{
		api:     api,
		watchID: watchID,
	}
}

// Status is the persisted poll health of a watch
type Status struct {
	LastPoll            time.Time `json:"lastPoll"`
	LastSuccess         time.Time `json:"lastSuccess"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastError           string    `json:"lastError"`
}

func (s *StateStore) key(suffix string) string {
	return fmt.Sprintf("watch_%s_%s", s.watchID, suffix)
}

func (s *StateStore) saveTime(suffix string, t time.Time) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal %s time: %w", suffix, err)
	}

	if err := s.api.KVSet(s.key(suffix), data); err != nil {
		return fmt.Errorf("failed to save %s time: %w", suffix, err)
	}

	return nil
}

// getTime returns the zero time if nothing is stored
func (s *StateStore) getTime(suffix string) (time.Time, error) {
	data, appErr := s.api.KVGet(s.key(suffix))
	if appErr != nil {
		return time.Time{}, fmt.Errorf("failed to get %s time: %w", suffix, appErr)
	}

	if data == nil {
		return time.Time{}, nil
	}

	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return time.Time{}, fmt.Errorf("failed to unmarshal %s time: %w", suffix, err)
	}

	return t, nil
}

// SaveLastPoll stores the timestamp of the last poll attempt
func (s *StateStore) SaveLastPoll(t time.Time) error {
	return s.saveTime("last_poll", t)
}

// GetLastPoll retrieves the timestamp of the last poll attempt
func (s *StateStore) GetLastPoll() (time.Time, error) {
	return s.getTime("last_poll")
}

// SaveLastSuccess stores the timestamp of the last successful poll
func (s *StateStore) SaveLastSuccess(t time.Time) error {
	return s.saveTime("last_success", t)
}

// GetLastSuccess retrieves the timestamp of the last successful poll
func (s *StateStore) GetLastSuccess() (time.Time, error) {
	return s.getTime("last_success")
}

// IncrementFailures increments the consecutive failures counter and returns the new count
func (s *StateStore) IncrementFailures() (int, error) {
	count, err := s.GetFailures()
	if err != nil {
		return 0, err
	}

	count++
	if err := s.saveFailures(count); err != nil {
		return 0, err
	}

	return count, nil
}

// ResetFailures resets the consecutive failures counter to zero
func (s *StateStore) ResetFailures() error {
	return s.saveFailures(0)
}

func (s *StateStore) saveFailures(count int) error {
	data, err := json.Marshal(count)
	if err != nil {
		return fmt.Errorf("failed to marshal failures count: %w", err)
	}

	if err := s.api.KVSet(s.key("failures"), data); err != nil {
		return fmt.Errorf("failed to save failures count: %w", err)
	}

	return nil
}

// GetFailures retrieves the current consecutive failures count
func (s *StateStore) GetFailures() (int, error) {
	data, appErr := s.api.KVGet(s.key("failures"))
	if appErr != nil {
		return 0, fmt.Errorf("failed to get failures count: %w", appErr)
	}

	if data == nil {
		return 0, nil
	}

	var count int
	if err := json.Unmarshal(data, &count); err != nil {
		return 0, fmt.Errorf("failed to unmarshal failures count: %w", err)
	}

	return count, nil
}

// SaveLastError stores the error message from the most recent failure
func (s *StateStore) SaveLastError(errMsg string) error {
	if err := s.api.KVSet(s.key("last_error"), []byte(errMsg)); err != nil {
		return fmt.Errorf("failed to save last error: %w", err)
	}
	return nil
}

// GetLastError retrieves the error message from the most recent failure
func (s *StateStore) GetLastError() (string, error) {
	data, appErr := s.api.KVGet(s.key("last_error"))
	if appErr != nil {
		return "", fmt.Errorf("failed to get last error: %w", appErr)
	}

	return string(data), nil
}

// GetStatus loads every status field
func (s *StateStore) GetStatus() (Status, error) {
	var (
		status Status
		err    error
	)

	if status.LastPoll, err = s.GetLastPoll(); err != nil {
		return Status{}, err
	}
	if status.LastSuccess, err = s.GetLastSuccess(); err != nil {
		return Status{}, err
	}
	if status.ConsecutiveFailures, err = s.GetFailures(); err != nil {
		return Status{}, err
	}
	if status.LastError, err = s.GetLastError(); err != nil {
		return Status{}, err
	}

	return status, nil
}

// ClearAll removes all state for this watch from the KV store
func (s *StateStore) ClearAll() error {
	for _, suffix := range []string{"last_poll", "last_success", "failures", "last_error"} {
		key := s.key(suffix)
		if err := s.api.KVDelete(key); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}

	return nil
}
