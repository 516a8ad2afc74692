package alerts

import (
	"context"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
)

// Notifier raises the user-facing notification for a new alert.
type Notifier interface {
	Notify(ctx context.Context, alert gateway.Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, alert gateway.Alert) error

func (f NotifierFunc) Notify(ctx context.Context, alert gateway.Alert) error {
	return f(ctx, alert)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, gateway.Alert) error {
	return nil
}
