package gateway

import (
	"context"
	"encoding/json"
)

//go:generate mockgen -destination=../mocks/mock_gateway.go -package=mocks github.com/mattermost/mattermost-plugin-crimewatch/server/gateway Gateway

// Gateway is every call the plugin makes to the crime backend.
// Client is the only implementation outside tests.
type Gateway interface {
	// BaseURL returns the backend origin the gateway talks to.
	BaseURL() string

	Login(ctx context.Context, username string) Result[User]
	Register(ctx context.Context, username string) Result[User]
	Predict(ctx context.Context, address, crimeType string) Result[PredictionResult]
	GetCrimeTypes(ctx context.Context) Result[[]string]
	GetRecentPredictions(ctx context.Context) Result[[]PredictionResult]

	// DetectSMS always returns a usable analysis; see Result.Degraded.
	DetectSMS(ctx context.Context, message string) Result[SpamAnalysis]

	HealthCheck(ctx context.Context) Result[struct{}]
	GetAnalytics(ctx context.Context) Result[json.RawMessage]
	GetCameraAlerts(ctx context.Context) Result[[]Alert]
	AcknowledgeAlert(ctx context.Context, id string) Result[struct{}]
}

var _ Gateway = (*Client)(nil)
