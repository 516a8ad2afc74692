package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the development address of the crime backend
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single backend request
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond paces outbound calls across all operations of one client
	DefaultRequestsPerSecond = 5.0

	// DefaultBurst is the limiter bucket size
	DefaultBurst = 10
)

// Endpoint describes one backend route.
type Endpoint struct {
	Path         string
	Method       string
	RequiresAuth bool
}

// Endpoints is the static route table of the crime backend.
type Endpoints struct {
	Login             Endpoint
	Register          Endpoint
	Predict           Endpoint
	CrimeTypes        Endpoint
	RecentPredictions Endpoint
	DetectSMS         Endpoint
	HealthCheck       Endpoint
	Analytics         Endpoint
	CameraAlerts      Endpoint
	AcknowledgeAlert  Endpoint
}

// DefaultEndpoints returns the route table exposed by the crime backend.
// Alert routes live outside the /myapp prefix; the /myapp/api alert paths are legacy.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:             Endpoint{Path: "/myapp/api/login/", Method: http.MethodPost},
		Register:          Endpoint{Path: "/myapp/api/register/", Method: http.MethodPost},
		Predict:           Endpoint{Path: "/myapp/api/predict/", Method: http.MethodPost, RequiresAuth: true},
		CrimeTypes:        Endpoint{Path: "/myapp/api/crime-types/", Method: http.MethodGet},
		RecentPredictions: Endpoint{Path: "/myapp/api/recent-predictions/", Method: http.MethodGet, RequiresAuth: true},
		DetectSMS:         Endpoint{Path: "/myapp/api/detect-sms/", Method: http.MethodPost, RequiresAuth: true},
		HealthCheck:       Endpoint{Path: "/myapp/api/health-check/", Method: http.MethodGet},
		Analytics:         Endpoint{Path: "/myapp/api/analytics/", Method: http.MethodGet, RequiresAuth: true},
		CameraAlerts:      Endpoint{Path: "/api/get-camera-alerts/", Method: http.MethodGet},
		AcknowledgeAlert:  Endpoint{Path: "/api/acknowledge-alert/{id}/", Method: http.MethodPost},
	}
}

// WithID substitutes the {id} placeholder with the escaped id.
func (e Endpoint) WithID(id string) Endpoint {
	e.Path = strings.Replace(e.Path, "{id}", url.PathEscape(id), 1)
	return e
}

// Config is the immutable configuration of a gateway client.
type Config struct {
	// BaseURL is the origin of the crime backend; every endpoint path is relative to it
	BaseURL string

	// Endpoints is the route table; zero value means DefaultEndpoints
	Endpoints Endpoints

	// Timeout bounds a single request; zero means DefaultTimeout
	Timeout time.Duration

	// RequestsPerSecond paces outbound calls; zero means DefaultRequestsPerSecond, negative disables pacing
	RequestsPerSecond float64

	// Burst is the limiter bucket size; zero means DefaultBurst
	Burst int
}

// withDefaults fills unset fields and normalizes the base URL.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Endpoints == (Endpoints{}) {
		c.Endpoints = DefaultEndpoints()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	return c
}

// Validate checks that the base URL is an absolute http(s) origin.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend URL must use http or https (got %q)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("backend URL must include a hostname")
	}

	return nil
}
