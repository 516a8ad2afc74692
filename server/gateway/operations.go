package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// credentials is the body of login and register
type credentials struct {
	Username string `json:"username"`
}

type predictRequest struct {
	Address   string `json:"address"`
	CrimeType string `json:"crime_type"`
}

type smsRequest struct {
	Message string `json:"message"`
}

// Login opens a backend session for username. The session cookie is kept in
// the client's jar.
func (c *Client) Login(ctx context.Context, username string) Result[User] {
	return call(ctx, c, opLogin, c.config.Endpoints.Login, credentials{Username: username}, c.decodeUser(username))
}

// Register creates a backend account for username.
func (c *Client) Register(ctx context.Context, username string) Result[User] {
	return call(ctx, c, opRegister, c.config.Endpoints.Register, credentials{Username: username}, c.decodeUser(username))
}

// decodeUser fills in the requested username when the backend does not echo it
func (c *Client) decodeUser(username string) func([]byte) (User, *Error) {
	decode := decodeInto[User](c)
	return func(body []byte) (User, *Error) {
		user, err := decode(body)
		if err != nil {
			return user, err
		}
		if user.Username == "" {
			user.Username = username
		}
		return user, nil
	}
}

// Predict asks the backend for the risk of crimeType at address.
func (c *Client) Predict(ctx context.Context, address, crimeType string) Result[PredictionResult] {
	payload := predictRequest{Address: address, CrimeType: crimeType}
	return call(ctx, c, opPredict, c.config.Endpoints.Predict, payload, func(body []byte) (PredictionResult, *Error) {
		// Geocoding failures come back as 200 {"error": "..."}
		var errResp errorBody
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return PredictionResult{}, BadResponse("%s", errResp.Error)
		}
		return decodeInto[PredictionResult](c)(body)
	})
}

// GetCrimeTypes lists the crime types the predictor knows.
func (c *Client) GetCrimeTypes(ctx context.Context) Result[[]string] {
	return call(ctx, c, opCrimeTypes, c.config.Endpoints.CrimeTypes, nil, func(body []byte) ([]string, *Error) {
		var types []string
		if err := c.decodeArrayField(body, "crime_types", &types); err != nil {
			return nil, err
		}
		return types, nil
	})
}

// GetRecentPredictions lists the latest predictions made on this session.
func (c *Client) GetRecentPredictions(ctx context.Context) Result[[]PredictionResult] {
	return call(ctx, c, opRecentPredictions, c.config.Endpoints.RecentPredictions, nil, func(body []byte) ([]PredictionResult, *Error) {
		var predictions []PredictionResult
		if err := c.decodeArrayField(body, "predictions", &predictions); err != nil {
			return nil, err
		}
		return predictions, nil
	})
}

// decodeArrayField requires body to be an object whose field is a JSON array
// and decodes that array into out.
func (c *Client) decodeArrayField(body []byte, field string, out any) *Error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return c.badBody(err)
	}

	raw := bytes.TrimSpace(fields[field])
	if len(raw) == 0 || raw[0] != '[' {
		return BadResponse("Invalid response format: %s array not found", field)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return c.badBody(err)
	}
	return nil
}

// DetectSMS classifies message as spam or not. It never fails: when the
// classifier cannot answer, Value is SafeSpamAnalysis and Degraded holds the
// suppressed error, so callers can keep sending the message.
func (c *Client) DetectSMS(ctx context.Context, message string) Result[SpamAnalysis] {
	res := call(ctx, c, opDetectSMS, c.config.Endpoints.DetectSMS, smsRequest{Message: message}, decodeInto[SpamAnalysis](c))
	if res.Err != nil {
		c.logger.Warn("SMS analysis unavailable, using safe default",
			"kind", string(res.Err.Kind),
			"error", res.Err.Message)
		c.metrics.IncSMSFallback()
		return Result[SpamAnalysis]{Value: SafeSpamAnalysis(message), Degraded: res.Err}
	}

	if res.Value.Message == "" {
		res.Value.Message = message
	}
	return res
}

// HealthCheck succeeds when the backend answers 2xx.
func (c *Client) HealthCheck(ctx context.Context) Result[struct{}] {
	return call(ctx, c, opHealthCheck, c.config.Endpoints.HealthCheck, nil, ignoreBody)
}

// GetAnalytics returns the analytics document untouched. It only has to be valid JSON.
func (c *Client) GetAnalytics(ctx context.Context) Result[json.RawMessage] {
	return call(ctx, c, opAnalytics, c.config.Endpoints.Analytics, nil, func(body []byte) (json.RawMessage, *Error) {
		if !json.Valid(body) {
			return nil, BadResponse("Invalid response from the server at %s: analytics is not valid JSON", c.config.BaseURL)
		}
		return json.RawMessage(body), nil
	})
}

// GetCameraAlerts fetches every alert the cameras currently report.
func (c *Client) GetCameraAlerts(ctx context.Context) Result[[]Alert] {
	return call(ctx, c, opCameraAlerts, c.config.Endpoints.CameraAlerts, nil, func(body []byte) ([]Alert, *Error) {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, BadResponse("Invalid response format: expected an array of alerts")
		}

		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, c.badBody(err)
		}

		return c.decodeAlerts(raw)
	})
}

// decodeAlerts skips alerts that fail to decode so one bad record does not
// hide the rest. A list where every record is bad is still BAD_RESPONSE.
func (c *Client) decodeAlerts(raw []json.RawMessage) ([]Alert, *Error) {
	alerts := make([]Alert, 0, len(raw))
	var firstErr error
	for i, item := range raw {
		var alert Alert
		if err := json.Unmarshal(item, &alert); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.logger.Warn("Skipping malformed camera alert", "index", i, "error", err.Error())
			continue
		}
		alerts = append(alerts, alert)
	}

	if len(alerts) == 0 && firstErr != nil {
		return nil, c.badBody(firstErr)
	}
	return alerts, nil
}

// AcknowledgeAlert marks the alert as handled on the backend.
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) Result[struct{}] {
	if id == "" {
		return fail[struct{}](&Error{Kind: KindUnknown, Message: "alert id is required"})
	}
	return call(ctx, c, opAcknowledgeAlert, c.config.Endpoints.AcknowledgeAlert.WithID(id), nil, ignoreBody)
}

// IsAlreadyAcknowledged reports whether an acknowledge failure means the
// alert is already gone on the backend.
func IsAlreadyAcknowledged(err *Error) bool {
	if err == nil || err.Kind != KindServerError {
		return false
	}
	switch err.Status {
	case http.StatusNotFound, http.StatusConflict, http.StatusGone:
		return true
	}
	return false
}
