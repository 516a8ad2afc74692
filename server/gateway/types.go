package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User is the account returned by login and register.
// Fields other than username are kept verbatim in Profile.
type User struct {
	Username string         `json:"username"`
	Profile  map[string]any `json:"-"`
}

// UnmarshalJSON keeps every field of the response so the webapp can render the profile
func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	username, _ := fields["username"].(string)
	delete(fields, "username")

	u.Username = username
	u.Profile = fields
	return nil
}

// MarshalJSON flattens Profile back next to username
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Profile)+1)
	for k, v := range u.Profile {
		out[k] = v
	}
	out["username"] = u.Username
	return json.Marshal(out)
}

// Coordinates is a latitude/longitude pair. The backend sends it as a
// two-element array ([lat, lng]); objects with lat/lng keys are accepted too.
type Coordinates struct {
	Lat float64
	Lng float64
}

// IsZero reports whether no position is known
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

func (c *Coordinates) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Coordinates{}
		return nil
	}

	if trimmed[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("%w: coordinates must have 2 elements, got %d", ErrMalformedBody, len(pair))
		}
		c.Lat, c.Lng = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*c = Coordinates{}
	if obj.Lat != nil {
		c.Lat = *obj.Lat
	} else if obj.Latitude != nil {
		c.Lat = *obj.Latitude
	}
	if obj.Lng != nil {
		c.Lng = *obj.Lng
	} else if obj.Longitude != nil {
		c.Lng = *obj.Longitude
	}
	return nil
}

// PredictionResult is the risk assessment for one address and crime type.
type PredictionResult struct {
	Address         string      `json:"address"`
	Coordinates     Coordinates `json:"coordinates"`
	CrimeType       string      `json:"crime_type"`
	RiskLevel       string      `json:"risk_level"`
	RiskProbability float64     `json:"risk_probability"`
	MapHTML         string      `json:"map_html,omitempty"`
}

// SpamAnalysis is the verdict of the SMS spam classifier.
type SpamAnalysis struct {
	Message         string  `json:"message,omitempty"`
	IsSpam          bool    `json:"is_spam"`
	SpamProbability float64 `json:"spam_probability"`
	Classification  string  `json:"classification"`
	Recommendation  string  `json:"recommendation"`
}

// SafeSpamAnalysis is returned by DetectSMS whenever the classifier cannot be reached.
func SafeSpamAnalysis(message string) SpamAnalysis {
	return SpamAnalysis{
		Message:         message,
		IsSpam:          false,
		SpamProbability: 0,
		Classification:  "Unknown",
		Recommendation:  "Could not analyze this message.",
	}
}

// Alert is a detection raised by a camera. ID is stable across polls.
type Alert struct {
	ID          string      `json:"id"`
	CrimeType   string      `json:"crime_type"`
	Location    string      `json:"location"`
	Timestamp   time.Time   `json:"timestamp"`
	Confidence  float64     `json:"confidence"`
	Coordinates Coordinates `json:"coordinates"`
	ImageURL    string      `json:"image_url,omitempty"`
}

// timestampLayouts are tried in order; Django emits RFC 3339 with optional
// fractional seconds, older endpoints omit the zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts numeric ids, loose timestamps, and the legacy "image" field
func (a *Alert) UnmarshalJSON(data []byte) error {
	type Alias Alert
	aux := &struct {
		ID        json.RawMessage `json:"id"`
		Timestamp string          `json:"timestamp"`
		Image     string          `json:"image"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := parseID(aux.ID)
	if err != nil {
		return err
	}
	a.ID = id

	ts, err := parseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	a.Timestamp = ts

	if a.ImageURL == "" {
		a.ImageURL = aux.Image
	}

	return nil
}

func parseID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("%w: alert without id", ErrMalformedBody)
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		if s == "" {
			return "", fmt.Errorf("%w: alert without id", ErrMalformedBody)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", fmt.Errorf("%w: invalid alert id %s", ErrMalformedBody, n)
	}
	return n.String(), nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: invalid alert timestamp %q", ErrMalformedBody, s)
}
