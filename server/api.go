package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/alerts"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/watch"
)

const (
	userIDHeader = "Mattermost-User-ID"

	// maxRequestBytes caps JSON request bodies from the webapp
	maxRequestBytes = 64 << 10
)

// ServeHTTP handles HTTP requests for the plugin.
// The root URL is currently <siteUrl>/plugins/com.mattermost.plugin-crimewatch/api/v1/.
func (p *Plugin) ServeHTTP(c *plugin.Context, w http.ResponseWriter, r *http.Request) {
	p.router().ServeHTTP(w, r)
}

func (p *Plugin) router() *mux.Router {
	router := mux.NewRouter()

	// Middleware to require that the user is logged in
	router.Use(p.MattermostAuthorizationRequired)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	// Backend session
	apiRouter.HandleFunc("/login", p.handleLogin).Methods(http.MethodPost)
	apiRouter.HandleFunc("/register", p.handleRegister).Methods(http.MethodPost)
	apiRouter.HandleFunc("/logout", p.handleLogout).Methods(http.MethodPost)

	// Prediction dashboard
	apiRouter.HandleFunc("/health", p.handleHealth).Methods(http.MethodGet)
	apiRouter.HandleFunc("/crime-types", p.handleCrimeTypes).Methods(http.MethodGet)
	apiRouter.HandleFunc("/predict", p.handlePredict).Methods(http.MethodPost)
	apiRouter.HandleFunc("/predictions/recent", p.handleRecentPredictions).Methods(http.MethodGet)
	apiRouter.HandleFunc("/analytics", p.handleAnalytics).Methods(http.MethodGet)
	apiRouter.HandleFunc("/dashboard", p.handleDashboard).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sms/detect", p.handleDetectSMS).Methods(http.MethodPost)

	// Camera watches
	apiRouter.HandleFunc("/watches", p.handleListWatches).Methods(http.MethodGet)
	apiRouter.HandleFunc("/watches/{id}/alerts", p.handleWatchAlerts).Methods(http.MethodGet)
	apiRouter.HandleFunc("/watches/{id}/refresh", p.handleRefreshWatch).Methods(http.MethodPost)
	apiRouter.HandleFunc("/watches/{id}/alerts/{alertID}/acknowledge", p.handleAcknowledgeAlert).Methods(http.MethodPost)
	apiRouter.HandleFunc("/watches/{id}/messages", p.handlePostMessage).Methods(http.MethodPost)

	if p.metrics != nil {
		apiRouter.Handle("/metrics", p.metrics.Handler()).Methods(http.MethodGet)
	}

	return router
}

func (p *Plugin) MattermostAuthorizationRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// apiError is the body of every error response
type apiError struct {
	Error string            `json:"error"`
	Kind  gateway.ErrorKind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}

// gatewayStatus maps a gateway failure to the status returned to the webapp
func gatewayStatus(err *gateway.Error) int {
	switch err.Kind {
	case gateway.KindServerError:
		if err.Status >= 400 && err.Status <= 599 {
			return err.Status
		}
		return http.StatusBadGateway
	case gateway.KindNetworkUnreachable, gateway.KindCORSBlocked, gateway.KindBadResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeGatewayError(w http.ResponseWriter, err *gateway.Error) {
	writeJSON(w, gatewayStatus(err), apiError{Error: err.Message, Kind: err.Kind})
}

// writeWatchError maps errors from watch operations
func (p *Plugin) writeWatchError(w http.ResponseWriter, watchID string, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.As(err, &gwErr):
		writeGatewayError(w, gwErr)
	case errors.Is(err, watch.ErrDisabled), errors.Is(err, alerts.ErrStopped):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		p.API.LogError("Watch operation failed", "watchId", watchID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

// userGateway returns the calling user's backend session, writing the
// error response itself when there is none.
func (p *Plugin) userGateway(w http.ResponseWriter, r *http.Request) (gateway.Gateway, bool) {
	if p.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, errBackendNotConfigured.Error())
		return nil, false
	}

	gw, err := p.sessions.Get(r.Header.Get(userIDHeader))
	if err != nil {
		if errors.Is(err, errBackendNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return nil, false
		}
		p.API.LogError("Failed to open backend session", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to open backend session")
		return nil, false
	}

	return gw, true
}

type usernameRequest struct {
	Username string `json:"username"`
}

func (p *Plugin) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.handleAccount(w, r, gateway.Gateway.Login)
}

func (p *Plugin) handleRegister(w http.ResponseWriter, r *http.Request) {
	p.handleAccount(w, r, gateway.Gateway.Register)
}

func (p *Plugin) handleAccount(w http.ResponseWriter, r *http.Request, call func(gateway.Gateway, context.Context, string) gateway.Result[gateway.User]) {
	var req usernameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	res := call(gw, r.Context(), req.Username)
	if res.Err != nil {
		writeGatewayError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, res.Value)
}

func (p *Plugin) handleLogout(w http.ResponseWriter, r *http.Request) {
	if p.sessions != nil {
		p.sessions.Forget(r.Header.Get(userIDHeader))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (p *Plugin) handleHealth(w http.ResponseWriter, r *http.Request) {
	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	if res := gw.HealthCheck(r.Context()); res.Err != nil {
		writeGatewayError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "backendUrl": gw.BaseURL()})
}

func (p *Plugin) handleCrimeTypes(w http.ResponseWriter, r *http.Request) {
	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	res := gw.GetCrimeTypes(r.Context())
	if res.Err != nil {
		writeGatewayError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"crime_types": res.Value})
}

type predictRequest struct {
	Address   string `json:"address"`
	CrimeType string `json:"crime_type"`
}

func (p *Plugin) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Address) == "" || strings.TrimSpace(req.CrimeType) == "" {
		writeError(w, http.StatusBadRequest, "address and crime_type are required")
		return
	}

	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	res := gw.Predict(r.Context(), req.Address, req.CrimeType)
	if res.Err != nil {
		writeGatewayError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, res.Value)
}

func (p *Plugin) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	res := gw.GetRecentPredictions(r.Context())
	if res.Err != nil {
		writeGatewayError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]gateway.PredictionResult{"predictions": res.Value})
}

func (p *Plugin) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	res := gw.GetAnalytics(r.Context())
	if res.Err != nil {
		writeGatewayError(w, res.Err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Value)
}

// dashboardSection is one independently loaded part of the dashboard
type dashboardSection[T any] struct {
	Data  T         `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

func newSection[T any](res gateway.Result[T]) dashboardSection[T] {
	if res.Err != nil {
		return dashboardSection[T]{Error: &apiError{Error: res.Err.Message, Kind: res.Err.Kind}}
	}
	return dashboardSection[T]{Data: res.Value}
}

type dashboardResponse struct {
	Healthy           bool                                         `json:"healthy"`
	Health            dashboardSection[struct{}]                   `json:"health"`
	CrimeTypes        dashboardSection[[]string]                   `json:"crimeTypes"`
	RecentPredictions dashboardSection[[]gateway.PredictionResult] `json:"recentPredictions"`
}

// handleDashboard loads everything the prediction dashboard shows on mount.
// Sections fail independently; the response is always 200.
func (p *Plugin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	var resp dashboardResponse

	var g errgroup.Group
	g.Go(func() error {
		resp.Health = newSection(gw.HealthCheck(ctx))
		return nil
	})
	g.Go(func() error {
		resp.CrimeTypes = newSection(gw.GetCrimeTypes(ctx))
		return nil
	})
	g.Go(func() error {
		resp.RecentPredictions = newSection(gw.GetRecentPredictions(ctx))
		return nil
	})
	_ = g.Wait() // sections carry their own errors

	resp.Healthy = resp.Health.Error == nil
	writeJSON(w, http.StatusOK, resp)
}

type messageRequest struct {
	Message string `json:"message"`
}

// smsResponse is a spam verdict. Degraded is set when the classifier could
// not be reached and the verdict is the safe default.
type smsResponse struct {
	gateway.SpamAnalysis
	Degraded *apiError `json:"degraded,omitempty"`
}

func newSMSResponse(res gateway.Result[gateway.SpamAnalysis]) smsResponse {
	resp := smsResponse{SpamAnalysis: res.Value}
	if res.Degraded != nil {
		resp.Degraded = &apiError{Error: res.Degraded.Message, Kind: res.Degraded.Kind}
	}
	return resp
}

func (p *Plugin) handleDetectSMS(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, newSMSResponse(gw.DetectSMS(r.Context(), req.Message)))
}

// handleListWatches lists the watches posting into channels the user can read
func (p *Plugin) handleListWatches(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	statuses := []watch.Status{}
	if p.registry != nil {
		for _, wt := range p.registry.List() {
			if p.API.HasPermissionToChannel(userID, wt.GetChannelID(), model.PermissionReadChannel) {
				statuses = append(statuses, wt.GetStatus())
			}
		}
	}

	writeJSON(w, http.StatusOK, statuses)
}

// lookupWatch returns the watch in the path if the user can read its
// channel. It writes a 404 for an unknown watch and a 403 otherwise.
func (p *Plugin) lookupWatch(w http.ResponseWriter, r *http.Request) (watch.Watch, bool) {
	id := mux.Vars(r)["id"]
	var wt watch.Watch
	if p.registry != nil {
		wt = p.registry.Get(id)
	}
	if wt == nil {
		writeError(w, http.StatusNotFound, "watch not found")
		return nil, false
	}

	if !p.API.HasPermissionToChannel(r.Header.Get(userIDHeader), wt.GetChannelID(), model.PermissionReadChannel) {
		writeError(w, http.StatusForbidden, "no permission to read the watch channel")
		return nil, false
	}

	return wt, true
}

func (p *Plugin) handleWatchAlerts(w http.ResponseWriter, r *http.Request) {
	wt, ok := p.lookupWatch(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, wt.Snapshot())
}

func (p *Plugin) handleRefreshWatch(w http.ResponseWriter, r *http.Request) {
	wt, ok := p.lookupWatch(w, r)
	if !ok {
		return
	}

	if err := wt.Refresh(r.Context()); err != nil {
		p.writeWatchError(w, wt.GetID(), err)
		return
	}

	writeJSON(w, http.StatusOK, wt.Snapshot())
}

func (p *Plugin) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	wt, ok := p.lookupWatch(w, r)
	if !ok {
		return
	}

	alertID := mux.Vars(r)["alertID"]
	if err := wt.Acknowledge(r.Context(), alertID); err != nil {
		p.writeWatchError(w, wt.GetID(), err)
		return
	}

	writeJSON(w, http.StatusOK, wt.Snapshot())
}

type postMessageResponse struct {
	PostID   string      `json:"postId"`
	Analysis smsResponse `json:"analysis"`
}

// handlePostMessage spam-checks a message and posts it into the watch's
// channel. Posting goes ahead when the classifier is unreachable; a message
// classified as spam is posted too, and the sender gets a private warning.
func (p *Plugin) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	wt, ok := p.lookupWatch(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	userID := r.Header.Get(userIDHeader)
	channelID := wt.GetChannelID()
	if !p.API.HasPermissionToChannel(userID, channelID, model.PermissionCreatePost) {
		writeError(w, http.StatusForbidden, "no permission to post in the watch channel")
		return
	}

	user, appErr := p.API.GetUser(userID)
	if appErr != nil {
		p.API.LogError("Failed to load message sender", "userId", userID, "error", appErr.Error())
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	gw, ok := p.userGateway(w, r)
	if !ok {
		return
	}

	res := gw.DetectSMS(r.Context(), req.Message)

	post, err := p.poster.PostMessage(channelID, user.Username, req.Message, res.Value)
	if err != nil {
		p.API.LogError("Failed to post message", "watchId", wt.GetID(), "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to post message")
		return
	}

	if res.Value.IsSpam {
		p.poster.SendSpamWarning(userID, channelID, res.Value)
	}

	writeJSON(w, http.StatusCreated, postMessageResponse{PostID: post.Id, Analysis: newSMSResponse(res)})
}
