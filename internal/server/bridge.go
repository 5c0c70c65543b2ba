package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/provision"
)

// maxRequestBody bounds JSON request bodies
const maxRequestBody = 64 << 10

// Bridge exposes a provisioning session over HTTP and streams its events
// over WebSocket. It implements http.Handler.
type Bridge struct {
	session     *provision.Session
	mux         *http.ServeMux
	hub         *hub
	unsubscribe func()
}

// actionResponse is the body of every action endpoint.
type actionResponse struct {
	Outcome  *provision.Outcome `json:"outcome,omitempty"`
	Error    string             `json:"error,omitempty"`
	Snapshot provision.Snapshot `json:"snapshot"`
}

// NewBridge creates a bridge for session. Close releases its subscription
// and WebSocket clients.
func NewBridge(session *provision.Session) *Bridge {
	b := &Bridge{
		session: session,
		mux:     http.NewServeMux(),
		hub:     newHub(),
	}
	b.unsubscribe = session.Subscribe(b.hub.broadcast)

	b.mux.HandleFunc("GET /api/state", b.handleState)
	b.mux.HandleFunc("GET /api/device/status", b.handleDeviceStatus)
	b.mux.HandleFunc("POST /api/scan", b.outcomeAction(func(ctx context.Context, _ *http.Request) provision.Outcome {
		return b.session.Scan(ctx)
	}))
	b.mux.HandleFunc("POST /api/networks/select", b.errorAction(func(r *http.Request) error {
		var req struct {
			SSID string `json:"ssid"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		return b.session.SelectNetwork(req.SSID)
	}))
	b.mux.HandleFunc("POST /api/networks/manual", b.errorAction(func(r *http.Request) error {
		var req struct {
			SSID string `json:"ssid"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		return b.session.EnterNetwork(req.SSID)
	}))
	b.mux.HandleFunc("POST /api/wifi", b.handleWifi)
	b.mux.HandleFunc("POST /api/channel/query", b.errorAction(func(r *http.Request) error {
		var req struct {
			Query string `json:"query"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		return b.session.SetQuery(req.Query)
	}))
	b.mux.HandleFunc("POST /api/channel/search", b.outcomeAction(func(ctx context.Context, _ *http.Request) provision.Outcome {
		return b.session.SearchChannel(ctx)
	}))
	b.mux.HandleFunc("POST /api/channel/select", b.errorAction(func(*http.Request) error {
		return b.session.SelectCandidate()
	}))
	b.mux.HandleFunc("POST /api/channel", b.handleChannel)
	b.mux.HandleFunc("POST /api/step/next", b.errorAction(func(*http.Request) error {
		return b.session.Advance()
	}))
	b.mux.HandleFunc("POST /api/step/back", b.errorAction(func(*http.Request) error {
		return b.session.Back()
	}))
	b.mux.HandleFunc("POST /api/reset", b.errorAction(func(*http.Request) error {
		b.session.Reset()
		return nil
	}))
	b.mux.HandleFunc("GET /ws", b.handleWebSocket)

	return b
}

// ServeHTTP implements http.Handler
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logging.Debug("Bridge request",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	b.mux.ServeHTTP(w, r)
}

// Close stops event delivery and disconnects all WebSocket clients.
func (b *Bridge) Close() {
	b.unsubscribe()
	b.hub.closeAll()
}

// Clients returns the number of connected WebSocket clients.
func (b *Bridge) Clients() int {
	return b.hub.count()
}

func (b *Bridge) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, b.session.Snapshot())
}

func (b *Bridge) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := b.session.Status(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, actionResponse{
			Error:    device.GetShortErrorMessage(err),
			Snapshot: b.session.Snapshot(),
		})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleWifi stores the secret and submits the selected network.
func (b *Bridge) handleWifi(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		b.writeError(w, err)
		return
	}
	if err := b.session.SetSecret(req.Password); err != nil {
		b.writeError(w, err)
		return
	}
	b.writeOutcome(w, b.session.SubmitWifi(detach(r)))
}

// handleChannel submits a channel. A channelId in the body replaces the
// current submission identifier first.
func (b *Bridge) handleChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelID *string `json:"channelId"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			b.writeError(w, err)
			return
		}
	}
	if req.ChannelID != nil {
		if err := b.session.SetChannelID(*req.ChannelID); err != nil {
			b.writeError(w, err)
			return
		}
	}
	b.writeOutcome(w, b.session.SubmitChannel(detach(r)))
}

func (b *Bridge) outcomeAction(fn func(ctx context.Context, r *http.Request) provision.Outcome) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.writeOutcome(w, fn(detach(r), r))
	}
}

func (b *Bridge) errorAction(fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r); err != nil {
			b.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{Snapshot: b.session.Snapshot()})
	}
}

// writeOutcome reports a protocol step. Step failures are not HTTP failures:
// only rejected calls get an error status.
func (b *Bridge) writeOutcome(w http.ResponseWriter, out provision.Outcome) {
	status := http.StatusOK
	switch {
	case errors.Is(out.Err, provision.ErrInFlight):
		status = http.StatusConflict
	case out.Kind == device.KindValidation:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, actionResponse{Outcome: &out, Snapshot: b.session.Snapshot()})
}

func (b *Bridge) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), actionResponse{
		Error:    device.GetShortErrorMessage(err),
		Snapshot: b.session.Snapshot(),
	})
}

// errBadRequest marks a body that could not be decoded
var errBadRequest = errors.New("invalid request body")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, provision.ErrInFlight):
		return http.StatusConflict
	case device.IsValidationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

// detach keeps a protocol step running when the browser gives up on the
// request; its outcome still reaches WebSocket subscribers.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode response", zap.Error(err))
	}
}
