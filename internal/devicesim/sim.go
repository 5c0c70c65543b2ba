package devicesim

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
)

// CatalogEntry is a channel the simulator can resolve. Handle is the short
// name operators usually search for.
type CatalogEntry struct {
	Handle string
	device.ChannelCandidate
}

// Config describes the simulated environment.
type Config struct {
	// Networks is the raw scan result, including entries the client is
	// expected to filter out.
	Networks []device.AccessPoint
	// Credentials maps an SSID to its secret. Open networks accept any secret.
	Credentials map[string]string
	// Catalog is searched by handle, title and identifier.
	Catalog []CatalogEntry
	// AssociationChecks is the number of verify requests answered with
	// "not connected" before the device reports the association.
	AssociationChecks int
	// StationIP is reported by the status endpoint once associated.
	StationIP string
}

// Failures injects faults. The zero value injects none.
type Failures struct {
	// Scan makes the scan endpoints answer 500.
	Scan bool
	// SubmitWifi makes the wifi submission endpoints answer 500.
	SubmitWifi bool
	// SubmitChannel makes the channel submission endpoint answer 500.
	SubmitChannel bool
	// SlowSubmitChannel delays the channel submission endpoint.
	SlowSubmitChannel time.Duration
	// RejectChannels accepts channel submissions without storing them.
	RejectChannels bool
}

// DefaultConfig returns a household with a secured home network, an open
// guest network and a 5 GHz network the device cannot join.
func DefaultConfig() Config {
	return Config{
		Networks: []device.AccessPoint{
			{SSID: "Home WiFi", Strength: 82, Channel: 6, Security: "wpa2"},
			{SSID: "Guest Network", Strength: 55, Channel: 11, Security: "open"},
			{SSID: "Neighbour", Strength: 31, Channel: 1, Security: "wpa2"},
			{SSID: "Home WiFi 5G", Strength: 77, Channel: 36, Security: "wpa2"},
		},
		Credentials: map[string]string{
			"Home WiFi": "pass1234",
			"Neighbour": "letmein99",
		},
		Catalog: []CatalogEntry{
			{Handle: "mkbhd", ChannelCandidate: device.ChannelCandidate{
				ID:        "UCBJycsmduvYEL83R_U4JriQ",
				Title:     "Marques Brownlee",
				Thumbnail: "https://yt3.ggpht.com/mkbhd.jpg",
			}},
			{Handle: "veritasium", ChannelCandidate: device.ChannelCandidate{
				ID:        "UCHnyfMqiRRG1u-2MsSQLbXA",
				Title:     "Veritasium",
				Thumbnail: "https://yt3.ggpht.com/veritasium.jpg",
			}},
		},
		AssociationChecks: 1,
		StationIP:         "192.168.1.1",
	}
}

// Device is a simulated device. It is safe for concurrent use.
type Device struct {
	mu       sync.Mutex
	cfg      Config
	failures Failures

	pendingSSID string
	pendingOK   bool
	checksLeft  int
	associated  bool
	ssid        string
	channelID   string

	requests map[string]int
}

// New creates a simulated device in access-point mode.
func New(cfg Config) *Device {
	return &Device{
		cfg:      cfg,
		requests: make(map[string]int),
	}
}

// SetFailures replaces the injected faults.
func (d *Device) SetFailures(f Failures) {
	d.mu.Lock()
	d.failures = f
	d.mu.Unlock()
}

// SetNetworks replaces the scan result.
func (d *Device) SetNetworks(aps []device.AccessPoint) {
	d.mu.Lock()
	d.cfg.Networks = append([]device.AccessPoint(nil), aps...)
	d.mu.Unlock()
}

// Associated reports whether the device has joined a network.
func (d *Device) Associated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.associated
}

// ChannelID returns the stored channel identifier.
func (d *Device) ChannelID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channelID
}

// Requests returns how many requests matched route, e.g. "POST /wifi".
func (d *Device) Requests(route string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[route]
}

// Reset returns the device to factory state, keeping its configuration.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingSSID, d.pendingOK, d.checksLeft = "", false, 0
	d.associated, d.ssid, d.channelID = false, "", ""
	d.requests = make(map[string]int)
}

// AccessPointHandler serves the API on the device's own hotspot. It answers
// 503 once the device has joined a network.
func (d *Device) AccessPointHandler() http.Handler {
	mux := d.routes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.Associated() {
			http.Error(w, "access point is down", http.StatusServiceUnavailable)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// StationHandler serves the API on the user's network. It answers 503 until
// the device has joined it.
func (d *Device) StationHandler() http.Handler {
	mux := d.routes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.Associated() {
			http.Error(w, "device is not on this network", http.StatusServiceUnavailable)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (d *Device) routes() *http.ServeMux {
	mux := http.NewServeMux()
	for _, p := range []string{"/status", "/api/status"} {
		mux.HandleFunc("GET "+p, d.count(d.handleStatus))
	}
	for _, p := range []string{"/wifi/scan", "/api/scan"} {
		mux.HandleFunc("GET "+p, d.count(d.handleScan))
	}
	for _, p := range []string{"/wifi", "/api/wifi"} {
		mux.HandleFunc("POST "+p, d.count(d.handleSubmitWifi))
	}
	mux.HandleFunc("GET /wifi/verify", d.count(d.handleVerifyWifi))
	mux.HandleFunc("GET /youtube/search", d.count(d.handleSearch))
	mux.HandleFunc("POST /youtube", d.count(d.handleSubmitChannel))
	mux.HandleFunc("POST /youtube/verify", d.count(d.handleVerifyChannel))
	mux.HandleFunc("GET /youtube/verify", d.count(d.handleVerifyChannel))
	return mux
}

func (d *Device) count(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.requests[r.Method+" "+r.URL.Path]++
		d.mu.Unlock()

		logging.Debug("Simulator request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		next(w, r)
	}
}

func (d *Device) handleStatus(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	status := map[string]string{
		"wifi_status": "disconnected",
		"ip":          device.DefaultAccessPointAddress,
		"channel_id":  d.channelID,
	}
	if d.associated {
		status["wifi_status"] = "connected"
		status["ip"] = d.cfg.StationIP
	}
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

func (d *Device) handleScan(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	fail := d.failures.Scan
	aps := append([]device.AccessPoint(nil), d.cfg.Networks...)
	d.mu.Unlock()

	if fail {
		http.Error(w, "radio busy", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, aps)
}

func (d *Device) handleSubmitWifi(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SSID     string `json:"ssid"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SSID == "" {
		http.Error(w, "ssid is required", http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failures.SubmitWifi {
		http.Error(w, "failed to store credentials", http.StatusInternalServerError)
		return
	}

	// The device takes any credential; whether it can join is only visible
	// through verification.
	d.pendingSSID = req.SSID
	d.pendingOK = d.credentialValid(req.SSID, req.Password)
	d.checksLeft = d.cfg.AssociationChecks
	w.WriteHeader(http.StatusOK)
}

func (d *Device) credentialValid(ssid, password string) bool {
	for _, ap := range d.cfg.Networks {
		if ap.SSID == ssid && ap.Open() {
			return true
		}
	}
	secret, ok := d.cfg.Credentials[ssid]
	return ok && secret == password
}

func (d *Device) handleVerifyWifi(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	if !d.associated && d.pendingOK {
		if d.checksLeft > 0 {
			d.checksLeft--
		} else {
			d.associated = true
			d.ssid = d.pendingSSID
		}
	}
	connected := d.associated
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}

func (d *Device) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	catalog := d.cfg.Catalog
	d.mu.Unlock()

	for _, e := range catalog {
		if e.ID == r.URL.Query().Get("q") ||
			strings.Contains(strings.ToLower(e.Handle), q) ||
			strings.Contains(strings.ToLower(e.Title), q) {
			writeJSON(w, http.StatusOK, e.ChannelCandidate)
			return
		}
	}
	http.NotFound(w, r)
}

func (d *Device) handleSubmitChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelID string `json:"channelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		http.Error(w, "channelId is required", http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	f := d.failures
	d.mu.Unlock()

	if f.SlowSubmitChannel > 0 {
		select {
		case <-time.After(f.SlowSubmitChannel):
		case <-r.Context().Done():
			return
		}
	}
	if f.SubmitChannel {
		http.Error(w, "failed to store channel", http.StatusInternalServerError)
		return
	}

	if !f.RejectChannels {
		d.mu.Lock()
		d.channelID = req.ChannelID
		d.mu.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

func (d *Device) handleVerifyChannel(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("channelId")
	if r.Method == http.MethodPost {
		var req struct {
			ChannelID string `json:"channelId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		id = req.ChannelID
	}

	d.mu.Lock()
	valid := id != "" && id == d.channelID
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode simulator response", zap.Error(err))
	}
}
