// Package server exposes the probe over HTTP: health check, Prometheus
// metrics, the latest reading and a websocket stream.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/itohio/aquaprobe/pkg/notify"
	"github.com/itohio/aquaprobe/pkg/probe"
)

// Options configure the HTTP surface.
type Options struct {
	Name     string
	Latest   *notify.Latest
	Hub      *notify.Hub
	Gatherer prometheus.Gatherer
	// Stale is the reading age after which the probe is reported unhealthy.
	// Zero disables the check.
	Stale time.Duration
	Log   logrus.FieldLogger
}

// Handler serves the probe endpoints.
type Handler struct {
	opts Options
	now  func() time.Time
}

// NewHandler creates the handler.
func NewHandler(opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Handler{opts: opts, now: time.Now}
}

// Router returns the routes wrapped in recovery and request logging.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/reading", h.Reading).Methods(http.MethodGet)
	if h.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})).Methods(http.MethodGet)
	}
	if h.opts.Hub != nil {
		r.Handle("/ws", h.opts.Hub)
	}

	n := negroni.New(negroni.NewRecovery(), negroni.HandlerFunc(h.logRequest))
	n.UseHandler(r)
	return n
}

type health struct {
	Status      string     `json:"status"`
	Probe       string     `json:"probe"`
	LastReading *time.Time `json:"last_reading,omitempty"`
	Flags       []string   `json:"flags,omitempty"`
}

// Health reports whether readings are arriving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := health{Status: "ok", Probe: h.opts.Name}
	code := http.StatusOK

	reading, at, ok := h.opts.Latest.Get()
	switch {
	case !ok:
		resp.Status = "waiting"
		code = http.StatusServiceUnavailable
	case h.opts.Stale > 0 && h.now().Sub(at) > h.opts.Stale:
		resp.Status = "stale"
		resp.LastReading = &at
		code = http.StatusServiceUnavailable
	default:
		resp.LastReading = &at
		if reading.Flags != 0 {
			resp.Status = "degraded"
		}
	}
	if ok {
		for _, f := range probe.AllFlags {
			if reading.Flags.Has(f) {
				resp.Flags = append(resp.Flags, f.Name())
			}
		}
	}

	writeJSON(w, code, resp)
}

type readingResponse struct {
	Probe     string          `json:"probe"`
	Timestamp time.Time       `json:"timestamp"`
	Reading   json.RawMessage `json:"reading"`
}

// Reading returns the latest reading as JSON.
func (h *Handler) Reading(w http.ResponseWriter, r *http.Request) {
	reading, at, ok := h.opts.Latest.Get()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no reading yet"})
		return
	}
	data, err := json.Marshal(reading)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, readingResponse{Probe: h.opts.Name, Timestamp: at, Reading: data})
}

func (h *Handler) logRequest(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := h.now()
	next(w, r)
	res := w.(negroni.ResponseWriter)
	h.opts.Log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": res.Status(),
		"took":   time.Since(start),
	}).Debug("HTTP request")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", addr).Info("HTTP server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http shutdown")
		}
		return nil
	}
}
