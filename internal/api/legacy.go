package api

import (
	"errors"
	"net/http"

	"github.com/smazurov/pomodorox/internal/settings"
)

// Plain-text bodies understood by existing device clients.
const (
	msgAlive         = "server alive"
	msgSaved         = "settings saved"
	msgMissingParams = "Please make sure you include ALL the query parameters in the request"
	msgInvalidParam  = "Invalid value for query parameter "
	msgNotFound      = "Not found"
	msgTooMany       = "Too many requests"
	contentTypePlain = "text/plain"
	queryDebug       = "debug"
	queryWorkDelay   = "work_delay"
	queryRestDelay   = "rest_delay"
)

// registerLegacyRoutes serves the query-string interface of the device.
func (s *Server) registerLegacyRoutes() {
	s.mux.Handle("GET /{$}", logRequests(http.HandlerFunc(s.handleAlive)))
	s.mux.Handle("GET /settings", logRequests(http.HandlerFunc(s.handleLegacySettings)))
	s.mux.Handle("/", logRequests(http.HandlerFunc(handleNotFound)))
}

func (s *Server) handleAlive(w http.ResponseWriter, _ *http.Request) {
	writePlain(w, http.StatusOK, msgAlive)
}

func (s *Server) handleLegacySettings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	param := func(name string) *string {
		if !query.Has(name) {
			return nil
		}
		v := query.Get(name)
		return &v
	}

	req := settings.UpdateRequest{
		Debug:     param(queryDebug),
		WorkDelay: param(queryWorkDelay),
		RestDelay: param(queryRestDelay),
	}

	// Rejected requests do not spend write budget.
	cfg, err := req.Parse()
	if err != nil {
		_, err = s.settings.ApplyUpdate(r.Context(), req, settings.SourceHTTP)
		writeRejection(w, err)
		return
	}
	if !s.writes.Allow() {
		writePlain(w, http.StatusTooManyRequests, msgTooMany)
		return
	}

	// Persistence failures still answer "saved": the change is live.
	s.settings.Apply(r.Context(), cfg, settings.SourceHTTP)
	writePlain(w, http.StatusOK, msgSaved)
}

func writeRejection(w http.ResponseWriter, err error) {
	var verr *settings.ValidationError
	if errors.As(err, &verr) && errors.Is(err, settings.ErrInvalidValue) {
		writePlain(w, http.StatusBadRequest, msgInvalidParam+verr.Field)
		return
	}
	writePlain(w, http.StatusBadRequest, msgMissingParams)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writePlain(w, http.StatusNotFound, msgNotFound)
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", contentTypePlain)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
