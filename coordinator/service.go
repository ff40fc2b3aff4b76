package coordinator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/multitest/report-harness/report"
	"github.com/multitest/report-harness/servicedef"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxPartialSize is the largest request body accepted for a partial report.
const MaxPartialSize = 64 << 20

const pathMetrics = "/metrics"

// Handler returns the coordinator's HTTP interface.
func (c *Coordinator) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", c.serveStatus).Methods("GET")
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("HEAD")
	router.HandleFunc("/", c.serveDelete).Methods("DELETE")
	router.HandleFunc(servicedef.PathPartials, c.serveSubmit).Methods("POST")
	router.HandleFunc(servicedef.PathPartials, c.serveReset).Methods("DELETE")
	router.HandleFunc(servicedef.PathPartial, c.servePartial).Methods("GET")
	router.HandleFunc(servicedef.PathReport, c.serveReport).Methods("GET")
	router.Handle(servicedef.PathEvents, c.streams.Handler(eventsChannel)).Methods("GET")
	router.Handle(pathMetrics, promhttp.Handler()).Methods("GET")
	return router
}

func (c *Coordinator) serveStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Info())
}

func (c *Coordinator) serveDelete(w http.ResponseWriter, r *http.Request) {
	c.logger.Printf("Received request to stop")
	c.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (c *Coordinator) serveSubmit(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPartialSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	source := r.Header.Get(servicedef.HeaderSource)
	id, result, err := c.Submit(r.Context(), source, data)
	if id == "" {
		var invalid *invalidPartialError
		switch {
		case errors.As(err, &invalid):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, ErrClosed):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	w.Header().Set("Location", strings.Replace(servicedef.PathPartial, "{id}", id, 1))
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusCreated, servicedef.SubmitResponse{ID: id, Source: source, Cases: result.Cases})
}

func (c *Coordinator) serveReset(w http.ResponseWriter, r *http.Request) {
	if err := c.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Coordinator) servePartial(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := c.Partial(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if p.Source != "" {
		w.Header().Set(servicedef.HeaderSource, p.Source)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Data)
}

func (c *Coordinator) serveReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Report())
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := servicedef.ErrorResponse{Error: err.Error()}
	var sm *report.StructuralMismatchError
	if errors.As(err, &sm) {
		resp.Path = sm.Path.String()
	}
	writeJSON(w, status, resp)
}

// mergeEvent is an SSE event carrying a servicedef.MergeEvent.
type mergeEvent struct {
	name string
	data servicedef.MergeEvent
}

func (e mergeEvent) Event() string { return e.name }
func (e mergeEvent) Id() string    { return e.data.ID } //nolint:stylecheck
func (e mergeEvent) Data() string {
	bytes, _ := json.Marshal(e.data)
	return string(bytes)
}
