// Package api provides HTTP API handlers for the rfbviz annotation visualizer.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/ayusman/rfbviz/internal/annotation"
	"github.com/ayusman/rfbviz/internal/app"
	"github.com/ayusman/rfbviz/internal/store"
)

// GUIDHandler handles HTTP requests for GUID and frame listings.
type GUIDHandler struct {
	app *app.App
}

// NewGUIDHandler creates a new GUIDHandler for the given app.
func NewGUIDHandler(a *app.App) *GUIDHandler {
	return &GUIDHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/guids or /api/guids/{guid}/frames
func (h *GUIDHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/guids")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "frames" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	h.frames(w, r, parts[0])
}

// Response types

type listGUIDsResponse struct {
	Aggregation string   `json:"aggregation"`
	SkipPolicy  string   `json:"skip_policy"`
	GUIDs       []string `json:"guids"`
}

type listFramesResponse struct {
	GUID   string   `json:"guid"`
	Frames []string `json:"frames"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code. The body is
// encoded before the header is sent; an encoding failure becomes a 500.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if data != nil {
		if err := json.NewEncoder(&buf).Encode(data); err != nil {
			status = http.StatusInternalServerError
			buf.Reset()
			json.NewEncoder(&buf).Encode(errorResponse{Error: "Failed to encode response"})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeStoreError maps an annotation, app or journal error to a status code
// and writes its message, which carries the offending instance identifier.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		clog.FromContext(r.Context()).With("path", r.URL.Path).Errorf("Request failed: %v", err)
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	var perr *annotation.ParseError
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, annotation.ErrInstanceNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &perr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, annotation.ErrInvalidIdentifier),
		errors.Is(err, annotation.ErrUnknownAggregation),
		errors.Is(err, annotation.ErrSameAnnotator),
		errors.Is(err, app.ErrUnknownAnnotator):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, store.ErrAlreadyRestored):
		return http.StatusConflict
	case errors.Is(err, app.ErrNoJournal):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// list handles GET /api/guids.
func (h *GUIDHandler) list(w http.ResponseWriter, r *http.Request) {
	sel := h.app.Selection()
	guids, err := h.app.GUIDs(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listGUIDsResponse{
		Aggregation: sel.Aggregation,
		SkipPolicy:  sel.SkipPolicy,
		GUIDs:       guids,
	})
}

// frames handles GET /api/guids/{guid}/frames.
func (h *GUIDHandler) frames(w http.ResponseWriter, r *http.Request, guid string) {
	frames, err := h.app.Frames(r.Context(), guid)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listFramesResponse{GUID: guid, Frames: frames})
}
