package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/rfbviz/internal/app"
)

// ConfigHandler serves and updates the current metric-table selection.
type ConfigHandler struct {
	app *app.App
}

// NewConfigHandler creates a new ConfigHandler for the given app.
func NewConfigHandler(a *app.App) *ConfigHandler {
	return &ConfigHandler{app: a}
}

type configResponse struct {
	Aggregation string    `json:"aggregation"`
	SkipPolicy  string    `json:"skip_policy"`
	Annotators  [2]string `json:"annotators"`
}

type updateConfigRequest struct {
	Aggregation string `json:"aggregation"`
	SkipPolicy  string `json:"skip_policy"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConfigHandler) response() configResponse {
	sel := h.app.Selection()
	return configResponse{
		Aggregation: sel.Aggregation,
		SkipPolicy:  sel.SkipPolicy,
		Annotators:  h.app.Annotators(),
	}
}

// get handles GET /api/config.
func (h *ConfigHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response())
}

// update handles PUT /api/config. Empty fields are left unchanged.
func (h *ConfigHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.app.SetSelection(r.Context(), req.Aggregation, req.SkipPolicy); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.response())
}
