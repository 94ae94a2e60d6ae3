package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ayusman/rfbviz/internal/annotation"
	"github.com/ayusman/rfbviz/internal/app"
	"github.com/ayusman/rfbviz/internal/store"
)

// InstanceHandler handles HTTP requests for a single guid/frame instance.
type InstanceHandler struct {
	app *app.App
}

// NewInstanceHandler creates a new InstanceHandler for the given app.
func NewInstanceHandler(a *app.App) *InstanceHandler {
	return &InstanceHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
// Expected paths: /api/instances/{guid}/{frame}[/adjudicate|/history|/replace]
func (h *InstanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/instances/")
	parts := strings.Split(path, "/")

	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	guid, frame := parts[0], parts[1]

	if len(parts) == 2 {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r, guid, frame)
		return
	}

	switch parts[2] {
	case "adjudicate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.adjudicate(w, r, guid, frame)
	case "history":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.history(w, r, guid, frame)
	case "replace":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.replace(w, r, guid, frame)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type adjudicateRequest struct {
	Annotator string `json:"annotator"`
}

type replaceRequest struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Confirm bool   `json:"confirm"`
}

type metricsResponse struct {
	KeyIOU   float64 `json:"key_iou"`
	ValueIOU float64 `json:"value_iou"`
	PairIOU  float64 `json:"pair_iou"`
	AggIOU   float64 `json:"agg_iou"`
	Text     string  `json:"text"`
}

type instanceResponse struct {
	GUID                   string                    `json:"guid"`
	Frame                  string                    `json:"frame"`
	InstanceID             string                    `json:"instance_id"`
	Aggregation            string                    `json:"aggregation"`
	AggregationDescription string                    `json:"aggregation_description"`
	SkipPolicy             string                    `json:"skip_policy"`
	Metrics                metricsResponse           `json:"metrics"`
	Annotations            map[string]map[string]any `json:"annotations"`
	Errors                 map[string]string         `json:"errors,omitempty"`
	ImageURL               string                    `json:"image_url"`
	Adjudicated            bool                      `json:"adjudicated"`
	Prev                   string                    `json:"prev"`
	Next                   string                    `json:"next"`
}

type adjudicateResponse struct {
	InstanceID  string `json:"instance_id"`
	Annotator   string `json:"annotator"`
	Written     bool   `json:"written"`
	Adjudicated bool   `json:"adjudicated"`
}

type adjudicationResponse struct {
	ID        string `json:"id"`
	Annotator string `json:"annotator"`
	CreatedAt string `json:"created_at"`
}

type historyResponse struct {
	InstanceID    string                 `json:"instance_id"`
	Adjudications []adjudicationResponse `json:"adjudications"`
}

// imageURL returns the API path serving the frame image of an instance.
func imageURL(guid, frame string) string {
	return "/api/images/" + url.PathEscape(guid) + "/" + url.PathEscape(frame)
}

// toInstanceResponse converts an app.FrameView to an instanceResponse.
func toInstanceResponse(v *app.FrameView) instanceResponse {
	return instanceResponse{
		GUID:                   v.GUID,
		Frame:                  v.Frame,
		InstanceID:             v.InstanceID,
		Aggregation:            v.Selection.Aggregation,
		AggregationDescription: v.AggregationDescription,
		SkipPolicy:             v.Selection.SkipPolicy,
		Metrics: metricsResponse{
			KeyIOU:   v.Metrics.KeyIOU,
			ValueIOU: v.Metrics.ValueIOU,
			PairIOU:  v.Metrics.PairIOU,
			AggIOU:   v.Metrics.AggIOU,
			Text:     v.Metrics.Text(),
		},
		Annotations: v.Annotations,
		Errors:      v.Errors,
		ImageURL:    imageURL(v.GUID, v.Frame),
		Adjudicated: v.Adjudicated,
		Prev:        v.Prev,
		Next:        v.Next,
	}
}

// get handles GET /api/instances/{guid}/{frame}.
func (h *InstanceHandler) get(w http.ResponseWriter, r *http.Request, guid, frame string) {
	v, err := h.app.View(r.Context(), guid, frame)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toInstanceResponse(v))
}

// adjudicate handles POST /api/instances/{guid}/{frame}/adjudicate.
// Responds 201 when a file was written and 200 when the instance was
// already adjudicated.
func (h *InstanceHandler) adjudicate(w http.ResponseWriter, r *http.Request, guid, frame string) {
	var req adjudicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Annotator == "" {
		writeError(w, http.StatusBadRequest, "Annotator is required")
		return
	}

	written, err := h.app.Adjudicate(r.Context(), req.Annotator, guid, frame)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	status := http.StatusOK
	if written {
		status = http.StatusCreated
	}
	writeJSON(w, status, adjudicateResponse{
		InstanceID:  annotation.InstanceID(guid, frame),
		Annotator:   req.Annotator,
		Written:     written,
		Adjudicated: true,
	})
}

// history handles GET /api/instances/{guid}/{frame}/history.
func (h *InstanceHandler) history(w http.ResponseWriter, r *http.Request, guid, frame string) {
	events, err := h.app.History(r.Context(), guid, frame)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	response := historyResponse{
		InstanceID:    annotation.InstanceID(guid, frame),
		Adjudications: make([]adjudicationResponse, 0, len(events)),
	}
	for _, ev := range events {
		response.Adjudications = append(response.Adjudications, adjudicationResponse{
			ID:        ev.ID,
			Annotator: ev.Annotator,
			CreatedAt: ev.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// replace handles POST /api/instances/{guid}/{frame}/replace.
func (h *InstanceHandler) replace(w http.ResponseWriter, r *http.Request, guid, frame string) {
	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Source == "" || req.Target == "" {
		writeError(w, http.StatusBadRequest, "Source and target are required")
		return
	}

	rep, err := h.app.Replace(r.Context(), req.Source, req.Target, guid, frame, req.Confirm)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReplacementResponse(rep))
}

// toReplacementResponse converts a store.Replacement to a replacementResponse.
func toReplacementResponse(rep *store.Replacement) replacementResponse {
	resp := replacementResponse{
		ID:              rep.ID,
		GUID:            rep.GUID,
		Frame:           rep.Frame,
		SourceAnnotator: rep.SourceAnnotator,
		TargetAnnotator: rep.TargetAnnotator,
		BackupPath:      rep.BackupPath,
		CreatedAt:       rep.CreatedAt.Format(time.RFC3339),
	}
	if rep.RestoredAt != nil {
		resp.RestoredAt = rep.RestoredAt.Format(time.RFC3339)
	}
	return resp
}
