package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/rfbviz/internal/app"
)

// ReplacementHandler handles HTTP requests for annotation replacements.
type ReplacementHandler struct {
	app *app.App
}

// NewReplacementHandler creates a new ReplacementHandler for the given app.
func NewReplacementHandler(a *app.App) *ReplacementHandler {
	return &ReplacementHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/replacements or /api/replacements/{id}/restore
func (h *ReplacementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/replacements")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "restore" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.restore(w, r, parts[0])
}

// Response types

type replacementResponse struct {
	ID              string `json:"id"`
	GUID            string `json:"guid"`
	Frame           string `json:"frame"`
	SourceAnnotator string `json:"source_annotator"`
	TargetAnnotator string `json:"target_annotator"`
	BackupPath      string `json:"backup_path"`
	CreatedAt       string `json:"created_at"`
	RestoredAt      string `json:"restored_at,omitempty"`
}

type listReplacementsResponse struct {
	Replacements []replacementResponse `json:"replacements"`
}

// list handles GET /api/replacements.
func (h *ReplacementHandler) list(w http.ResponseWriter, r *http.Request) {
	reps, err := h.app.Replacements(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	response := listReplacementsResponse{
		Replacements: make([]replacementResponse, 0, len(reps)),
	}
	for _, rep := range reps {
		response.Replacements = append(response.Replacements, toReplacementResponse(rep))
	}

	writeJSON(w, http.StatusOK, response)
}

// restore handles POST /api/replacements/{id}/restore.
func (h *ReplacementHandler) restore(w http.ResponseWriter, r *http.Request, id string) {
	rep, err := h.app.Restore(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReplacementResponse(rep))
}
