package api

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/ayusman/rfbviz/internal/annotation"
	"github.com/ayusman/rfbviz/internal/app"
	"github.com/ayusman/rfbviz/internal/imaging"
)

// ImageHandler serves frame images, optionally resized.
type ImageHandler struct {
	app *app.App
}

// NewImageHandler creates a new ImageHandler for the given app.
func NewImageHandler(a *app.App) *ImageHandler {
	return &ImageHandler{app: a}
}

// ServeHTTP serves GET /api/images/{guid}/{frame}[?w=&h=].
// Without w and h the PNG is served as stored.
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/images/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	guid, frame := parts[0], parts[1]

	if err := annotation.ValidateComponent("guid", guid); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if err := annotation.ValidateComponent("frame", frame); err != nil {
		writeStoreError(w, r, err)
		return
	}

	imagePath := h.app.Store().ImagePath(guid, frame)
	if _, err := os.Stat(imagePath); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("image for %s not found", annotation.InstanceID(guid, frame)))
		return
	}

	q := r.URL.Query()
	if q.Get("w") == "" && q.Get("h") == "" {
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, imagePath)
		return
	}

	width, err := sizeParam(q.Get("w"), imaging.DefaultWidth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid width")
		return
	}
	height, err := sizeParam(q.Get("h"), imaging.DefaultHeight)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid height")
		return
	}

	data, err := imaging.Thumbnail(imagePath, width, height)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// sizeParam parses a positive dimension, falling back to def when empty.
func sizeParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 4096 {
		return 0, fmt.Errorf("invalid size %q", v)
	}
	return n, nil
}
