package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/countdown/go/internal/shortcode"
)

const maxContentBytes = 1 << 20

// WidgetHandler serves server-rendered countdown markup
type WidgetHandler struct {
	renderer *shortcode.Renderer
}

// NewWidgetHandler creates a new widget handler
func NewWidgetHandler(renderer *shortcode.Renderer) *WidgetHandler {
	return &WidgetHandler{renderer: renderer}
}

// HandleWidget renders one countdown container from query parameters
func (h *WidgetHandler) HandleWidget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.render(w, shortcode.FromValues(r.URL.Query()))
}

// HandleBlock renders one countdown container from editor block attributes
func (h *WidgetHandler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var block map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContentBytes)).Decode(&block); err != nil {
		http.Error(w, "invalid block attributes", http.StatusBadRequest)
		return
	}

	attrs, err := shortcode.FromBlock(block)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.render(w, attrs)
}

// HandleExpand replaces every countdown shortcode in the request body
func (h *WidgetHandler) HandleExpand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContentBytes))
	if err != nil {
		http.Error(w, "failed to read content", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, h.renderer.Expand(string(content)))
}

// render replies 400 with the error markup when the attributes are rejected
func (h *WidgetHandler) render(w http.ResponseWriter, attrs shortcode.Attributes) {
	var buf bytes.Buffer
	status := http.StatusOK
	if err := h.renderer.Render(&buf, attrs); err != nil {
		log.Debug().Err(err).Str("date", attrs.Date).Msg("countdown widget rejected")
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// RegisterRoutes registers widget routes with an HTTP mux
func (h *WidgetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/countdown", h.HandleWidget)
	mux.HandleFunc("/countdown/expand", h.HandleExpand)
	mux.HandleFunc("/countdown/block", h.HandleBlock)
}
