package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/planscore/pkg/acceptability"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/observability/metrics"
	"github.com/synaptica-ai/planscore/pkg/population"
	"github.com/synaptica-ai/planscore/pkg/protocol"
	"github.com/synaptica-ai/planscore/pkg/scene/raster"
	"github.com/synaptica-ai/planscore/pkg/scene/svg"
	"github.com/synaptica-ai/planscore/pkg/selection"
)

const maxRenderScale = 4

type HTTPHandler struct {
	store       *Store
	plans       *population.Service
	catalog     protocol.Catalog
	metrics     *metrics.Metrics
	renderScale float64
}

func NewHTTPHandler(store *Store, plans *population.Service, catalog protocol.Catalog, m *metrics.Metrics, renderScale float64) *HTTPHandler {
	if renderScale <= 0 {
		renderScale = 1
	}
	return &HTTPHandler{store: store, plans: plans, catalog: catalog, metrics: m, renderScale: renderScale}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/patients", h.handlePatients).Methods(http.MethodGet)
	router.HandleFunc("/protocol", h.handleProtocol).Methods(http.MethodGet)
	router.HandleFunc("/classify", h.handleClassify).Methods(http.MethodGet)

	router.HandleFunc("/sessions", h.handleCreateSession).Methods(http.MethodPost)
	router.HandleFunc("/sessions/{id}", h.handleGetSession).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}", h.handleDeleteSession).Methods(http.MethodDelete)
	router.HandleFunc("/sessions/{id}/plan", h.handleSelectPlan).Methods(http.MethodPut)
	router.HandleFunc("/sessions/{id}/rows/{index}", h.handleClickRow).Methods(http.MethodPost)
	router.HandleFunc("/sessions/{id}/sectors/{index}", h.handleClickSector).Methods(http.MethodPost)
	router.HandleFunc("/sessions/{id}/click", h.handleClickAt).Methods(http.MethodPost)
	router.HandleFunc("/sessions/{id}/scorecard.svg", h.handleSVG).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}/scorecard.png", h.handlePNG).Methods(http.MethodGet)
}

// State is the body returned for a session: the summary view and the
// protocol table, read under one lock turn each.
type State struct {
	View  View       `json:"view"`
	Table []TableRow `json:"table"`
}

func stateOf(s *Session) State {
	return State{View: s.View(), Table: s.Table()}
}

func (h *HTTPHandler) handlePatients(w http.ResponseWriter, r *http.Request) {
	groups, err := h.plans.Grouped(r.Context())
	if err != nil {
		h.internalError(w, err, "failed to list plans")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *HTTPHandler) handleProtocol(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}

func (h *HTTPHandler) handleClassify(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.ParseFloat(r.URL.Query().Get("score"), 64)
	if err != nil {
		http.Error(w, "score must be a number", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, acceptability.Classify(score))
}

func (h *HTTPHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Create(r.Context())
	if err != nil {
		h.internalError(w, err, "failed to open session")
		return
	}
	writeJSON(w, http.StatusCreated, stateOf(s))
}

func (h *HTTPHandler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *HTTPHandler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	h.store.Delete(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

type selectPlanRequest struct {
	Plan string `json:"plan"`
}

func (h *HTTPHandler) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	key, err := models.ParsePlanKey(req.Plan)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.SelectPlan(r.Context(), key); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			http.Error(w, "plan not found", http.StatusNotFound)
			return
		}
		h.internalError(w, err, "failed to select plan")
		return
	}
	logger.WithFields(map[string]interface{}{"session_id": s.ID, "plan": key.String()}).Debug("plan selected")
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *HTTPHandler) handleClickRow(w http.ResponseWriter, r *http.Request) {
	h.click(w, r, (*Session).ClickRow)
}

func (h *HTTPHandler) handleClickSector(w http.ResponseWriter, r *http.Request) {
	h.click(w, r, (*Session).ClickSector)
}

func (h *HTTPHandler) click(w http.ResponseWriter, r *http.Request, fn func(*Session, int) selection.Index) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 {
		http.Error(w, "index must be a non-negative integer", http.StatusBadRequest)
		return
	}
	fn(s, index)
	writeJSON(w, http.StatusOK, stateOf(s))
}

type clickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type clickResponse struct {
	Hit bool `json:"hit"`
	State
}

func (h *HTTPHandler) handleClickAt(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	_, hit := s.ClickAt(req.X, req.Y)
	writeJSON(w, http.StatusOK, clickResponse{Hit: hit, State: stateOf(s)})
}

func (h *HTTPHandler) handleSVG(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	start := time.Now()
	l := s.Layout()
	canvas := svg.New(l.Width, l.Height)
	if err := s.RenderTo(canvas); err != nil {
		h.renderError(w, err)
		return
	}
	h.metrics.ObserveRender("svg", time.Since(start))

	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := canvas.WriteTo(w); err != nil {
		logger.WithField("session_id", s.ID).WithError(err).Warn("failed to write svg")
	}
}

func (h *HTTPHandler) handlePNG(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	scale := h.renderScale
	if v := r.URL.Query().Get("scale"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || parsed > maxRenderScale {
			http.Error(w, "scale must be in (0, 4]", http.StatusBadRequest)
			return
		}
		scale = parsed
	}

	start := time.Now()
	l := s.Layout()
	canvas, err := raster.New(int(l.Width), int(l.Height), scale)
	if err != nil {
		h.internalError(w, err, "failed to create raster canvas")
		return
	}
	if err := s.RenderTo(canvas); err != nil {
		h.renderError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf); err != nil {
		h.internalError(w, err, "failed to encode png")
		return
	}
	h.metrics.ObserveRender("png", time.Since(start))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (h *HTTPHandler) renderError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoPlan) {
		http.Error(w, "no plan to render", http.StatusNotFound)
		return
	}
	h.internalError(w, err, "failed to render scorecard")
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, err error, msg string) {
	logger.Log.WithError(err).Error(msg)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
