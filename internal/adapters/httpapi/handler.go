// Package httpapi exposes one workflow editing session over HTTP/JSON: the
// canvas and inspector edits, undo/redo, validation, import/export, test
// mode and drafts.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/flowgraph/creditflow/internal/app/services"
	"github.com/flowgraph/creditflow/internal/app/store"
	"github.com/flowgraph/creditflow/internal/app/testrunner"
	"github.com/flowgraph/creditflow/internal/core/draft"
	"github.com/flowgraph/creditflow/internal/core/workflow"
	"github.com/flowgraph/creditflow/internal/infrastructure/logging"
	"github.com/flowgraph/creditflow/internal/infrastructure/metrics"
	"github.com/flowgraph/creditflow/pkg/validation"
)

// errTestNotStarted is returned by test routes before /api/test/start.
var errTestNotStarted = errors.New("test mode has not been started")

// Handler serves the editing API. The store and runner are not safe for
// concurrent use, so every request holds mu.
type Handler struct {
	mu     sync.Mutex
	store  *store.Store
	drafts *services.DraftService
	runner *testrunner.Runner

	validator *validation.Middleware
	maxBody   int64
	logger    *zap.Logger
	metrics   *metrics.Recorder
	mux       *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithValidation sets the request validation limits.
func WithValidation(cfg *validation.Config) Option {
	return func(h *Handler) {
		h.validator = validation.NewMiddleware(cfg)
		if cfg != nil && cfg.MaxBodyBytes > 0 {
			h.maxBody = cfg.MaxBodyBytes
		}
	}
}

// NewHandler wires the routes for st. A nil saver disables the draft routes.
func NewHandler(st *store.Store, saver draft.Saver, logger *zap.Logger, rec *metrics.Recorder, opts ...Option) *Handler {
	logger = logging.OrNop(logger).With(zap.String("component", "httpapi"))
	h := &Handler{
		store:     st,
		validator: validation.NewMiddleware(nil),
		maxBody:   1 << 20,
		logger:    logger,
		metrics:   rec,
		mux:       http.NewServeMux(),
	}
	if saver != nil {
		h.drafts = services.NewDraftService(saver, st, logger, "")
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	v := h.validator

	h.mux.HandleFunc("GET /api/workflow", h.exportWorkflow)
	h.mux.HandleFunc("PUT /api/workflow", h.importWorkflow)
	h.mux.HandleFunc("POST /api/workflow/validate", h.validateWorkflow)
	h.mux.HandleFunc("POST /api/workflow/undo", h.undo)
	h.mux.HandleFunc("POST /api/workflow/redo", h.redo)
	h.mux.HandleFunc("GET /api/palette", h.palette)

	h.mux.Handle("POST /api/nodes", v.ValidateJSON(addNodeRequest{})(http.HandlerFunc(h.addNode)))
	h.mux.Handle("PATCH /api/nodes/{id}", v.ValidateJSON(patchNodeRequest{})(http.HandlerFunc(h.patchNode)))
	h.mux.HandleFunc("DELETE /api/nodes/{id}", h.removeNode)
	h.mux.Handle("POST /api/edges", v.ValidateJSON(connectRequest{})(http.HandlerFunc(h.connect)))
	h.mux.HandleFunc("DELETE /api/edges/{id}", h.removeEdge)

	h.mux.HandleFunc("GET /api/selection", h.selection)
	h.mux.Handle("PUT /api/selection", v.ValidateJSON(selectRequest{})(http.HandlerFunc(h.setSelection)))

	h.mux.HandleFunc("POST /api/test/start", h.startTest)
	h.mux.Handle("POST /api/test/submit", v.ValidateJSON(submitRequest{})(http.HandlerFunc(h.submitValue)))
	h.mux.HandleFunc("GET /api/test", h.testStatus)

	h.mux.Handle("POST /api/drafts", v.ValidateJSON(saveDraftRequest{})(http.HandlerFunc(h.saveDraft)))
	h.mux.HandleFunc("GET /api/drafts", h.listDrafts)
	h.mux.HandleFunc("POST /api/drafts/{id}/restore", h.restoreDraft)
	h.mux.HandleFunc("DELETE /api/drafts/{id}", h.deleteDraft)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) state() stateResponse {
	return stateResponse{
		Nodes:        h.store.Nodes(),
		Edges:        h.store.Edges(),
		HistoryIndex: h.store.HistoryIndex(),
		HistoryLen:   h.store.HistoryLen(),
		CanUndo:      h.store.CanUndo(),
		CanRedo:      h.store.CanRedo(),
	}
}

func (h *Handler) exportWorkflow(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	text, err := h.store.ExportWorkflow()
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	contentType := "application/yaml"
	if strings.HasPrefix(text, "{") {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (h *Handler) importWorkflow(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.ImportWorkflow(string(body)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) validateWorkflow(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	valid := h.store.ValidateWorkflow()
	writeJSON(w, http.StatusOK, validateResponse{Valid: valid, Errors: h.store.ValidationErrors()})
}

func (h *Handler) undo(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	moved := h.store.Undo()
	writeJSON(w, http.StatusOK, moveResponse{Moved: moved, stateResponse: h.state()})
}

func (h *Handler) redo(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	moved := h.store.Redo()
	writeJSON(w, http.StatusOK, moveResponse{Moved: moved, stateResponse: h.state()})
}

func (h *Handler) palette(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, workflow.Palette())
}

func (h *Handler) addNode(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[addNodeRequest](r)

	h.mu.Lock()
	defer h.mu.Unlock()
	node, err := h.store.AddNode(workflow.NodeType(req.Type), req.Position)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// patchNode applies the position and every field as one undoable edit. A bad
// field rejects the whole request.
func (h *Handler) patchNode(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[patchNodeRequest](r)
	id := r.PathValue("id")

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.EditNode(id, req.Position, req.Fields); err != nil {
		h.writeError(w, r, err)
		return
	}
	node, _ := h.store.Node(id)
	writeJSON(w, http.StatusOK, node)
}

func (h *Handler) removeNode(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.RemoveNode(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[connectRequest](r)

	h.mu.Lock()
	defer h.mu.Unlock()
	edge, err := h.store.Connect(req.Source, req.Target)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (h *Handler) removeEdge(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.RemoveEdge(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) selection(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.store.SelectedNode()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *Handler) setSelection(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[selectRequest](r)

	h.mu.Lock()
	defer h.mu.Unlock()
	if req.NodeID == "" {
		h.store.ClearSelection()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	node, ok := h.store.Node(req.NodeID)
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, req.NodeID))
		return
	}
	h.store.SetSelectedNode(req.NodeID)
	writeJSON(w, http.StatusOK, node)
}

func (h *Handler) startTest(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	runner, err := testrunner.Start(h.store, testrunner.Config{Logger: h.logger, Metrics: h.metrics})
	if err != nil {
		if errors.Is(err, testrunner.ErrWorkflowInvalid) {
			writeJSON(w, http.StatusUnprocessableEntity, validateResponse{Valid: false, Errors: h.store.ValidationErrors()})
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.runner = runner
	writeJSON(w, http.StatusOK, h.testState())
}

func (h *Handler) submitValue(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[submitRequest](r)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runner == nil {
		writeJSON(w, http.StatusConflict, errorBody{Error: errTestNotStarted.Error()})
		return
	}
	if err := h.runner.SubmitValue(req.NodeID, req.Value); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.testState())
}

func (h *Handler) testStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runner == nil {
		writeJSON(w, http.StatusConflict, errorBody{Error: errTestNotStarted.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.testState())
}

func (h *Handler) testState() testResponse {
	return testResponse{Statuses: h.runner.Statuses(), TestData: h.runner.TestData()}
}

func (h *Handler) requireDrafts(w http.ResponseWriter) bool {
	if h.drafts == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "drafts are not configured"})
		return false
	}
	return true
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	if !h.requireDrafts(w) {
		return
	}
	req, _ := validation.Body[saveDraftRequest](r)

	h.mu.Lock()
	defer h.mu.Unlock()
	id, err := h.drafts.SaveDraft(r.Context(), req.Name, req.Tags...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listDrafts(w http.ResponseWriter, r *http.Request) {
	if !h.requireDrafts(w) {
		return
	}
	q := r.URL.Query()
	filter := draft.Filter{Name: q.Get("name"), Tags: q["tag"]}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("%s must be an integer", key)})
				return
			}
			*dst = n
		}
	}

	drafts, err := h.drafts.ListDrafts(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]draftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, draftSummary{
			ID:        d.ID,
			Name:      d.Name,
			NodeCount: d.Metadata.NodeCount,
			EdgeCount: d.Metadata.EdgeCount,
			Tags:      d.Metadata.Tags,
			Timestamp: d.Timestamp,
			Version:   d.Version,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) restoreDraft(w http.ResponseWriter, r *http.Request) {
	if !h.requireDrafts(w) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drafts.RestoreDraft(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) deleteDraft(w http.ResponseWriter, r *http.Request) {
	if !h.requireDrafts(w) {
		return
	}
	if err := h.drafts.DeleteDraft(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
