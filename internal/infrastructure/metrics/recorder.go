package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "creditflow"

// Recorder holds the CreditFlow collectors.
type Recorder struct {
	editsTotal        *prometheus.CounterVec
	historyMovesTotal *prometheus.CounterVec
	historyDepth      prometheus.Gauge
	validationsTotal  *prometheus.CounterVec
	importsTotal      *prometheus.CounterVec
	submissionsTotal  *prometheus.CounterVec
	draftsTotal       *prometheus.CounterVec
	draftsEvicted     prometheus.Counter
	draftBytes        prometheus.Gauge
}

// NewRecorder registers the collectors on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		editsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edits_total",
				Help:      "Total number of recorded workflow edits",
			},
			[]string{"op"},
		),
		historyMovesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_moves_total",
				Help:      "Undo and redo calls that moved the history cursor",
			},
			[]string{"direction"},
		),
		historyDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "history_entries",
				Help:      "Number of retained history entries",
			},
		),
		validationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Workflow validations by outcome",
			},
			[]string{"result"},
		),
		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Workflow imports by outcome",
			},
			[]string{"result"},
		),
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "test_submissions_total",
				Help:      "Test-mode value submissions by node type",
			},
			[]string{"node_type"},
		),
		draftsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "draft_operations_total",
				Help:      "Draft store operations",
			},
			[]string{"op"},
		),
		draftsEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drafts_evicted_total",
				Help:      "Drafts evicted for expiry or memory pressure",
			},
		),
		draftBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "draft_store_bytes",
				Help:      "Bytes held by the in-memory draft store",
			},
		),
	}
}

// Edit counts one history-recording edit.
func (r *Recorder) Edit(op string) {
	if r == nil {
		return
	}
	r.editsTotal.WithLabelValues(op).Inc()
}

// Undo counts an undo that moved the cursor.
func (r *Recorder) Undo() {
	if r == nil {
		return
	}
	r.historyMovesTotal.WithLabelValues("undo").Inc()
}

// Redo counts a redo that moved the cursor.
func (r *Recorder) Redo() {
	if r == nil {
		return
	}
	r.historyMovesTotal.WithLabelValues("redo").Inc()
}

// HistoryDepth sets the retained history length.
func (r *Recorder) HistoryDepth(n int) {
	if r == nil {
		return
	}
	r.historyDepth.Set(float64(n))
}

// Validation counts one validation run.
func (r *Recorder) Validation(valid bool) {
	if r == nil {
		return
	}
	r.validationsTotal.WithLabelValues(result(valid)).Inc()
}

// Import counts one import attempt.
func (r *Recorder) Import(ok bool) {
	if r == nil {
		return
	}
	r.importsTotal.WithLabelValues(result(ok)).Inc()
}

// Submission counts a test value submitted to a node of nodeType.
func (r *Recorder) Submission(nodeType string) {
	if r == nil {
		return
	}
	r.submissionsTotal.WithLabelValues(nodeType).Inc()
}

// Draft counts a draft store operation (save, load, list, delete).
func (r *Recorder) Draft(op string) {
	if r == nil {
		return
	}
	r.draftsTotal.WithLabelValues(op).Inc()
}

// DraftsEvicted counts n evicted drafts.
func (r *Recorder) DraftsEvicted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.draftsEvicted.Add(float64(n))
}

// DraftBytes sets the memory held by stored drafts.
func (r *Recorder) DraftBytes(n int64) {
	if r == nil {
		return
	}
	r.draftBytes.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
