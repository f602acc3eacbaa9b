package messagepipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transform outcomes recorded by WithTransformLogging.
const (
	OutcomeTransformed = "transformed"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)

// TransformMetrics counts transformer invocations by transform name and outcome.
type TransformMetrics struct {
	messages *prometheus.CounterVec
}

// NewTransformMetrics creates the counters and registers them with reg.
func NewTransformMetrics(reg prometheus.Registerer) (*TransformMetrics, error) {
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowtransforms_messages_total",
		Help: "Messages handled by each transform, by outcome.",
	}, []string{"transform", "outcome"})
	if err := reg.Register(messages); err != nil {
		return nil, err
	}
	return &TransformMetrics{messages: messages}, nil
}

func (m *TransformMetrics) observe(transform, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(transform, outcome).Inc()
}
