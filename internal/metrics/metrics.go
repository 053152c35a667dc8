package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name
const Namespace = "goveectl"

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// NewRegistry creates an isolated Prometheus registry for one CLI run
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// LinkMetrics counts Bluetooth transport activity.
// A nil *LinkMetrics is valid and records nothing.
type LinkMetrics struct {
	Commands        *prometheus.CounterVec // labels: result
	FramesWritten   prometheus.Counter
	ConnectAttempts *prometheus.CounterVec // labels: result
	WriteDuration   prometheus.Histogram
}

// NewLinkMetrics registers and returns the transport metrics
func NewLinkMetrics(reg prometheus.Registerer) *LinkMetrics {
	m := &LinkMetrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "link",
			Name:      "commands_total",
			Help:      "Frame sequences sent to devices.",
		}, []string{"result"}),
		FramesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "link",
			Name:      "frames_written_total",
			Help:      "Frames written to the control characteristic.",
		}),
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "link",
			Name:      "connect_attempts_total",
			Help:      "Connection attempts by result.",
		}, []string{"result"}),
		WriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "link",
			Name:      "sequence_duration_seconds",
			Help:      "Time to connect and write one frame sequence.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Commands, m.FramesWritten, m.ConnectAttempts, m.WriteDuration)
	return m
}

// ObserveConnect records one connection attempt
func (m *LinkMetrics) ObserveConnect(err error) {
	if m == nil {
		return
	}
	m.ConnectAttempts.WithLabelValues(result(err)).Inc()
}

// ObserveFrame records one successful frame write
func (m *LinkMetrics) ObserveFrame() {
	if m == nil {
		return
	}
	m.FramesWritten.Inc()
}

// ObserveCommand records a finished frame sequence
func (m *LinkMetrics) ObserveCommand(seconds float64, err error) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(result(err)).Inc()
	m.WriteDuration.Observe(seconds)
}

// CloudMetrics counts cloud API calls.
// A nil *CloudMetrics is valid and records nothing.
type CloudMetrics struct {
	Requests        *prometheus.CounterVec // labels: endpoint, result
	Retries         *prometheus.CounterVec // labels: endpoint
	RequestDuration *prometheus.HistogramVec
}

// NewCloudMetrics registers and returns the cloud client metrics
func NewCloudMetrics(reg prometheus.Registerer) *CloudMetrics {
	m := &CloudMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cloud",
			Name:      "requests_total",
			Help:      "Cloud API requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cloud",
			Name:      "retries_total",
			Help:      "Cloud API request retries.",
		}, []string{"endpoint"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "cloud",
			Name:      "request_duration_seconds",
			Help:      "Cloud API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	reg.MustRegister(m.Requests, m.Retries, m.RequestDuration)
	return m
}

// ObserveRequest records one completed request
func (m *CloudMetrics) ObserveRequest(endpoint string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(endpoint, result(err)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// ObserveRetry records a retried request
func (m *CloudMetrics) ObserveRetry(endpoint string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(endpoint).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Sample is one counter or histogram series flattened for display
type Sample struct {
	Name   string
	Labels string // k=v pairs joined by commas
	Value  float64
}

// Snapshot gathers the registry into sorted samples. Histograms report
// their observation count.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var samples []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}

			s := Sample{Name: mf.GetName(), Labels: strings.Join(pairs, ",")}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, s)
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}
