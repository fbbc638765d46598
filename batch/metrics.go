package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	demreader "golang-demreader"
)

const metricsNamespace = "demreader"

// Metrics counts decoded files and packets.
type Metrics struct {
	files    *prometheus.CounterVec
	packets  *prometheus.CounterVec
	ticks    prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics registers the batch metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_total",
			Help:      "Demo files decoded, by status.",
		}, []string{"status"}),
		packets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_total",
			Help:      "Packets decoded, by kind.",
		}, []string{"kind"}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "measured_ticks_total",
			Help:      "Sum of measured ticks of decoded demos.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent reading and decoding one demo.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observePacket(kind demreader.PACKET_TYPE) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeFile(res *FileResult) {
	if m == nil {
		return
	}
	status := "ok"
	if res.Err != nil {
		status = "error"
	}
	m.files.WithLabelValues(status).Inc()
	if res.Timing.MeasuredTicks > 0 {
		m.ticks.Add(float64(res.Timing.MeasuredTicks))
	}
	m.duration.Observe(res.Duration.Seconds())
}

// WriteTextfile writes everything g gathers in the node exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
