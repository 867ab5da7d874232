package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/tshirt/internal/sim"
)

// Recorder exports per-step water accounting as Prometheus metrics. It
// owns its registry so several runs in one process never collide.
type Recorder struct {
	registry   *prometheus.Registry
	steps      prometheus.Counter
	depth      *prometheus.CounterVec
	storage    *prometheus.GaugeVec
	residual   prometheus.Histogram
	violations prometheus.Counter
}

func NewRecorder(run string) *Recorder {
	labels := prometheus.Labels{"run": run}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tshirt_steps_total",
			Help:        "Number of model steps taken.",
			ConstLabels: labels,
		}),
		depth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tshirt_water_depth_meters_total",
			Help:        "Water depth moved by each flux.",
			ConstLabels: labels,
		}, []string{"flux"}),
		storage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "tshirt_storage_meters",
			Help:        "Water held in each store after the last step.",
			ConstLabels: labels,
		}, []string{"store"}),
		residual: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "tshirt_mass_balance_residual_meters",
			Help:        "Absolute water-balance residual per step.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-16, 10, 12),
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tshirt_mass_balance_violations_total",
			Help:        "Steps whose water balance exceeded the tolerance.",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(r.steps, r.depth, r.storage, r.residual, r.violations)
	return r
}

func (r *Recorder) OnStep(s sim.Step) {
	f := s.Result.Fluxes
	r.steps.Inc()

	r.add("precip", s.Forcing.Precip*s.Dt)
	r.add("surface_runoff", f.SurfaceRunoff*s.Dt)
	r.add("lateral_flow", f.SoilLateralFlow*s.Dt)
	r.add("groundwater_flow", f.GroundwaterFlow*s.Dt)
	r.add("et", f.ETLoss)

	st := s.Result.State
	cascade := 0.0
	for _, c := range st.Cascade {
		cascade += c
	}
	r.storage.WithLabelValues("soil").Set(st.Soil)
	r.storage.WithLabelValues("groundwater").Set(st.Groundwater)
	r.storage.WithLabelValues("cascade").Set(cascade)

	res := s.Balance.Residual
	if res < 0 {
		res = -res
	}
	r.residual.Observe(res)
	if !s.Balance.OK() {
		r.violations.Inc()
	}
}

// add skips non-positive depths; counters only go up.
func (r *Recorder) add(flux string, depth float64) {
	if depth > 0 {
		r.depth.WithLabelValues(flux).Add(depth)
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes the current values in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
