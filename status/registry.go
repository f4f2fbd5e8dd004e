package status

import "sync/atomic"

// Metric keys written by the engine
const (
	KeyTicks           = "engine.ticks"
	KeyChannels        = "engine.channels"
	KeyClassifications = "engine.classifications"
	KeyThrottled       = "engine.throttled"
	KeyCloneLive       = "clone.live"
	KeyCloneCreated    = "clone.created"
	KeyCloneDisposed   = "clone.disposed"
	KeyBackendFailures = "backend.failures"
	KeyBackendSilent   = "backend.silent"
	KeySidechain       = "sidechain.multiplier"
	KeySidechainGroup  = "sidechain.group"
	KeyReverbArea      = "listener.reverb_area"
	KeyListenerSpace   = "listener.space"
)

// Registry is the central metrics facade
// Writers cache pointers once; per-tick updates go directly to the atomics
type Registry struct {
	Bools  *MetricMap[atomic.Bool]
	Ints   *MetricMap[atomic.Int64]
	Floats *MetricMap[Float]
	Labels *MetricMap[Label]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:  NewMetricMap[atomic.Bool](),
		Ints:   NewMetricMap[atomic.Int64](),
		Floats: NewMetricMap[Float](),
		Labels: NewMetricMap[Label](),
	}
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Labels.Count()
}

// Snapshot copies every metric into a flat map for serialization
// Keys are unique across types by convention
func (r *Registry) Snapshot() map[string]any {
	out := make(map[string]any, r.TotalCount())
	r.Bools.Range(func(k string, v *atomic.Bool) { out[k] = v.Load() })
	r.Ints.Range(func(k string, v *atomic.Int64) { out[k] = v.Load() })
	r.Floats.Range(func(k string, v *Float) { out[k] = v.Get() })
	r.Labels.Range(func(k string, v *Label) { out[k] = v.Load() })
	return out
}
