package status

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

// MaxLabelLen caps label metrics in bytes; longer values are cut at a rune boundary
const MaxLabelLen = 32

// MetricMap holds metrics of one type keyed by name
// Get allocates on first use and returns the same pointer afterwards, so writers cache it
type MetricMap[T any] struct {
	items sync.Map // string -> *T
	count atomic.Int64
}

// NewMetricMap creates an empty MetricMap
func NewMetricMap[T any]() *MetricMap[T] {
	return &MetricMap[T]{}
}

// Get returns the metric for key, creating it if absent
func (m *MetricMap[T]) Get(key string) *T {
	if v, ok := m.items.Load(key); ok {
		return v.(*T)
	}
	v, loaded := m.items.LoadOrStore(key, new(T))
	if !loaded {
		m.count.Add(1)
	}
	return v.(*T)
}

// Lookup returns the metric for key without creating it
func (m *MetricMap[T]) Lookup(key string) (*T, bool) {
	v, ok := m.items.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// Range visits metrics in key order
func (m *MetricMap[T]) Range(fn func(key string, ptr *T)) {
	var keys []string
	m.items.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	slices.Sort(keys)
	for _, k := range keys {
		if v, ok := m.items.Load(k); ok {
			fn(k, v.(*T))
		}
	}
}

// Count returns the number of registered metrics
func (m *MetricMap[T]) Count() int {
	return int(m.count.Load())
}

// Float is an atomic float64; the zero value reads 0
type Float struct {
	bits atomic.Uint64
}

func (f *Float) Set(v float64) { f.bits.Store(math.Float64bits(v)) }

func (f *Float) Get() float64 { return math.Float64frombits(f.bits.Load()) }

// Label is an atomic short string such as a space or group name
type Label struct {
	ptr atomic.Pointer[string]
}

// Store sets the label, truncating to MaxLabelLen without splitting a rune
func (l *Label) Store(v string) {
	if len(v) > MaxLabelLen {
		cut := MaxLabelLen
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	l.ptr.Store(&v)
}

// Load returns the label, empty before the first Store
func (l *Label) Load() string {
	if p := l.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
