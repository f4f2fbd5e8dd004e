package clone

import (
	"errors"
	"testing"
	"time"

	"github.com/lixenwraith/muffle/core"
)

// fakeVoice records writes and disposal
type fakeVoice struct {
	id        int
	pos       core.Vec2
	gain      float64
	writes    int
	disposals int
	failClone bool
	failGain  bool
	clones    *[]*fakeVoice
}

func (v *fakeVoice) SetGain(g float64) error {
	if v.failGain {
		return errors.New("gain rejected")
	}
	v.gain = g
	v.writes++
	return nil
}
func (v *fakeVoice) SetPitch(float64) error        { v.writes++; return nil }
func (v *fakeVoice) SetPosition(p core.Vec2) error { v.pos = p; v.writes++; return nil }
func (v *fakeVoice) SetFilter(core.Filter) error   { v.writes++; return nil }
func (v *fakeVoice) SetReverb(bool) error          { v.writes++; return nil }
func (v *fakeVoice) Offset() time.Duration         { return 0 }
func (v *fakeVoice) Playing() bool                 { return v.disposals == 0 }

func (v *fakeVoice) Dispose() error {
	v.disposals++
	return nil
}

func (v *fakeVoice) Clone() (core.Voice, error) {
	if v.failClone {
		return nil, errors.New("no free source")
	}
	c := &fakeVoice{id: len(*v.clones) + 1}
	*v.clones = append(*v.clones, c)
	return c, nil
}

func newSource() *fakeVoice {
	var clones []*fakeVoice
	return &fakeVoice{clones: &clones}
}

func specs(n int) []Spec {
	out := make([]Spec, n)
	for i := range out {
		out[i] = Spec{Position: core.Vec2{X: float64(i)}, Gain: 0.5, Pitch: 1}
	}
	return out
}

// TestReconcileCounts verifies N requested paths always leave exactly N phantoms
func TestReconcileCounts(t *testing.T) {
	for m := 0; m <= 3; m++ {
		for n := 0; n <= 3; n++ {
			mgr := NewManager(nil)
			src := newSource()

			if err := mgr.Reconcile(1, src, specs(m)); err != nil {
				t.Fatalf("Reconcile(%d) failed: %v", m, err)
			}
			if err := mgr.Reconcile(1, src, specs(n)); err != nil {
				t.Fatalf("Reconcile(%d→%d) failed: %v", m, n, err)
			}

			if got := mgr.Count(1); got != n {
				t.Errorf("M=%d N=%d: Expected %d live phantoms, got %d", m, n, n, got)
			}

			created := *src.clones
			live, disposedOnce := 0, 0
			for _, c := range created {
				switch c.disposals {
				case 0:
					live++
				case 1:
					disposedOnce++
				default:
					t.Errorf("M=%d N=%d: voice %d disposed %d times", m, n, c.id, c.disposals)
				}
			}
			if live != n {
				t.Errorf("M=%d N=%d: Expected %d undisposed voices, got %d", m, n, n, live)
			}
			if uint64(disposedOnce) != mgr.Disposed() {
				t.Errorf("M=%d N=%d: Expected disposed counter %d, got %d", m, n, disposedOnce, mgr.Disposed())
			}
		}
	}
}

// TestReconcileBindsSpecs verifies positions follow specs in order
func TestReconcileBindsSpecs(t *testing.T) {
	mgr := NewManager(nil)
	src := newSource()
	s := specs(2)
	s[1].Position = core.Vec2{X: 40, Y: 7}

	if err := mgr.Reconcile(9, src, s); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	hs := mgr.Handles(9)
	if len(hs) != 2 {
		t.Fatalf("Expected 2 handles, got %d", len(hs))
	}
	v, ok := mgr.Voice(hs[1])
	if !ok {
		t.Fatal("Expected valid handle")
	}
	if got := v.(*fakeVoice).pos; got != (core.Vec2{X: 40, Y: 7}) {
		t.Errorf("Expected position {40 7}, got %+v", got)
	}
}

// TestReconcileSkipsUnchanged verifies repeated specs cause no backend writes
func TestReconcileSkipsUnchanged(t *testing.T) {
	mgr := NewManager(nil)
	src := newSource()
	s := specs(2)
	_ = mgr.Reconcile(1, src, s)

	phantoms := *src.clones
	for i, c := range phantoms {
		if c.writes != 5 {
			t.Errorf("Expected 5 initial writes on phantom %d, got %d", i, c.writes)
		}
	}

	for range 3 {
		if err := mgr.Reconcile(1, src, s); err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
	}
	for i, c := range phantoms {
		if c.writes != 5 {
			t.Errorf("Expected no repeated writes on phantom %d, got %d", i, c.writes-5)
		}
	}

	s[0].Gain += writeEpsilon / 2
	s[1].Gain = 0.9
	_ = mgr.Reconcile(1, src, s)
	if phantoms[0].writes != 5 || phantoms[1].writes != 6 {
		t.Errorf("Expected only the moved gain written, got %d and %d", phantoms[0].writes, phantoms[1].writes)
	}

	// A reused slot starts unbound
	mgr.Release(1)
	_ = mgr.Reconcile(2, src, specs(1))
	if got := (*src.clones)[2].writes; got != 5 {
		t.Errorf("Expected full bind on reused slot, got %d writes", got)
	}
}

// TestReleaseInvalidatesHandles verifies generations reject stale handles after slot reuse
func TestReleaseInvalidatesHandles(t *testing.T) {
	mgr := NewManager(nil)
	src := newSource()
	_ = mgr.Reconcile(1, src, specs(1))
	old := mgr.Handles(1)[0]

	if n := mgr.Release(1); n != 1 {
		t.Errorf("Expected 1 released, got %d", n)
	}
	if mgr.Valid(old) {
		t.Error("Expected stale handle after release")
	}

	_ = mgr.Reconcile(2, src, specs(1))
	fresh := mgr.Handles(2)[0]
	if fresh.Index != old.Index {
		t.Errorf("Expected slot reuse, got index %d vs %d", fresh.Index, old.Index)
	}
	if mgr.Valid(old) || !mgr.Valid(fresh) {
		t.Error("Expected only the fresh handle to be valid")
	}
	if mgr.Release(1) != 0 {
		t.Error("Expected second release to be a no-op")
	}
}

// TestReconcileCloneFailure verifies a failed clone leaves the count short with an error
func TestReconcileCloneFailure(t *testing.T) {
	mgr := NewManager(nil)
	src := newSource()
	src.failClone = true

	if err := mgr.Reconcile(1, src, specs(2)); err == nil {
		t.Error("Expected clone error")
	}
	if mgr.Count(1) != 0 {
		t.Errorf("Expected no phantoms, got %d", mgr.Count(1))
	}

	src.failClone = false
	if err := mgr.Reconcile(1, src, specs(2)); err != nil {
		t.Errorf("Expected retry to succeed, got %v", err)
	}
	if mgr.Count(1) != 2 {
		t.Errorf("Expected 2 phantoms after retry, got %d", mgr.Count(1))
	}

	if err := mgr.Reconcile(3, nil, specs(1)); !errors.Is(err, ErrNoSource) {
		t.Errorf("Expected ErrNoSource, got %v", err)
	}
}

// TestBindFailureCounted verifies write failures are counted and do not stop other writes
func TestBindFailureCounted(t *testing.T) {
	mgr := NewManager(nil)
	src := newSource()
	_ = mgr.Reconcile(1, src, specs(1))
	(*src.clones)[0].failGain = true

	_ = mgr.Reconcile(1, src, []Spec{{Position: core.Vec2{X: 3}, Gain: 0.2}})
	if mgr.Failures() != 1 {
		t.Errorf("Expected 1 failure, got %d", mgr.Failures())
	}
	_ = mgr.Reconcile(1, src, []Spec{{Position: core.Vec2{X: 3}, Gain: 0.2}})
	if mgr.Failures() != 2 {
		t.Errorf("Expected rejected gain retried, got %d failures", mgr.Failures())
	}
	if (*src.clones)[0].pos.X != 3 {
		t.Error("Expected position written despite gain failure")
	}
}

// TestCloseReleasesAll verifies Close disposes every phantom
func TestCloseReleasesAll(t *testing.T) {
	mgr := NewManager(nil)
	src := newSource()
	_ = mgr.Reconcile(1, src, specs(2))
	_ = mgr.Reconcile(2, src, specs(1))
	if mgr.Live() != 3 {
		t.Fatalf("Expected 3 live, got %d", mgr.Live())
	}
	mgr.Close()
	if mgr.Live() != 0 || mgr.Disposed() != 3 {
		t.Errorf("Expected all disposed, got live=%d disposed=%d", mgr.Live(), mgr.Disposed())
	}
}
