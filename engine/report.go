package engine

import (
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/listener"
	"github.com/lixenwraith/muffle/status"
	"github.com/lixenwraith/muffle/topology"
)

// Report is the immutable outcome of one tick, served by the inspector
type Report struct {
	Tick            uint64          `json:"tick"`
	Listener        ListenerReport  `json:"listener"`
	Channels        []ChannelReport `json:"channels"`
	Sidechain       float64         `json:"sidechain"`
	SidechainGroup  string          `json:"sidechain_group,omitempty"`
	Clones          int             `json:"clones"`
	Classifications int             `json:"classifications"`
	Throttled       int             `json:"throttled"`
}

// ListenerReport mirrors the listener snapshot
type ListenerReport struct {
	Present      bool               `json:"present"`
	Position     core.Vec2          `json:"position"`
	Space        topology.SpaceID   `json:"space"`
	SpaceName    string             `json:"space_name,omitempty"`
	FocusedSpace topology.SpaceID   `json:"focused_space"`
	Submerged    bool               `json:"submerged"`
	Suit         bool               `json:"suit"`
	Eavesdrop    float64            `json:"eavesdrop"`
	Hydrophone   float64            `json:"hydrophone"`
	ReverbArea   float64            `json:"reverb_area"`
	Connected    []topology.SpaceID `json:"connected"`
}

// ChannelReport is the per-channel view of one classification
type ChannelReport struct {
	ID           ChannelID        `json:"id"`
	Sound        string           `json:"sound"`
	Category     string           `json:"category"`
	Space        topology.SpaceID `json:"space"`
	Position     core.Vec2        `json:"position"`
	Apparent     core.Vec2        `json:"apparent"`
	Obstructions string           `json:"obstructions"`
	Strength     float64          `json:"strength"`
	Tier         string           `json:"tier"`
	Flags        []string         `json:"flags,omitempty"`
	Distance     float64          `json:"distance"`
	Approximate  bool             `json:"approximate"`
	Gain         float64          `json:"gain"`
	Pitch        float64          `json:"pitch"`
	Filter       string           `json:"filter"`
	Cutoff       float64          `json:"cutoff"`
	Reverb       bool             `json:"reverb"`
	Clones       int              `json:"clones"`
	Failures     uint64           `json:"failures"`
}

// Report returns the latest tick report
func (e *Engine) Report() Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.report
}

// publish builds the tick report and updates the metrics registry
func (e *Engine) publish(snap *listener.Snapshot, classified, throttled int) {
	r := Report{
		Tick:            e.tick,
		Listener:        listenerReport(e.graph, snap),
		Channels:        make([]ChannelReport, 0, len(e.order)),
		Sidechain:       e.sidechain.Multiplier(),
		SidechainGroup:  e.sidechain.Group(),
		Clones:          e.clones.Live(),
		Classifications: classified,
		Throttled:       throttled,
	}

	for _, id := range e.order {
		en := e.entries[id]
		if en == nil || !en.ch.Classified() {
			continue
		}
		ch := en.ch
		res := ch.Result()
		dist := ch.Position.Dist(snap.Anchor)
		if res.ApproxDistance != nil {
			dist = *res.ApproxDistance
		}
		r.Channels = append(r.Channels, ChannelReport{
			ID:           id,
			Sound:        ch.Def.Name,
			Category:     ch.Def.Category.String(),
			Space:        ch.Space,
			Position:     ch.Position,
			Apparent:     res.Position,
			Obstructions: res.Obstructions.String(),
			Strength:     res.Strength,
			Tier:         res.Tier.String(),
			Flags:        res.Flags.Names(),
			Distance:     dist,
			Approximate:  res.ApproxDistance != nil,
			Gain:         ch.Gain(),
			Pitch:        ch.Pitch(),
			Filter:       res.Filter.Kind.String(),
			Cutoff:       res.Filter.Cutoff,
			Reverb:       res.Reverb,
			Clones:       len(res.Clones),
			Failures:     ch.Failures(),
		})
	}
	e.report = r

	st := e.status
	st.Ints.Get(status.KeyTicks).Store(int64(e.tick))
	st.Ints.Get(status.KeyChannels).Store(int64(len(e.order)))
	st.Ints.Get(status.KeyClassifications).Add(int64(classified))
	st.Ints.Get(status.KeyThrottled).Add(int64(throttled))
	st.Ints.Get(status.KeyCloneLive).Store(int64(e.clones.Live()))
	st.Ints.Get(status.KeyCloneCreated).Store(int64(e.clones.Created()))
	st.Ints.Get(status.KeyCloneDisposed).Store(int64(e.clones.Disposed()))
	st.Floats.Get(status.KeySidechain).Set(r.Sidechain)
	st.Labels.Get(status.KeySidechainGroup).Store(r.SidechainGroup)
	st.Floats.Get(status.KeyReverbArea).Set(snap.ReverbArea)
	st.Labels.Get(status.KeyListenerSpace).Store(r.Listener.SpaceName)
	if e.silent != nil {
		st.Bools.Get(status.KeyBackendSilent).Store(e.silent.Silent())
	}
}

func listenerReport(g *topology.Graph, snap *listener.Snapshot) ListenerReport {
	lr := ListenerReport{
		Present:      snap.Present,
		Position:     snap.Position,
		Space:        snap.Space,
		FocusedSpace: snap.FocusedSpace,
		Submerged:    snap.Submerged,
		Suit:         snap.WearingSuit,
		Eavesdrop:    snap.EavesdropEfficiency,
		Hydrophone:   snap.HydrophoneEfficiency,
		ReverbArea:   snap.ReverbArea,
		Connected:    snap.Connected.IDs(),
	}
	if s := g.Space(snap.Space); s != nil {
		lr.SpaceName = s.Name
	}
	return lr
}
