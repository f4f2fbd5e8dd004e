package parameter

// Acoustic Path Search
const (
	// PathMaxDistance bounds the accumulated travel distance of one search
	PathMaxDistance = 2500.0

	// PathMaxDepth caps portal hops per search
	PathMaxDepth = 100

	// PathExpansionBudget caps frame expansions in multi-path enumeration
	PathExpansionBudget = 4096

	// PathMinOpenness is the smallest openness a free opening can be traversed at
	PathMinOpenness = 0.1

	// PathDoorDistanceMultiplier scales legs through closed doors in distance mode
	PathDoorDistanceMultiplier = 2.0

	// PathApproxDivergence is the |approx − euclid| gap that switches to manual falloff
	PathApproxDivergence = 100.0

	// PathMaxWallEntries caps thick-wall entries produced by ray-cast hits
	PathMaxWallEntries = 2
)

// Connected Spaces
const (
	ConnectedMaxHops = 100
)

// Propagation
const (
	// PropagationRadius expands a Space's bounds when testing wall leakage
	PropagationRadius = 60.0
)
