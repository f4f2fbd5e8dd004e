package parameter

import "time"

// Engine Timing
const (
	// FrameUpdateInterval is the sandbox redraw interval (~60 FPS)
	FrameUpdateInterval = 16 * time.Millisecond

	// MaxTickDelta caps dt fed into one tick after a stall
	MaxTickDelta = 250 * time.Millisecond
)

// Path Cache
const (
	// PathCacheDirtyDistance is how far an endpoint moves before a cached path is recomputed
	PathCacheDirtyDistance = 8.0
)

// Inspector
const (
	// InspectAddr is the default inspector listen address
	InspectAddr = ":8089"

	// InspectClientBuffer is the per-client outbound report queue length
	InspectClientBuffer = 16

	// InspectWriteTimeout bounds one websocket write
	InspectWriteTimeout = 2 * time.Second
)

// Sandbox
const (
	// SandboxMoveStep is the listener displacement per arrow key press
	SandboxMoveStep = 10.0

	// SandboxFloodStep is the water level change per flood/drain key press
	SandboxFloodStep = 20.0
)
