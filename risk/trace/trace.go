package trace

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelRisks captures roles, inference outputs and risk curves.
	TraceLevelRisks TraceLevel = "risks"
	// TraceLevelFull additionally captures every sampled trajectory.
	TraceLevelFull TraceLevel = "full"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelRisks: true,
	TraceLevelFull:  true,
	"":              true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level    TraceLevel
	Seed     int64
	Source   string  // scenario path or provider name
	Timestep float64 // seconds between curve points
}

// RunTrace collects tick records during one pipeline run.
type RunTrace struct {
	Config TraceConfig
	Ticks  []TickRecord
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace(config TraceConfig) *RunTrace {
	return &RunTrace{
		Config: config,
		Ticks:  make([]TickRecord, 0),
	}
}

// Enabled reports whether records are kept at all.
func (rt *RunTrace) Enabled() bool {
	return rt.Config.Level != TraceLevelNone && rt.Config.Level != ""
}

// RecordTick appends a tick record. Trajectories are dropped below
// TraceLevelFull; nothing is kept at TraceLevelNone.
func (rt *RunTrace) RecordTick(record TickRecord) {
	if !rt.Enabled() {
		return
	}
	if rt.Config.Level != TraceLevelFull {
		record.Trajectories = nil
	}
	rt.Ticks = append(rt.Ticks, record)
}
