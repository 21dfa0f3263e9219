package trace

// TraceLevel controls whether notices are retained.
type TraceLevel string

const (
	// TraceLevelNone drops notices (zero overhead for batch sweeps).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelNotices retains every notice.
	TraceLevelNotices TraceLevel = "notices"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelNotices: true,
	"":                true, // empty defaults to notices
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Log collects notices in the order they were raised.
type Log struct {
	Level   TraceLevel
	Notices []Notice
}

// NewLog creates a Log ready for recording.
func NewLog(level TraceLevel) *Log {
	if level == "" {
		level = TraceLevelNotices
	}
	return &Log{
		Level:   level,
		Notices: make([]Notice, 0),
	}
}

// Record appends notices, tagging them with step when step >= 0.
func (l *Log) Record(step int, notices ...Notice) {
	if l == nil || l.Level == TraceLevelNone {
		return
	}
	for _, n := range notices {
		if step >= 0 {
			n.Step = step
		}
		l.Notices = append(l.Notices, n)
	}
}
