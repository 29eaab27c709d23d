package types

import (
	"encoding/json"
	"time"
)

// Action is the policy's resolution for one detection.
type Action string

const (
	ActionMask  Action = "MASK"
	ActionAllow Action = "ALLOW"
	ActionFlag  Action = "FLAG"
)

// Known reports whether a is one of the recognized action kinds.
func (a Action) Known() bool {
	switch a {
	case ActionMask, ActionAllow, ActionFlag:
		return true
	}
	return false
}

// Detection is a span within scanned text attributed to a detector.
// Start and End are 0-based byte offsets into the original input, never
// into the redacted output, with Start <= End.
type Detection struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Score   float64 `json:"score,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
}

// Decision is the policy's resolved action for one Detection. Detector
// carries the detection's label.
type Decision struct {
	Detector string `json:"detector"`
	Action   Action `json:"action"`
	Reason   string `json:"reason"`
}

// Segment is one piece of the structural diff between an original text and
// its redacted output. Exactly one field is non-empty. Concatenating all
// context+removed segments reproduces the original; context+added segments
// reproduce the output.
type Segment struct {
	Context string `json:"context,omitempty"`
	Removed string `json:"removed,omitempty"`
	Added   string `json:"added,omitempty"`
}

// RedactionResult pairs redacted output with its diff segments.
type RedactionResult struct {
	Output   string    `json:"output"`
	Segments []Segment `json:"segments"`
}

// Status is a point-in-time snapshot of daemon state.
type Status struct {
	OK             bool    `json:"ok"`
	Uptime         float64 `json:"uptime"`
	Requests       uint64  `json:"requests"`
	Connections    int64   `json:"connections"`
	LogSubscribers int     `json:"log_subscribers"`
}

// LogEvent is one structured log record, immutable once emitted. Extra
// fields are flattened alongside the fixed keys on the wire.
type LogEvent struct {
	TS        time.Time      `json:"ts"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component"`
	Extra     map[string]any `json:"-"`
}

// MarshalJSON flattens Extra into the top-level object. Fixed keys win on
// collision.
func (e LogEvent) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["ts"] = e.TS.Format(time.RFC3339Nano)
	m["level"] = e.Level
	m["msg"] = e.Msg
	m["component"] = e.Component
	return json.Marshal(m)
}

// UnmarshalJSON restores the fixed keys and gathers everything else into
// Extra.
func (e *LogEvent) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if raw, ok := m["ts"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.TS = ts
		}
	}
	e.Level, _ = m["level"].(string)
	e.Msg, _ = m["msg"].(string)
	e.Component, _ = m["component"].(string)
	delete(m, "ts")
	delete(m, "level")
	delete(m, "msg")
	delete(m, "component")
	if len(m) > 0 {
		e.Extra = m
	} else {
		e.Extra = nil
	}
	return nil
}
