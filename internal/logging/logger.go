// Package logging provides leveled logging and run tracing for metakg.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A RunLogger for structured JSONL simulation run records (.metakg/runs.jsonl)
package logging

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full content logging.
// At this level, per-reaction kinetics and solver internals are included.
const LevelTrace = slog.LevelDebug - 4

// RunLogFileName is the JSONL file a RunLogger appends to.
const RunLogFileName = "runs.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// RunRecord is one line of the run log.
type RunRecord struct {
	Time       time.Time `json:"time"`
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Reactions  int       `json:"reactions"`
	Compounds  int       `json:"compounds"`
	// Steps is the accepted integrator step count of an ODE run.
	Steps   int    `json:"steps,omitempty"`
	Message string `json:"message,omitempty"`
}

// RunLogger appends RunRecords to <dir>/runs.jsonl. Methods are safe for
// concurrent use and are no-ops on a nil *RunLogger, so callers never check.
type RunLogger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
	now func() time.Time
}

// NewRunLogger opens the run log below dir when level is debug or trace.
// At info level, or when the file cannot be opened, it returns nil.
func NewRunLogger(dir string, level string) *RunLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, RunLogFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &RunLogger{f: f, enc: json.NewEncoder(f), now: time.Now}
}

// Record appends rec, stamping Time when it is zero.
func (rl *RunLogger) Record(rec RunRecord) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.f == nil {
		return
	}
	if rec.Time.IsZero() {
		rec.Time = rl.now().UTC()
	}
	_ = rl.enc.Encode(rec)
}

// Close closes the run log. Later Records are dropped.
func (rl *RunLogger) Close() {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.f != nil {
		rl.f.Close()
		rl.f = nil
	}
}

// ReadRunLog decodes every record in a run log file. Lines that do not
// decode are skipped.
func ReadRunLog(path string) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []RunRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec RunRecord
		if json.Unmarshal(sc.Bytes(), &rec) == nil {
			out = append(out, rec)
		}
	}
	return out, sc.Err()
}
