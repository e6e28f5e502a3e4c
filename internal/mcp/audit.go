package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/store"
)

// AuditFileName is the JSONL file tool calls are recorded in.
const AuditFileName = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
// It records call metadata only, never the scenario or graph content.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	RunIDs     []string          `json:"run_ids,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to <root>/.metakg/audit.jsonl. It is safe
// for concurrent use. A nil AuditLogger is safe to use; all methods are
// no-ops on nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens the audit log under projectRoot. If the file cannot be
// created a warning is printed to stderr and nil is returned.
func NewAuditLogger(projectRoot string) *AuditLogger {
	dir := store.LocalMetaKGPath(projectRoot)
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as one JSON line. Safe to call on nil receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	_, _ = a.file.Write(data)
}

// Close closes the log file. Safe to call on nil receiver and more than once.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Parameters whose values are safe to record verbatim.
var safeValueParams = map[string]bool{
	"mode":                 true,
	"method":               true,
	"closed_system":        true,
	"minimize":             true,
	"include_trajectories": true,
	"t_end":                true,
	"t_points":             true,
	"top_n":                true,
	"validate":             true,
}

// Parameters recorded as a count or "(set)" because their values are
// caller-supplied identifiers.
var presenceOnlyParams = map[string]bool{
	"id":                     true,
	"pathway_id":             true,
	"reaction_ids":           true,
	"objective_reaction":     true,
	"flux_bounds":            true,
	"initial_concentrations": true,
	"scenarios":              true,
}

// sanitizeToolParams reduces tool arguments to loggable metadata. Safe-value
// params keep their value, presence-only params become "(set)" or an item
// count, and unknown or empty params are dropped. "_param_count" records how
// many non-empty params were provided.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	result := make(map[string]string)
	provided := 0
	for key, val := range params {
		n, empty := paramSize(val)
		if empty {
			continue
		}
		provided++
		switch {
		case safeValueParams[key]:
			result[key] = fmt.Sprintf("%v", val)
		case presenceOnlyParams[key]:
			if n >= 0 {
				result[key] = fmt.Sprintf("(%d items)", n)
			} else {
				result[key] = "(set)"
			}
		}
	}
	result["_param_count"] = fmt.Sprintf("%d", provided)
	return result
}

// paramSize returns the element count of slice and map params (-1 for
// scalars) and whether the value is a zero value.
func paramSize(val any) (int, bool) {
	switch v := val.(type) {
	case nil:
		return -1, true
	case string:
		return -1, strings.TrimSpace(v) == ""
	case bool:
		return -1, !v
	case int:
		return -1, v == 0
	case float64:
		return -1, v == 0
	case []string:
		return len(v), len(v) == 0
	case map[string]float64:
		return len(v), len(v) == 0
	case map[string]simulate.Bounds:
		return len(v), len(v) == 0
	case []simulate.WhatIfScenario:
		return len(v), len(v) == 0
	default:
		return -1, false
	}
}

// auditTool logs a tool invocation with its outcome and the run ids it produced.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string, runIDs ...string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	s.metrics.ObserveToolCall(toolName, status)

	var ids []string
	for _, id := range runIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		RunIDs:     ids,
		Params:     params,
	})
}
