// Package errors provides structured error encoding for AI-first error reporting.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SchemaVersion tags the shape of Encoded below; bump the suffix on a
// breaking field change.
const SchemaVersion = "wybec.error/v1"

// Fix represents a suggested fix with confidence score.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Encoded represents a structured error in JSON format. Field order here
// is the wire order: encoding/json preserves struct field order, so no
// map re-sorting is needed to keep output deterministic.
type Encoded struct {
	Schema     string      `json:"schema"`
	SID        string      `json:"sid"`
	Phase      string      `json:"phase"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Fix        Fix         `json:"fix"`
	Context    interface{} `json:"context,omitempty"`
	SourceSpan string      `json:"source_span,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

func newEncoded(sid, phase, code, msg string, ctx interface{}) Encoded {
	if sid == "" {
		sid = "unknown"
	}
	return Encoded{
		Schema:  SchemaVersion,
		SID:     sid,
		Phase:   phase,
		Code:    code,
		Message: msg,
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
		Context: ctx,
	}
}

// NewModecheck creates a mode-checking error (spec §4.1).
func NewModecheck(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "modecheck", code, msg, ctx)
}

// NewForeign creates a foreign-call signature error (spec §4.1.6).
func NewForeign(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "foreign", code, msg, ctx)
}

// NewUnbranch creates an unbranching error (spec §4.2).
func NewUnbranch(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "unbranch", code, msg, ctx)
}

// NewProcspec creates an SCC-ordered driver error (spec §5).
func NewProcspec(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "procspec", code, msg, ctx)
}

// WithFix adds a fix suggestion to the error.
func (e Encoded) WithFix(suggestion string, confidence float64) Encoded {
	e.Fix = Fix{Suggestion: suggestion, Confidence: confidence}
	return e
}

// WithSourceSpan adds source location to the error.
func (e Encoded) WithSourceSpan(span string) Encoded {
	e.SourceSpan = span
	return e
}

// WithMeta adds metadata to the error.
func (e Encoded) WithMeta(meta interface{}) Encoded {
	e.Meta = meta
	return e
}

// CompactMode controls whether ToJSON/SafeEncodeError emit single-line or
// indented JSON; exposed so a CLI's --json flag can toggle it globally.
var CompactMode = false

// SetCompactMode enables or disables compact JSON output.
func SetCompactMode(enabled bool) { CompactMode = enabled }

func marshal(v interface{}) ([]byte, error) {
	if CompactMode {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToJSON converts the error to JSON, honoring CompactMode.
func (e Encoded) ToJSON() ([]byte, error) {
	data, err := marshal(e)
	if err != nil {
		fallback := Encoded{Schema: SchemaVersion, Message: "encoding failed", Meta: map[string]string{"original_error": err.Error()}}
		return marshal(fallback)
	}
	return data, nil
}

// ErrorContext provides structured context for errors.
type ErrorContext struct {
	Constraints []string          `json:"constraints,omitempty"`
	Decisions   []string          `json:"decisions,omitempty"`
	TraceSlice  string            `json:"trace_slice,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// SafeEncodeError safely encodes any error, never panics.
func SafeEncodeError(err error, phase string) []byte {
	if err == nil {
		return nil
	}
	encoded := Encoded{
		Schema:  SchemaVersion,
		SID:     "unknown",
		Phase:   phase,
		Code:    "ERR000",
		Message: err.Error(),
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
	}
	data, _ := encoded.ToJSON()
	return data
}

// FormatSourceSpan formats file position as "file:line:col".
func FormatSourceSpan(file string, line, col int) string {
	return fmt.Sprintf("%s:%d:%d", file, line, col)
}
