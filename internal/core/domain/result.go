package domain

import (
	"encoding/json"
	"math"
)

// Stage identifies where in the pipeline a request failed.
type Stage string

const (
	StageGeneration Stage = "generation"
	StageValidation Stage = "validation"
	StageExecution  Stage = "execution"
)

// Row maps column name to value for one result tuple.
type Row = map[string]any

// Failure describes a request that stopped at Stage. PartialData holds the
// raw model output (validation) or the validated statement (execution).
type Failure struct {
	Stage       Stage
	Message     string
	PartialData string
	Err         error
}

// Result is the outcome of one question: either OK with SQL and Rows, or a
// Failure.
type Result struct {
	OK      bool
	SQL     string
	Rows    []Row
	Failure *Failure
}

// JSONValue replaces floats that have no JSON encoding (NaN and the
// infinities) with PostgreSQL's text spelling. Other values pass through.
func JSONValue(v any) any {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return v
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return v
}

func Succeeded(stmt ValidatedStatement, rows []Row) Result {
	if rows == nil {
		rows = []Row{}
	}
	return Result{OK: true, SQL: stmt.SQL(), Rows: rows}
}

func Failed(stage Stage, message, partial string, err error) Result {
	return Result{Failure: &Failure{
		Stage:       stage,
		Message:     message,
		PartialData: partial,
		Err:         err,
	}}
}

// Outcome is "success" or the failed stage name.
func (r Result) Outcome() string {
	if r.OK || r.Failure == nil {
		return "success"
	}
	return string(r.Failure.Stage)
}

type successJSON struct {
	OK   bool   `json:"ok"`
	SQL  string `json:"sql"`
	Rows []Row  `json:"rows"`
}

type failureJSON struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Stage  Stage  `json:"stage"`
	LLMSQL *string `json:"llm_sql,omitempty"`
	SQL    *string `json:"sql,omitempty"`
}

// MarshalJSON renders the wire shape served by the HTTP and MCP transports.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK || r.Failure == nil {
		rows := r.Rows
		if rows == nil {
			rows = []Row{}
		}
		return json.Marshal(successJSON{OK: true, SQL: r.SQL, Rows: rows})
	}

	out := failureJSON{Error: r.Failure.Message, Stage: r.Failure.Stage}
	partial := r.Failure.PartialData
	switch r.Failure.Stage {
	case StageValidation:
		out.LLMSQL = &partial
	case StageExecution:
		out.SQL = &partial
	}
	return json.Marshal(out)
}
