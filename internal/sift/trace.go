package sift

import (
	"fmt"
	"strings"
)

// Stage identifies a pipeline stage in the debug trace.
type Stage string

const (
	StageQuota     Stage = "quota"
	StageScrape    Stage = "scrape"
	StageMeta      Stage = "meta_fallback"
	StageSynth     Stage = "synthesize"
	StageRehost    Stage = "rehost"
	StagePersist   Stage = "persist"
	StageSubmitImg Stage = "image_upload"
)

// StageError is a degraded-stage failure. Stages never abort the pipeline;
// their errors are folded into the record's debug trace instead.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Trace accumulates human-readable notes about which stages degraded.
// Append-only; the joined string is persisted on the record for triage.
type Trace struct {
	notes []string
}

func (t *Trace) Fail(stage Stage, err error) {
	t.notes = append(t.notes, (&StageError{Stage: stage, Err: err}).Error())
}

func (t *Trace) Addf(format string, args ...any) {
	t.notes = append(t.notes, fmt.Sprintf(format, args...))
}

func (t *Trace) Empty() bool { return len(t.notes) == 0 }

func (t *Trace) String() string {
	return strings.Join(t.notes, " | ")
}
