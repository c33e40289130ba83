// Package progress maps worker pipeline phases to completion percentages and
// publishes them on per-request channels. The phase table here is the single
// source of truth for UI progress; nothing else invents percentages.
package progress

import (
	"fmt"
	"strings"
)

// Phase is a named milestone in the worker pipeline.
type Phase string

const (
	PhaseStarted           Phase = "started"
	PhaseCloningStarted    Phase = "cloning_started"
	PhaseCloningRemote     Phase = "cloning_remote"
	PhaseCloningReceiving  Phase = "cloning_receiving"
	PhaseCloningResolving  Phase = "cloning_resolving"
	PhaseCloningDone       Phase = "cloning_done"
	PhaseAppraisingStarted Phase = "appraising_started"
	PhaseAppraisingDone    Phase = "appraising_done"
	PhaseCachingStarted    Phase = "caching_started"
	PhaseFinished          Phase = "finished"
)

var percentByPhase = map[Phase]int{
	PhaseStarted:           15,
	PhaseCloningStarted:    20,
	PhaseCloningRemote:     35,
	PhaseCloningReceiving:  40,
	PhaseCloningResolving:  45,
	PhaseCloningDone:       50,
	PhaseAppraisingStarted: 55,
	PhaseAppraisingDone:    85,
	PhaseCachingStarted:    90,
	PhaseFinished:          100,
}

// Map returns the completion percentage for a phase. An unknown phase is a
// programmer error and fails fast instead of defaulting.
func Map(phase Phase) (int, error) {
	percent, ok := percentByPhase[phase]
	if !ok {
		return 0, fmt.Errorf("unknown progress phase %q", phase)
	}
	return percent, nil
}

// clonePhaseByPrefix maps raw clone tool output lines to clone sub-phases by
// case-insensitive line prefix. Order matters only for readability; prefixes
// are disjoint.
var clonePhaseByPrefix = []struct {
	prefix string
	phase  Phase
}{
	{"cloning", PhaseCloningStarted},
	{"remote:", PhaseCloningRemote},
	{"receiving", PhaseCloningReceiving},
	{"resolving", PhaseCloningResolving},
	{"checking", PhaseCloningDone},
}

// PhaseForCloneLine classifies one line of clone output. Unrecognized lines
// mean no phase change and return false.
func PhaseForCloneLine(line string) (Phase, bool) {
	line = strings.ToLower(strings.TrimSpace(line))
	for _, m := range clonePhaseByPrefix {
		if strings.HasPrefix(line, m.prefix) {
			return m.phase, true
		}
	}
	return "", false
}
