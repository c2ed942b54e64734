package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/synthwatch/synthwatch/internal/aggregator"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// renderRun writes the human-readable report for one verification run.
// showAttempts expands per-attempt probe diagnostics - the view used to
// troubleshoot why a candidate never became UI-visible.
func renderRun(w io.Writer, run *visibility.VerificationRun, showAttempts bool) error {
	name := run.Candidate.DisplayName
	if name == "" {
		name = run.Candidate.ID
	}

	fmt.Fprintf(w, "candidate:  %s (%s)\n", name, run.Candidate.ID)
	fmt.Fprintf(w, "run:        %s\n", run.ID)
	fmt.Fprintf(w, "result:     %s", run.TerminatedReason)
	if run.AbortCause != visibility.AbortNone {
		fmt.Fprintf(w, " (%s)", run.AbortCause)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "final:      %s\n", run.FinalState)
	fmt.Fprintf(w, "best seen:  %s\n", run.BestStateObserved)
	fmt.Fprintf(w, "attempts:   %d\n", len(run.Attempts))

	if !showAttempts {
		return nil
	}

	for _, attempt := range run.Attempts {
		fmt.Fprintf(w, "\nattempt %d: %s\n", attempt.Number, attempt.State)
		for _, pr := range attempt.ProbeResults {
			if pr.Failed() {
				fmt.Fprintf(w, "  %-24s %-10s error=%s  %s  (%dms)\n",
					pr.ProbeName, pr.Kind, pr.Err, pr.ErrMessage, pr.LatencyMS)
				continue
			}
			fmt.Fprintf(w, "  %-24s %-10s %s  (%dms)\n",
				pr.ProbeName, pr.Kind, describeMeasurement(pr.Measurement), pr.LatencyMS)
		}
	}
	return nil
}

// describeMeasurement renders the applicable measurement fields only.
func describeMeasurement(m *visibility.Measurement) string {
	if m == nil {
		return "no measurement"
	}
	s := fmt.Sprintf("present=%t", m.Present)
	if m.Count != nil {
		s += fmt.Sprintf(" count=%d", *m.Count)
	}
	if m.Reporting != nil {
		s += fmt.Sprintf(" reporting=%t", *m.Reporting)
	}
	return s
}

// renderSummary writes the roll-up counts across recorded runs.
func renderSummary(w io.Writer, s aggregator.Summary) error {
	fmt.Fprintf(w, "total:      %d\n", s.Total)
	fmt.Fprintf(w, "succeeded:  %d\n", s.Succeeded)
	fmt.Fprintf(w, "exhausted:  %d\n", s.Exhausted)
	fmt.Fprintf(w, "aborted:    %d\n", s.Aborted)

	if len(s.ByFinalState) == 0 {
		return nil
	}

	states := make([]string, 0, len(s.ByFinalState))
	for state := range s.ByFinalState {
		states = append(states, string(state))
	}
	sort.Strings(states)

	fmt.Fprintln(w, "by final state:")
	for _, state := range states {
		fmt.Fprintf(w, "  %-14s %d\n", state, s.ByFinalState[visibility.VisibilityState(state)])
	}
	return nil
}
