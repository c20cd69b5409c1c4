package compiler

import (
	"fmt"

	"github.com/roach88/sqlab/internal/ir"
)

// Lint warning codes (W500-W599). Warnings never abort a compilation.
const (
	WarnDanglingToken  = "W501" // episode solution token reaches no record
	WarnRedirectCycle  = "W502" // episodes redirect in a loop
	WarnNoResultHead   = "W503" // solution cell has no captured result table
	WarnNoEntryEpisode = "W504" // adventure reachable from no first episode
)

// Warning is a non-fatal finding about compiled records.
type Warning struct {
	Code    string `json:"code"`
	Salt    string `json:"salt"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Token != "" {
		return fmt.Sprintf("[%s] %s (token %s): %s", w.Code, w.Salt, w.Token, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.Salt, w.Message)
}

// Lint inspects compiled records. Returns all findings (does not stop at
// the first one).
func Lint(records *ir.Records) []Warning {
	var warnings []Warning

	for _, task := range records.Tasks() {
		base := task.Base()
		for _, sol := range base.Solutions.Solutions() {
			// W503: the notebook was saved without running this cell
			if sol.ResultHead == "" {
				warnings = append(warnings, Warning{
					Code:    WarnNoResultHead,
					Salt:    base.Salt,
					Token:   sol.Token,
					Message: "solution has no result table",
				})
			}
			// W501: a non-terminal episode must lead somewhere
			if task.Kind() == ir.KindEpisode && !records.Has(sol.Token) {
				warnings = append(warnings, Warning{
					Code:    WarnDanglingToken,
					Salt:    base.Salt,
					Token:   sol.Token,
					Message: "token leads to no episode",
				})
			}
		}
	}

	// W504: an adventure starts at an episode nothing leads to. Episodes
	// scanned before any such start are left in adventure 0.
	for _, task := range records.Tasks() {
		if ep, ok := task.(*ir.Episode); ok && ep.PartNumber == 0 {
			warnings = append(warnings, Warning{
				Code:    WarnNoEntryEpisode,
				Salt:    ep.Salt,
				Message: "episode belongs to no adventure",
			})
		}
	}

	// W502
	for _, cw := range AnalyzeCycles(records) {
		warnings = append(warnings, Warning{
			Code:    WarnRedirectCycle,
			Salt:    cw.Path[0],
			Message: cw.Message,
		})
	}

	if warnings == nil {
		return []Warning{}
	}
	return warnings
}
