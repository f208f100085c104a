// Package report implements ports.JourneyReporter, turning a solved
// ports.Solution into a human-readable journey summary.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/obs"
	"mdrp-solver/internal/ports"
)

// JourneyFormatter renders a Solution as one line per courier,
// "0 -> S1 -> r1 -> S2 -> r2 ->... -> 0", where each Si lists the orders
// dropped off before the courier moves on to restaurant ri, followed by the
// locale-formatted objective value.
type JourneyFormatter struct {
	Locale language.Tag
}

func NewJourneyFormatter(locale language.Tag) *JourneyFormatter {
	return &JourneyFormatter{Locale: locale}
}

func (f *JourneyFormatter) Report(ctx context.Context, sol ports.Solution) (_ string, err error) {
	defer obs.Time(ctx, "report.Journey")(&err)

	p := message.NewPrinter(f.Locale)

	ids := make([]string, 0, len(sol.Couriers))
	for id := range sol.Couriers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		line, err := formatJourney(sol.Couriers[id])
		if err != nil {
			return "", fmt.Errorf("report: courier %s: %w", id, err)
		}
		fmt.Fprintf(&b, "courier %s: %s\n", id, line)
	}
	fmt.Fprintf(&b, "objective: %s\n", p.Sprintf("%.2f", sol.Objective))

	return b.String(), nil
}

// formatJourney walks one courier's arcs in the order the solver produced
// them (pipeline.tracePath already returns a chronological path). Waiting
// arcs are skipped; every other arc adds its order sequence as "S[...]" when
// it carries orders, then its arrival restaurant unless that is home. Stops
// are not merged: two arcs reaching the same restaurant give two segments.
func formatJourney(arcs []domain.TimedArc) (string, error) {
	if len(arcs) == 0 {
		return "", fmt.Errorf("empty journey")
	}

	segments := []string{"0"}
	for _, a := range arcs {
		if a.IsWaiting() {
			continue
		}
		if len(a.Orders) > 0 {
			segments = append(segments, "S["+strings.Join(a.Orders, ",")+"]")
		}
		if a.R2 != domain.Home {
			segments = append(segments, a.R2)
		}
	}
	segments = append(segments, "0")

	return strings.Join(segments, " -> "), nil
}
