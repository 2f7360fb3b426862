package app

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/workflow"
)

// printSummary writes one row per node in definition order. Nodes that
// never ran are reported as skipped.
func (a *App) printSummary(def *workflow.Definition, res *engine.WorkflowResult) {
	tw := tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tTYPE\tSTATUS\tDURATION\tDETAIL")
	for _, n := range def.Nodes {
		r, ok := res.NodeResults[n]
		switch {
		case !ok:
			fmt.Fprintf(tw, "%s\t%s\tskipped\t-\t\n", n, n.Type)
		case r.Success:
			fmt.Fprintf(tw, "%s\t%s\tok\t%s\t\n", n, n.Type, r.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(tw, "%s\t%s\tfailed\t%s\t%s\n", n, n.Type, r.Duration.Round(time.Millisecond), r.ErrorMessage)
		}
	}
	_ = tw.Flush()

	if res.Success {
		fmt.Fprintf(a.outW, "Workflow succeeded in %s (run %s).\n", res.Duration.Round(time.Millisecond), res.RunID)
	} else {
		fmt.Fprintf(a.outW, "Workflow failed in %s (run %s): %s\n", res.Duration.Round(time.Millisecond), res.RunID, res.ErrorMessage)
	}
}
