package commands

import (
	"fmt"
	"io"

	"github.com/wonny/movies/internal/loader"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// ═══════════════════════════════════════════════════════════

const (
	rule     = "═══════════════════════════════════════════════════════════"
	thinRule = "───────────────────────────────────────────────────────────"
)

// printLoadResult prints a dataset import summary
func printLoadResult(w io.Writer, r *loader.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  Dataset import")
	fmt.Fprintln(w, thinRule)
	if r.Source != "" {
		fmt.Fprintf(w, "  Source    : %s\n", r.Source)
	}
	fmt.Fprintf(w, "  Movies    : %d (winners: %d)\n", r.Movies, r.Winners)
	fmt.Fprintf(w, "  Producers : %d\n", r.Producers)
	fmt.Fprintf(w, "  Studios   : %d\n", r.Studios)
	fmt.Fprintf(w, "  Skipped   : %d\n", r.Skipped)
	fmt.Fprintf(w, "  Duration  : %v\n", r.Duration)
	for _, msg := range r.Errors {
		fmt.Fprintf(w, "  ⚠️  %s\n", msg)
	}
	fmt.Fprintln(w, rule)
}
