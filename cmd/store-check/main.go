// Command store-check inspects a persisted container: it opens the
// environment-selected store, probes every element in warn mode, and
// reports per-element load status plus integrity warnings. The exit
// code is non-zero when any element fails to load, so the command works
// as a health probe for container trees.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"spatialcore/internal/core"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("store-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	prefix := fs.String("prefix", "", "store prefix of the container tree to check")
	quiet := fs.Bool("quiet", false, "suppress per-element output, only set the exit code")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	svc, err := core.DefaultService(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "store-check: open store: %v\n", err)
		return 2
	}
	defer svc.Close()

	report, err := svc.CheckContainer(ctx, *prefix)
	if err != nil {
		fmt.Fprintf(stderr, "store-check: %v\n", err)
		return 2
	}

	if !*quiet {
		printReport(stdout, report)
	}
	if len(report.Failed()) > 0 {
		return 1
	}
	return 0
}

func printReport(w io.Writer, report *core.ReadReport) {
	for _, st := range report.Elements {
		if st.Error != "" {
			fmt.Fprintf(w, "%-7s %s (%s)\n", st.State, st.Path, st.Error)
			continue
		}
		fmt.Fprintf(w, "%-7s %s\n", st.State, st.Path)
	}
	for _, v := range report.Result.Warnings() {
		fmt.Fprintf(w, "warning %s: %s\n", v.Path, v.Message)
	}
	fmt.Fprintf(w, "%d element(s), %d failed\n", len(report.Elements), len(report.Failed()))
}
