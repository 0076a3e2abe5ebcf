package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// outputResult writes result to w in the --format format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetBorder(false)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetHeaderLine(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return t
}

// formatRunReportText prints the files a run touched followed by a summary
// line.
func formatRunReportText(w io.Writer, r CLIRunReport) {
	if len(r.Changed)+len(r.Failed) > 0 {
		t := newTable(w, "STATUS", "PATH", "RECIPES")
		for _, f := range append(append([]CLIFileResult{}, r.Changed...), r.Failed...) {
			detail := strings.Join(f.Recipes, ", ")
			if f.Error != "" {
				detail = f.Error
			}
			t.Append([]string{f.Status, f.Path, detail})
		}
		t.Render()
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	tables := make([]string, 0, len(r.Rows))
	for name := range r.Rows {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		fmt.Fprintf(w, "%s: %d row(s)\n", name, r.Rows[name])
	}

	verb := "changed"
	if r.DryRun {
		verb = "would change"
	}
	fmt.Fprintf(w, "Run %s: %s %s %d of %d file(s), %d failed, %d cycle(s)\n",
		r.RunID, r.Recipe, verb, len(r.Changed), r.Files, len(r.Failed), r.Cycles)
}

// formatRecipesText prints recipes as aligned columns.
func formatRecipesText(w io.Writer, recipes []CLIRecipe) {
	t := newTable(w, "NAME", "DISPLAY NAME", "OPTIONS")
	for _, r := range recipes {
		opts := make([]string, 0, len(r.Options))
		for _, o := range r.Options {
			name := o.Name
			if o.Required {
				name += "*"
			}
			opts = append(opts, name)
		}
		t.Append([]string{r.Name, r.DisplayName, strings.Join(opts, ", ")})
	}
	t.Render()
}

// formatRunsText prints run summaries as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	t := newTable(w, "ID", "RECIPE", "STARTED", "FILES", "CHANGED", "FAILED", "DRY RUN")
	for _, r := range runs {
		t.Append([]string{r.ID, r.Recipe, r.StartedAt,
			fmt.Sprint(r.Files), fmt.Sprint(r.Changed), fmt.Sprint(r.Failed), fmt.Sprint(r.DryRun)})
	}
	t.Render()
}

// formatRunDetailText prints a run and the status of each of its files.
func formatRunDetailText(w io.Writer, d CLIRunDetail) {
	fmt.Fprintf(w, "Run:     %s\n", d.Run.ID)
	fmt.Fprintf(w, "Recipe:  %s\n", d.Run.Recipe)
	fmt.Fprintf(w, "Started: %s\n", d.Run.StartedAt)
	fmt.Fprintf(w, "Cycles:  %d\n", d.Run.Cycles)
	fmt.Fprintln(w)
	t := newTable(w, "STATUS", "PATH", "RECIPES")
	for _, f := range d.Files {
		detail := strings.Join(f.Recipes, ", ")
		if f.Error != "" {
			detail = f.Error
		}
		t.Append([]string{f.Status, f.Path, detail})
	}
	t.Render()
	if len(d.Rows) > 0 {
		fmt.Fprintln(w)
		for _, r := range d.Rows {
			data, _ := json.Marshal(r.Row)
			fmt.Fprintf(w, "%s %s\n", r.Table, data)
		}
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIRunReport:
		formatRunReportText(w, v)
	case []CLIRecipe:
		formatRecipesText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case CLIRunDetail:
		formatRunDetailText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	if result.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Error)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
