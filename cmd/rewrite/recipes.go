package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/internal/config"
	"github.com/jward/rewrite/internal/store"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List available recipes",
	Long:  "Lists the built-in recipes and the declarative recipes of the config file, with their options. Required options are marked with * in text output.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return outputError("recipes", fmt.Errorf("getting cwd: %w", err))
		}
		catalog, err := loadCatalog(findRepoRoot(cwd), newLogger())
		if err != nil {
			return outputError("recipes", err)
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "recipes", Results: listRecipes(catalog)})
	},
}

// listRecipes describes the registered recipes followed by the catalog's.
func listRecipes(catalog *config.Catalog) []CLIRecipe {
	var out []CLIRecipe
	for _, name := range rewrite.Registered() {
		r, _ := rewrite.Lookup(name)
		out = append(out, describeRecipe(r, false))
	}
	if catalog != nil {
		for _, r := range catalog.Recipes() {
			out = append(out, describeRecipe(r, true))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func describeRecipe(r rewrite.Recipe, declarative bool) CLIRecipe {
	cr := CLIRecipe{
		Name:        r.Name(),
		DisplayName: r.DisplayName(),
		Description: r.Description(),
		Declarative: declarative,
	}
	for _, o := range rewrite.Options(r) {
		cr.Options = append(cr.Options, CLIOption{
			Name:        o.Field,
			DisplayName: o.DisplayName,
			Description: o.Description,
			Example:     o.Example,
			Required:    o.Required,
		})
	}
	return cr
}

var flagLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("runs", err)
		}
		defer s.Close()

		if len(args) == 1 {
			detail, err := runDetail(s, args[0])
			if err != nil {
				return outputError("runs", err)
			}
			return outputResult(cmd.OutOrStdout(), CLIResult{Command: "runs", Results: *detail})
		}
		runs, err := listRuns(s, flagLimit)
		if err != nil {
			return outputError("runs", err)
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "runs", Results: runs})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("runs delete", err)
		}
		defer s.Close()
		if err := s.DeleteRun(args[0]); err != nil {
			return outputError("runs delete", err)
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "runs delete", Results: "deleted run " + args[0]})
	},
}

func init() {
	runsCmd.Flags().IntVar(&flagLimit, "limit", 20, "number of runs to list (0 for all)")
	runsCmd.AddCommand(runsDeleteCmd)
}

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'rewrite run' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

func listRuns(s *store.Store, limit int) ([]CLIRun, error) {
	summaries, err := s.Runs(limit)
	if err != nil {
		return nil, err
	}
	out := make([]CLIRun, 0, len(summaries))
	for _, r := range summaries {
		cr := toCLIRun(&r.Run)
		cr.Files, cr.Changed, cr.Failed = r.Files, r.Changed, r.Failed
		out = append(out, cr)
	}
	return out, nil
}

func runDetail(s *store.Store, id string) (*CLIRunDetail, error) {
	run, err := s.RunByID(id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	results, err := s.SourceResults(id)
	if err != nil {
		return nil, err
	}
	rows, err := s.DataTableRows(id, "")
	if err != nil {
		return nil, err
	}

	d := &CLIRunDetail{Run: toCLIRun(run)}
	for _, sr := range results {
		d.Run.Files++
		switch sr.Status {
		case store.StatusFailed:
			d.Run.Failed++
		case store.StatusUnchanged:
		default:
			d.Run.Changed++
		}
		d.Files = append(d.Files, CLIFileResult{Path: sr.Path, Status: string(sr.Status), Recipes: sr.Recipes, Error: sr.Error})
	}
	for _, row := range rows {
		var v any
		if err := json.Unmarshal([]byte(row.RowJSON), &v); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", row.TableName, row.ID, err)
		}
		d.Rows = append(d.Rows, CLIRow{Table: row.TableName, Row: v})
	}
	return d, nil
}

func toCLIRun(r *store.Run) CLIRun {
	return CLIRun{
		ID:         r.ID,
		Recipe:     r.Recipe,
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Cycles:     r.Cycles,
		DryRun:     r.DryRun,
	}
}
