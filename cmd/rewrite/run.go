package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
	"github.com/jward/rewrite/internal/store"
)

var (
	flagRecipe   string
	flagDryRun   bool
	flagParallel int
	flagCycles   int
	flagInclude  []string
	flagExclude  []string
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Apply a recipe to a directory",
	Long:  "Parses every supported file under path, applies the recipe, writes changed files back (unless --dry-run) and records the run in the database.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := runRecipe(cmd.Context(), args)
		if report == nil {
			return outputError("run", err)
		}
		result := CLIResult{Command: "run", Results: *report}
		if err != nil {
			// The run was recorded; report it along with the error.
			result.Error = err.Error()
			errorHandled = flagFormat == "json"
		}
		if outErr := outputResult(cmd.OutOrStdout(), result); outErr != nil {
			return outErr
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVarP(&flagRecipe, "recipe", "r", "", "name of the recipe to run (required)")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "record the run without writing any file")
	runCmd.Flags().IntVar(&flagParallel, "parallel", 0, "worker count for parsing and parallel phases (default: number of CPUs)")
	runCmd.Flags().IntVar(&flagCycles, "cycles", 1, "maximum passes over the recipe while files keep changing")
	runCmd.Flags().StringSliceVar(&flagInclude, "include", nil, "only files matching these globs")
	runCmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "skip files matching these globs")
	_ = runCmd.MarkFlagRequired("recipe")
}

// runOptions are the inputs of one rewrite run.
type runOptions struct {
	recipe   rewrite.Recipe
	dbPath   string
	dryRun   bool
	parallel int
	cycles   int
	filter   filter
	logger   *logrus.Logger
}

func runRecipe(ctx context.Context, args []string) (*CLIRunReport, error) {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return nil, err
	}
	repoRoot := findRepoRoot(targetDir)
	logger := newLogger()

	catalog, err := loadCatalog(repoRoot, logger)
	if err != nil {
		return nil, err
	}
	lookup := rewrite.Lookup
	if catalog != nil {
		lookup = catalog.Lookup
	}
	recipe, ok := lookup(flagRecipe)
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q", flagRecipe)
	}
	f, err := newFilter(flagInclude, flagExclude)
	if err != nil {
		return nil, err
	}

	return apply(ctx, targetDir, runOptions{
		recipe:   recipe,
		dbPath:   resolveDBPath(repoRoot),
		dryRun:   flagDryRun,
		parallel: flagParallel,
		cycles:   flagCycles,
		filter:   f,
		logger:   logger,
	})
}

// apply runs the three steps of a rewrite:
//
//  1. Discover and parse the files under root.
//  2. Run the recipe, buffering its records in a BatchedStore.
//  3. Commit the batch and, unless dry-running, write the results back.
//
// When every file failed the report is returned together with
// rewrite.ErrNoFileSucceeded.
func apply(ctx context.Context, root string, opts runOptions) (*CLIRunReport, error) {
	start := time.Now()
	log := opts.logger

	paths, err := discover(root, opts.filter)
	if err != nil {
		return nil, err
	}
	files, err := parseFiles(ctx, root, paths, opts.parallel, log)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	log.WithFields(logrus.Fields{"files": len(files), "elapsed": time.Since(start).Round(time.Millisecond)}).Debug("parsed")

	if err := os.MkdirAll(filepath.Dir(opts.dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(opts.dbPath), err)
	}
	s, err := store.NewStore(opts.dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return nil, err
	}

	batch := store.NewBatchedStore(s)
	engineOpts := []rewrite.Option{rewrite.WithLogger(log), rewrite.WithSink(batch), rewrite.WithCycles(opts.cycles)}
	if opts.parallel > 0 {
		engineOpts = append(engineOpts, rewrite.WithParallelism(opts.parallel))
	}
	started := time.Now()
	res, runErr := rewrite.New(engineOpts...).Run(ctx, opts.recipe, files)
	if runErr != nil && !errors.Is(runErr, rewrite.ErrNoFileSucceeded) {
		return nil, runErr
	}

	if err := batch.InsertRun(&store.Run{
		ID:         res.ID,
		Recipe:     opts.recipe.Name(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Cycles:     res.Cycles,
		DryRun:     opts.dryRun,
	}); err != nil {
		return nil, err
	}
	if err := batch.RecordResults(res, render); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	if !opts.dryRun {
		if err := writeResults(root, res); err != nil {
			return nil, err
		}
	}

	report := newRunReport(batch, res, len(files))
	log.WithFields(logrus.Fields{
		"run":     res.ID,
		"changed": len(report.Changed),
		"failed":  len(report.Failed),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("run recorded")
	return report, runErr
}

func render(f rewrite.SourceFile) string { return cst.Print(f) }

// writeResults writes changed and generated files under root and removes
// deleted ones. Files a recipe failed on are left alone.
func writeResults(root string, res *rewrite.RunResult) error {
	for _, r := range res.Changed() {
		if r.Err != nil {
			continue
		}
		if r.After == nil {
			if err := os.Remove(abs(root, r.Before.SourcePath())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("deleting %s: %w", r.Before.SourcePath(), err)
			}
			continue
		}
		if err := writeFile(root, r); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(root string, r rewrite.Result) error {
	path := abs(root, r.After.SourcePath())
	mode := os.FileMode(0o644)
	if r.Before != nil {
		if info, err := os.Stat(abs(root, r.Before.SourcePath())); err == nil {
			mode = info.Mode().Perm()
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(render(r.After)), mode); err != nil {
		return fmt.Errorf("writing %s: %w", r.After.SourcePath(), err)
	}
	if r.Before != nil && r.Before.SourcePath() != r.After.SourcePath() {
		if err := os.Remove(abs(root, r.Before.SourcePath())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing moved %s: %w", r.Before.SourcePath(), err)
		}
	}
	return nil
}

func abs(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// newRunReport summarizes a committed batch.
func newRunReport(batch *store.BatchedStore, res *rewrite.RunResult, files int) *CLIRunReport {
	report := &CLIRunReport{
		RunID:  batch.Run.ID,
		Recipe: batch.Run.Recipe,
		DryRun: batch.Run.DryRun,
		Cycles: batch.Run.Cycles,
		Files:  files,
		Rows:   map[string]int{},
	}
	for _, sr := range batch.SourceResults {
		fr := CLIFileResult{Path: sr.Path, Status: string(sr.Status), Recipes: sr.Recipes, Error: sr.Error}
		switch sr.Status {
		case store.StatusFailed:
			report.Failed = append(report.Failed, fr)
		case store.StatusUnchanged:
		default:
			report.Changed = append(report.Changed, fr)
		}
	}
	for _, re := range res.RecipeErrors {
		report.Errors = append(report.Errors, re.Error())
	}
	for _, row := range batch.Rows {
		report.Rows[row.TableName]++
	}
	return report
}
