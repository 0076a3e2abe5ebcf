package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/rewrite/internal/config"
	"github.com/jward/rewrite/internal/runtime"

	_ "github.com/jward/rewrite/gradle"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "rewrite",
	Short:         "Apply automated source rewrites",
	Long:          "Rewrite parses source files with tree-sitter into lossless trees, applies recipes to them, and records every run in a SQLite database.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .rewrite/runs.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "declarative recipe file (default: rewrite.yml in the repo root, when present)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log engine progress to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recipesCmd)
	rootCmd.AddCommand(runsCmd)
}

// newLogger returns the logger shared by the engine and the script runtime.
func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	if flagVerbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// loadCatalog loads the --config file, or rewrite.yml from repoRoot when it
// exists. Script preconditions resolve relative to the config file. A nil
// catalog with no error means there is nothing to load.
func loadCatalog(repoRoot string, logger *logrus.Logger) (*config.Catalog, error) {
	path := flagConfig
	if path == "" {
		path = filepath.Join(repoRoot, "rewrite.yml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
	}
	rt := runtime.NewRuntime(filepath.Dir(path), runtime.WithLogger(logrus.NewEntry(logger)))
	return config.NewLoader(rt).LoadFile(path)
}

// resolveTargetDir returns the absolute path of the directory to rewrite.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".rewrite", "runs.db")
}
