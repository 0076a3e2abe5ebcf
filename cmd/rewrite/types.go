package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIRunReport summarizes one recorded run.
type CLIRunReport struct {
	RunID   string          `json:"run_id"`
	Recipe  string          `json:"recipe"`
	DryRun  bool            `json:"dry_run"`
	Cycles  int             `json:"cycles"`
	Files   int             `json:"files"`
	Changed []CLIFileResult `json:"changed"`
	Failed  []CLIFileResult `json:"failed,omitempty"`
	// Errors are recipe failures not tied to one file.
	Errors []string       `json:"errors,omitempty"`
	Rows   map[string]int `json:"rows,omitempty"`
}

// CLIFileResult is what a run did to one file.
type CLIFileResult struct {
	Path    string   `json:"path"`
	Status  string   `json:"status"`
	Recipes []string `json:"recipes,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// CLIRecipe is a JSON-friendly recipe description.
type CLIRecipe struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Description string      `json:"description,omitempty"`
	Declarative bool        `json:"declarative"`
	Options     []CLIOption `json:"options,omitempty"`
}

// CLIOption is a JSON-friendly recipe option.
type CLIOption struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Example     string `json:"example,omitempty"`
	Required    bool   `json:"required"`
}

// CLIRun is a JSON-friendly run summary.
type CLIRun struct {
	ID         string `json:"id"`
	Recipe     string `json:"recipe"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Cycles     int    `json:"cycles"`
	DryRun     bool   `json:"dry_run"`
	Files      int    `json:"files"`
	Changed    int    `json:"changed"`
	Failed     int    `json:"failed"`
}

// CLIRunDetail is a run with its per-file results and data-table rows.
type CLIRunDetail struct {
	Run   CLIRun          `json:"run"`
	Files []CLIFileResult `json:"files"`
	Rows  []CLIRow        `json:"rows,omitempty"`
}

// CLIRow is one recorded data-table row. Row holds the row's JSON.
type CLIRow struct {
	Table string `json:"table"`
	Row   any    `json:"row"`
}
