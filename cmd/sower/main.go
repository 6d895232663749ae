package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/sower/internal/drift"
	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/project"
	"github.com/kokistudios/sower/internal/render"
	"github.com/kokistudios/sower/internal/store"
	"github.com/kokistudios/sower/internal/sync"
	"github.com/kokistudios/sower/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "sower",
		Short: "sower — seed canonical engineering artifacts across projects",
		Long:  "A local CLI tool that propagates canonical rule documents, prompt templates, and learnings into projects, and harvests local improvements back.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	initC := initCmd()
	initC.GroupID = "core"
	seedC := seedCmd()
	seedC.GroupID = "core"
	projectC := projectCmd()
	projectC.GroupID = "core"
	statusC := statusCmd()
	statusC.GroupID = "core"
	learningsC := learningsCmd()
	learningsC.GroupID = "core"
	doctorC := doctorCmd()
	doctorC.GroupID = "core"

	pushC := pushCmd()
	pushC.GroupID = "sync"
	harvestC := harvestCmd()
	harvestC.GroupID = "sync"

	configC := configCmd()
	configC.GroupID = "config"

	rootCmd.AddCommand(initC)
	rootCmd.AddCommand(seedC)
	rootCmd.AddCommand(projectC)
	rootCmd.AddCommand(statusC)
	rootCmd.AddCommand(learningsC)
	rootCmd.AddCommand(pushC)
	rootCmd.AddCommand(harvestC)
	rootCmd.AddCommand(doctorC)
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(completionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize SOWER_HOME directory structure",
		Long:    "Create the SOWER_HOME directory (~/.sower by default) with templates/, learnings/, projects/, and config.yaml. Run this once before using any other sower commands.",
		Example: "  sower init\n  sower init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.LogoWithTagline("seed canonical artifacts across projects")
			ui.Success("sower initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if SOWER_HOME already exists")
	return cmd
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("sower not initialized — run 'sower init' first: %w", err)
	}
	return s, nil
}

func seedCmd() *cobra.Command {
	var (
		id          string
		description string
		domains     []string
		dryRun      bool
		force       bool
		register    bool
	)
	cmd := &cobra.Command{
		Use:     "seed <path>",
		Short:   "Seed a project with the canonical artifact set",
		Long:    "Write a fresh manifest into the project, render every canonical artifact for its domains, and register it for batch syncs.",
		Example: "  sower seed . --id atlas --description \"the mapping service\" --domains go,web\n  sower seed /path/to/project --id atlas --domains go --dry-run",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			if len(domains) == 0 {
				return fmt.Errorf("--domains is required (comma-separated, e.g. go,web)")
			}

			report, err := sync.Seed(s, args[0], id, description, domains, sync.Options{
				DryRun: dryRun,
				Force:  force,
			})
			if err != nil {
				return err
			}

			if dryRun {
				ui.Info("Dry run — nothing written")
				for _, p := range report.Added {
					ui.Detail("would write:", p)
				}
				return nil
			}

			ui.Success(fmt.Sprintf("Seeded %s", ui.Bold(id)))
			for _, p := range report.Written() {
				ui.Detail("wrote:", p)
			}

			if register {
				if _, err := project.Register(s, args[0]); err != nil {
					ui.Warning(fmt.Sprintf("seeded, but registration failed: %v", err))
				} else {
					ui.Detail("registered:", id)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Project identifier (lowercase slug)")
	cmd.Flags().StringVar(&description, "description", "", "One-line project description for template placeholders")
	cmd.Flags().StringSliceVar(&domains, "domains", nil, "Domains the project belongs to")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be written without writing")
	cmd.Flags().BoolVar(&force, "force", false, "Reseed even if a manifest already exists")
	cmd.Flags().BoolVar(&register, "register", true, "Register the project for --all batch syncs")
	return cmd
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage registered projects",
		Long:  "Register, list, and remove seeded projects. Registered projects are the targets of 'sower push --all' and 'sower harvest --all'.",
	}
	cmd.AddCommand(projectAddCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectRemoveCmd())
	return cmd
}

func projectAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <path>",
		Short:   "Register an already-seeded project",
		Example: "  sower project add /path/to/my/project\n  sower project add .",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			p, err := project.Register(s, args[0])
			if err != nil {
				return err
			}
			ui.Success("Project registered")
			ui.KeyValue("ID:     ", p.ID)
			ui.KeyValue("Path:   ", p.Path)
			ui.KeyValue("Domains:", strings.Join(p.Domains, ", "))
			return nil
		},
	}
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			projects, err := project.List(s)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				ui.EmptyState("No projects registered. Use 'sower seed <path>' or 'sower project add <path>'.")
				return nil
			}
			var rows [][]string
			for _, p := range projects {
				rows = append(rows, []string{p.ID, strings.Join(p.Domains, ","), p.Path})
			}
			ui.Table([]string{"ID", "DOMAINS", "PATH"}, rows)
			return nil
		},
	}
}

func projectRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <project-id>",
		Short: "Deregister a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			proceed, err := ui.Confirm(fmt.Sprintf("Remove project %s? (its files stay untouched)", args[0]))
			if err != nil {
				return err
			}
			if !proceed {
				ui.Info("Cancelled.")
				return nil
			}
			if err := project.Remove(s, args[0]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Removed project %s", args[0]))
			return nil
		},
	}
}

// syncFlags are the flags shared by push and harvest.
type syncFlags struct {
	all          bool
	dryRun       bool
	force        bool
	skipModified bool
	notesOnly    bool
	yes          bool
	jsonOut      bool
}

func (f *syncFlags) register(cmd *cobra.Command, push bool) {
	cmd.Flags().BoolVar(&f.all, "all", false, "Run against every registered project")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report everything, write nothing")
	cmd.Flags().BoolVar(&f.notesOnly, "notes-only", false, "Only consider the learnings document")
	cmd.Flags().BoolVar(&f.yes, "yes", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Emit the run report as JSON on stdout")
	if push {
		cmd.Flags().BoolVar(&f.force, "force", false, "Overwrite locally modified artifacts")
		cmd.Flags().BoolVar(&f.skipModified, "skip-modified", false, "Silently skip locally modified artifacts")
	}
}

func (f *syncFlags) options() sync.Options {
	opts := sync.Options{
		DryRun:       f.dryRun,
		Force:        f.force,
		SkipModified: f.skipModified,
		NotesOnly:    f.notesOnly,
	}
	if !f.yes && !f.jsonOut {
		opts.Confirm = func(summary string) bool {
			ok, err := ui.Confirm(fmt.Sprintf("Apply? (%s)", summary))
			return err == nil && ok
		}
	}
	return opts
}

// interactive reports whether a run may prompt; a spinner would fight the
// confirmation prompt for the terminal.
func (f *syncFlags) interactive() bool {
	return !f.yes && !f.jsonOut
}

// targets resolves the project roots a sync command operates on.
func (f *syncFlags) targets(s *store.Store, args []string) ([]string, error) {
	if f.all {
		projects, err := project.List(s)
		if err != nil {
			return nil, err
		}
		if len(projects) == 0 {
			return nil, fmt.Errorf("no registered projects (seed one first)")
		}
		var roots []string
		for _, p := range projects {
			roots = append(roots, p.Path)
		}
		return roots, nil
	}
	if len(args) == 1 {
		return []string{args[0]}, nil
	}
	return []string{"."}, nil
}

func pushCmd() *cobra.Command {
	var flags syncFlags
	cmd := &cobra.Command{
		Use:     "push [path]",
		Short:   "Propagate canonical artifacts into a project",
		Long:    "Re-render every canonical artifact for the project and write the ones that changed. Locally modified artifacts are never overwritten without --force; they surface as conflicts with a diff and a merge recommendation.",
		Example: "  sower push\n  sower push /path/to/project --dry-run\n  sower push --all --skip-modified",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			roots, err := flags.targets(s, args)
			if err != nil {
				return err
			}

			var failed bool
			for _, root := range roots {
				var sp *ui.Spinner
				if flags.all && !flags.interactive() {
					sp = ui.NewSpinner(fmt.Sprintf("pushing %s", root))
				}
				report, err := sync.Push(s, root, flags.options())
				if sp != nil {
					sp.Stop()
				}
				if err != nil {
					ui.Error(fmt.Sprintf("%s: %v", root, err))
					failed = true
					continue
				}
				printReport(report, flags.jsonOut)
			}
			if failed {
				return fmt.Errorf("push failed for one or more projects")
			}
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}

func harvestCmd() *cobra.Command {
	var flags syncFlags
	cmd := &cobra.Command{
		Use:     "harvest [path]",
		Short:   "Gather local improvements back into the canonical store",
		Long:    "Extract new note entries from the project's learnings document into the canonical collections, and report how locally edited templated artifacts diverge so improvements can be folded back by hand. Project files are never modified.",
		Example: "  sower harvest\n  sower harvest --all\n  sower harvest /path/to/project --dry-run",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			roots, err := flags.targets(s, args)
			if err != nil {
				return err
			}

			var failed bool
			for _, root := range roots {
				var sp *ui.Spinner
				if flags.all && !flags.interactive() {
					sp = ui.NewSpinner(fmt.Sprintf("harvesting %s", root))
				}
				report, err := sync.Harvest(s, root, flags.options())
				if sp != nil {
					sp.Stop()
				}
				if err != nil {
					ui.Error(fmt.Sprintf("%s: %v", root, err))
					failed = true
					continue
				}
				printReport(report, flags.jsonOut)
			}
			if failed {
				return fmt.Errorf("harvest failed for one or more projects")
			}
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func printReport(r *sync.Report, jsonOut bool) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r)
		return
	}

	ui.SectionHeader(fmt.Sprintf("%s %s", r.ProjectID, r.Direction))
	if r.DryRun {
		ui.Info("Dry run — nothing written")
	}
	if !r.Confirmed {
		ui.Warning("Declined — nothing applied")
	}

	for _, p := range r.Written() {
		if r.DryRun {
			ui.Detail("would write:", p)
		} else {
			ui.Success(fmt.Sprintf("wrote %s", p))
		}
	}
	for _, p := range r.Skipped {
		ui.Detail("skipped:", p)
	}
	for _, p := range r.Deleted {
		ui.Warning(fmt.Sprintf("%s was deleted locally", p))
	}
	for _, p := range r.Added {
		ui.Detail("untracked:", p)
	}

	grouped := r.NewNotes()
	if len(grouped) > 0 {
		ui.SectionHeader("new notes")
		for d, entries := range grouped {
			for _, e := range entries {
				ui.KeyValue(d, e)
			}
		}
	}

	for _, d := range r.Diffs {
		if d.Diff == "" {
			continue
		}
		switch d.Outcome {
		case sync.OutcomeConflict:
			ui.Warning(fmt.Sprintf("conflict: %s (%s)", d.Path, d.Recommendation))
		case sync.OutcomeReported:
			ui.Info(fmt.Sprintf("local edit: %s (%s)", d.Path, d.Recommendation))
		default:
			continue
		}
		ui.Diff(d.Diff)
	}

	if len(r.Conflicts()) > 0 {
		ui.Warning(fmt.Sprintf("%d conflict(s); resolve locally or re-run with --force / --skip-modified", len(r.Conflicts())))
	}
}

func learningsCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:     "learnings [domain]",
		Short:   "Show a canonical learnings collection",
		Example: "  sower learnings\n  sower learnings go\n  sower learnings go --raw",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			d := "general"
			if len(args) == 1 {
				d = args[0]
			}
			data, err := os.ReadFile(s.LearningsPath(d))
			if err != nil {
				return fmt.Errorf("no learnings collection for %q yet", d)
			}
			if raw {
				fmt.Print(string(data))
				return nil
			}
			ui.RenderMarkdown(string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the file verbatim instead of rendering it")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status [path]",
		Short:   "Show a project's manifest and how its artifacts drifted",
		Example: "  sower status\n  sower status /path/to/project",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			m, err := manifest.Load(root)
			if err != nil {
				return err
			}

			ui.SectionHeader(m.ProjectID)
			ui.KeyValue("Canonical:", m.CanonicalVersion)
			ui.KeyValue("Domains:  ", strings.Join(m.Domains, ", "))
			ui.KeyValue("Seeded:   ", m.SeededAt.Format("2006-01-02"))
			if m.LastPush != nil {
				ui.KeyValue("Last push:", m.LastPush.Format("2006-01-02 15:04"))
			}
			if m.LastHarvest != nil {
				ui.KeyValue("Harvested:", m.LastHarvest.Format("2006-01-02 15:04"))
			}

			records, unreadable := drift.Detect(root, m, []string{
				render.InstructionsRelPath,
				render.PromptsRelDir,
				render.LearningsRelPath,
			})

			var rows [][]string
			for _, r := range records {
				rows = append(rows, []string{r.Path, stateLabel(r.Kind)})
			}
			for _, s := range unreadable {
				rows = append(rows, []string{s.Path, ui.Red("unreadable")})
			}
			if len(rows) == 0 {
				ui.EmptyState("No tracked artifacts.")
				return nil
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
			ui.Table([]string{"PATH", "STATE"}, rows)
			return nil
		},
	}
}

func stateLabel(k drift.Kind) string {
	switch k {
	case drift.Unmodified:
		return ui.Dim(string(k))
	case drift.Modified:
		return ui.Yellow(string(k))
	case drift.Deleted:
		return ui.Red(string(k))
	case drift.Added:
		return ui.Green(string(k))
	}
	return string(k)
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of the sower store and registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()

			s, err := loadStore()
			if err != nil {
				return err
			}

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			issues := store.CheckHealth(home)
			projectIssues, err := project.CheckAllHealth(s)
			if err != nil {
				return err
			}
			issues = append(issues, projectIssues...)

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				os.Exit(0)
			}

			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Repair missing directories and recreate default config")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit sower configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Set a configuration value",
		Example: "  sower config set canonical.version 0.2.0\n  sower config set sync.dedup_threshold 0.9",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  sower completion bash > ~/.bashrc.d/sower\n  sower completion zsh > ~/.zfunc/_sower\n  sower completion fish > ~/.config/fish/completions/sower.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
