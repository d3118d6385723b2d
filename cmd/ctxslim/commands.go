package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ctxslim/ctxslim/internal/archive"
	"github.com/ctxslim/ctxslim/internal/config"
	"github.com/ctxslim/ctxslim/internal/engine"
	"github.com/ctxslim/ctxslim/internal/plan"
	"github.com/ctxslim/ctxslim/internal/rules"
)

// newEngine builds an engine from environment configuration plus an optional
// rules file. The CLI runs without an API key, so config.Validate is not
// called here.
func newEngine(rulesFile string, verbose bool) (*engine.Engine, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if rulesFile == "" {
		rulesFile = cfg.RulesFile
	}

	ruleSet := rules.DefaultRules()
	if rulesFile != "" {
		rs, err := rules.LoadFile(rulesFile)
		if err != nil {
			return nil, fmt.Errorf("loading rules: %w", err)
		}
		ruleSet = rs
	}

	return engine.New(cfg.EngineConfig(), ruleSet, log), nil
}

func newAnalyzeCmd() *cobra.Command {
	var rulesFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a context file and report issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(rulesFile, verbose)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			a, err := eng.Analyze(string(content))
			if err != nil {
				return err
			}

			fmt.Printf("%s: score %d/100, %d sections, %d tokens\n",
				args[0], a.Score, a.Summary.SectionsCount, a.Summary.TotalTokens)
			if len(a.Issues) == 0 {
				fmt.Println("no issues found")
				return nil
			}
			fmt.Printf("%d issues, estimated savings %d tokens (%d%%), recommended strategy: %s\n",
				a.Summary.IssuesCount, a.Summary.EstimatedSavings, a.Summary.SavingsPercent, a.Strategy)
			for _, iss := range a.Issues {
				fmt.Printf("  [%s] %s: %s (saves ~%d tokens)\n",
					iss.Severity, iss.Section, iss.Description, iss.EstimatedSavings)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "path to a YAML rules file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print quick size and score statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(rulesFile, false)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			st, err := eng.Stats(string(content))
			if err != nil {
				return err
			}
			fmt.Printf("lines:    %d\n", st.Lines)
			fmt.Printf("tokens:   %d\n", st.Tokens)
			fmt.Printf("sections: %d\n", st.Sections)
			fmt.Printf("score:    %d/100\n", st.Score)
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "path to a YAML rules file")
	return cmd
}

func newOptimizeCmd() *cobra.Command {
	var rulesFile, strategyFlag string
	var dryRun, verbose bool

	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Optimize a context file in place, archiving removed sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(rulesFile, verbose)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			a, err := eng.Analyze(string(content))
			if err != nil {
				return err
			}

			strategy := a.Strategy
			if strategyFlag != "" {
				strategy = plan.Strategy(strategyFlag)
				if !strategy.Valid() {
					return fmt.Errorf("unknown strategy %q", strategyFlag)
				}
			}

			outcome, err := eng.Optimize(a, strategy, args[0])
			if err != nil {
				return err
			}
			if len(outcome.Plan.Actions) == 0 {
				fmt.Println("nothing to optimize")
				return nil
			}

			for _, act := range outcome.Result.Applied {
				fmt.Printf("  %s %q (saved %d tokens)\n", act.Kind, act.Section, act.TokensBefore-act.TokensAfter)
			}
			fmt.Printf("%s: removed %d lines, saved %d tokens (strategy: %s)\n",
				args[0], outcome.Result.LinesRemoved, outcome.Result.TokensSaved, strategy)

			if dryRun {
				fmt.Println("dry run, no files written")
				return nil
			}
			if err := writeArchives(outcome.Archives); err != nil {
				return err
			}
			return os.WriteFile(args[0], []byte(outcome.Result.Content), 0o644)
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "path to a YAML rules file")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "conservative, moderate, or aggressive (default: recommended)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the plan without writing anything")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// writeArchives persists archive records as markdown files next to the
// source document. Existing files are left alone: archives are write-once.
func writeArchives(archives []archive.Content) error {
	for _, c := range archives {
		if err := os.MkdirAll(filepath.Dir(c.ArchiveFile), 0o755); err != nil {
			return err
		}
		if _, err := os.Stat(c.ArchiveFile); err == nil {
			continue
		}
		if err := os.WriteFile(c.ArchiveFile, []byte(c.ArchivedContent), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file> <section>",
		Short: "Restore an archived section back into a context file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, section := args[0], args[1]

			archived, err := os.ReadFile(archive.File(file, section))
			if err != nil {
				return fmt.Errorf("reading archive: %w", err)
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			c := archive.Content{
				ID:              archive.ID(file, section),
				SourceFile:      file,
				ArchiveFile:     archive.File(file, section),
				SectionName:     section,
				ArchivedContent: string(archived),
			}
			restored, ok := archive.Restore(c, string(content))
			if !ok {
				return fmt.Errorf("no archive reference for %q in %s", section, file)
			}
			if err := os.WriteFile(file, []byte(restored), 0o644); err != nil {
				return err
			}
			fmt.Printf("restored %q into %s\n", section, file)
			return nil
		},
	}
	return cmd
}
