// Package main provides the CreditFlow CLI: validate, convert and dry-run
// workflow documents from the command line.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flowgraph/creditflow/internal/app/store"
	"github.com/flowgraph/creditflow/internal/app/testrunner"
	"github.com/flowgraph/creditflow/internal/core/workflow"
	"github.com/flowgraph/creditflow/internal/infrastructure/config"
	"github.com/flowgraph/creditflow/internal/infrastructure/logging"
	"github.com/flowgraph/creditflow/pkg/serialization"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitError   = 2
)

var (
	// errInvalid marks a document that loaded but is not a runnable workflow.
	// The report has already been written to stdout.
	errInvalid = errors.New("workflow is invalid")
	// errUsage means usage has been printed and nothing else needs saying.
	errUsage = errors.New("usage")
)

func main() {
	if code := run(os.Args[1:], os.Stdout, os.Stderr); code != exitOK {
		os.Exit(code)
	}
}

// run executes the CLI with args and maps the outcome to an exit code.
func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{}
	defer c.sync()

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalid):
		return exitInvalid
	case errors.Is(err, errUsage):
		return exitError
	}

	prefix := "creditflow"
	if cmd != nil && cmd != root {
		prefix += " " + cmd.Name()
	}
	_, _ = fmt.Fprintf(stderr, "%s: %v\n", prefix, err)
	return exitError
}

func versionLine() string {
	return fmt.Sprintf("CreditFlow %s (commit: %s, built: %s)", Version, Commit, BuildTime)
}

// cli carries the state the workflow commands share once prepare has run.
type cli struct {
	cfg    *config.Config
	logger *zap.Logger
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "creditflow",
		Short:         "CreditFlow - build and dry-run credit decision workflows",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
			return errUsage
		},
	}
	root.SetVersionTemplate(versionLine() + "\n")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionLine())
			},
		},
		&cobra.Command{
			Use:   "palette",
			Short: "List the node types",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				printPalette(cmd.OutOrStdout())
			},
		},
		c.validateCmd(),
		c.convertCmd(),
		c.testCmd(),
	)
	return root
}

// prepare loads configuration and builds a logger that writes to stderr, so
// stdout carries command output only.
func (c *cli) prepare(*cobra.Command, []string) error {
	cfg, err := config.NewLoader().WithConfigPath(os.Getenv("CREDITFLOW_CONFIG")).Load()
	if err != nil {
		return err
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		logger = zap.NewNop()
	}
	c.cfg, c.logger = cfg, logger
	return nil
}

func (c *cli) sync() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// load reads path into a fresh store.
func (c *cli) load(path string, format serialization.Format) (*store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	st := store.New(store.Config{
		HistoryLimit: c.cfg.History.Limit,
		Format:       format,
		Logger:       c.logger,
	})
	if err := st.ImportWorkflow(string(data)); err != nil {
		return nil, err
	}
	return st, nil
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate <file>",
		Short:   "Check a workflow document",
		Long:    "Loads a JSON or YAML workflow and reports every validation message, one per line.",
		Args:    cobra.ExactArgs(1),
		PreRunE: c.prepare,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.load(args[0], serialization.FormatJSON)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if st.ValidateWorkflow() {
				_, _ = fmt.Fprintln(out, "valid")
				return nil
			}
			report := st.ValidationErrors()
			for _, key := range report.Keys() {
				for _, msg := range report[key] {
					_, _ = fmt.Fprintf(out, "%s: %s\n", key, msg)
				}
			}
			return errInvalid
		},
	}
}

func (c *cli) convertCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:     "convert <file>",
		Short:   "Re-encode a workflow document",
		Example: "  creditflow convert workflow.json --to yaml",
		Args:    cobra.ExactArgs(1),
		PreRunE: c.prepare,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				to = c.cfg.Export.Format
			}
			format, err := serialization.ParseFormat(to)
			if err != nil {
				return err
			}
			st, err := c.load(args[0], format)
			if err != nil {
				return err
			}
			text, err := st.ExportWorkflow()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = io.WriteString(out, text)
			if !strings.HasSuffix(text, "\n") {
				_, _ = fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target format: json or yaml (default from export.format)")
	return cmd
}

func (c *cli) testCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "test <file> [node=value...]",
		Short:   "Submit test values and print node statuses",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: c.prepare,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.load(args[0], serialization.FormatJSON)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			runner, err := testrunner.Start(st, testrunner.Config{Logger: c.logger})
			if err != nil {
				_, _ = fmt.Fprintln(out, err)
				return errInvalid
			}

			for _, arg := range args[1:] {
				nodeID, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("expected node=value, got %q", arg)
				}
				if err := runner.SubmitValue(nodeID, value); err != nil {
					return err
				}
			}

			for _, s := range runner.Statuses() {
				_, _ = fmt.Fprintf(out, "%s [%s]: %s\n", s.Label, s.NodeID, s.Text)
			}
			return nil
		},
	}
}

func printPalette(w io.Writer) {
	for _, category := range workflow.Palette() {
		_, _ = fmt.Fprintf(w, "%s\n", category.Category)
		for _, entry := range category.Nodes {
			_, _ = fmt.Fprintf(w, "  %-18s %s\n", entry.Type, entry.Label)
		}
	}
}
