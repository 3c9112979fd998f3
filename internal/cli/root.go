package cli

import (
	"fmt"
	"strings"

	"github.com/babar-dev/babar/internal/llm"
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "babar",
		Short: "Write incremental summaries for every directory of a codebase",
		Long: `Babar walks a project bottom-up and asks a language model to describe
each directory from its source files and the summaries of its
subdirectories. Each summary is written next to the code it describes
(.aimd by default) and regenerated only when the directory's files change.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunRoot,
	}
	rootCmd.Flags().StringP("directory", "d", ".", "Project root to summarize")

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default: .babarrc in the project root)")
	flags.String("provider", "", fmt.Sprintf("LLM provider (%s)", strings.Join(llm.SupportedProviders(), "|")))
	flags.String("model", "", "Model name passed to the provider")
	flags.Int("concurrency", 0, "Maximum directories summarized at once per level (0: unbounded)")
	flags.Bool("no-outline", false, "Skip tree-sitter declaration outlines in prompts")
	flags.Bool("json", false, "Print machine-readable output")
	flags.CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.BoolP("quiet", "q", false, "Disable logging and progress output")

	runCmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Summarize stale directories under path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunAnalyze,
	}

	statusCmd := &cobra.Command{
		Use:   "status [path]",
		Short: "List directories the next run would summarize, and why",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStatus,
	}

	previewCmd := &cobra.Command{
		Use:   "preview <dir>",
		Short: "Stream one directory's summary to stdout without writing it",
		Args:  cobra.ExactArgs(1),
		RunE:  RunPreview,
	}
	previewCmd.Flags().StringP("directory", "d", ".", "Project root the directory belongs to")

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Summarize, then re-run whenever source files change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunWatch,
	}

	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install git pre-commit hook that refreshes summaries",
		RunE:  RunInstallHook,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "babar %s\n", version)
		},
	}

	rootCmd.AddCommand(
		runCmd,
		statusCmd,
		previewCmd,
		watchCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}
