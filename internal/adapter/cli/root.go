package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkyoung/eyeris/internal/domain"
	"github.com/bkyoung/eyeris/internal/prompt"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Analyzer defines the dependency required to run the analyze command.
type Analyzer interface {
	Process(ctx context.Context, raw []byte, spec prompt.Spec) (domain.Analysis, error)
	Stats() domain.TokenUsage
}

// Runner defines the dependency required to run the serve command.
type Runner interface {
	Run(ctx context.Context) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Analyzer Analyzer
	Server   Runner
	Args     Arguments
	Version  string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "eyeris",
		Short: "Vision model image analysis service",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(serveCommand(deps.Server))
	root.AddCommand(analyzeCommand(deps.Analyzer))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func serveCommand(server Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == nil {
				return fmt.Errorf("server is not configured")
			}
			return server.Run(cmd.Context())
		},
	}
}

func analyzeCommand(analyzer Analyzer) *cobra.Command {
	var formatName string
	var category string
	var platform string
	var traits []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a single image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if analyzer == nil {
				return fmt.Errorf("analyzer is not configured")
			}

			format, err := prompt.ParseFormat(formatName)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			spec := prompt.Spec{
				Format:   format,
				Category: category,
				Platform: platform,
				Traits:   traits,
				Config:   prompt.DefaultConfig(),
			}
			if spec.Format != prompt.FormatCategory {
				spec.Config.ContentCategory = category
			}
			if spec.Format != prompt.FormatCustom {
				spec.Config.CustomTraits = traits
			}

			analysis, err := analyzer.Process(cmd.Context(), raw, spec)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(analysis)
			}

			_, _ = fmt.Fprintln(out, strings.TrimSpace(analysis.Text))
			if !analysis.Usage.IsZero() {
				_, _ = fmt.Fprintf(out, "\ntokens: %d prompt + %d completion = %d total\n",
					analysis.Usage.PromptTokens, analysis.Usage.CompletionTokens, analysis.Usage.TotalTokens)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatName, "format", "", "Analysis format (concise, detailed, json, list, category, custom, discovery, platform)")
	cmd.Flags().StringVar(&category, "category", "", "Content category hint (e.g. receipt, screenshot)")
	cmd.Flags().StringVar(&platform, "platform", "", "Target platform for the platform format")
	cmd.Flags().StringSliceVar(&traits, "traits", []string{}, "Aspects to cover for the custom format")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}
