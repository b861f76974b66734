package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apresai/mulmoprep/internal/pipeline"
	"github.com/apresai/mulmoprep/internal/script"
)

var processCmd = &cobra.Command{
	Use:   "process <script>",
	Short: "Apply a profile and filters to a script and print the result",
	Example: `  mulmoprep process script.json --profile summary -o summary.json
  mulmoprep process script.json -p teaser
  mulmoprep process script.json --section chapter1
  mulmoprep process script.json --tags concept,demo
  mulmoprep process s3://bucket/script.json --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

var (
	flagProfile string
	flagOutput  string
	flagSection string
	flagTags    []string
	flagTUI     bool
)

func init() {
	processCmd.Flags().StringVarP(&flagProfile, "profile", "p", script.DefaultProfile, "Profile name to apply")
	processCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file path or s3:// URL (default: stdout)")
	processCmd.Flags().StringVarP(&flagSection, "section", "s", "", "Filter by section name")
	processCmd.Flags().StringSliceVarP(&flagTags, "tags", "t", nil, "Filter by tags (comma-separated)")
	processCmd.Flags().BoolVar(&flagTUI, "tui", false, "Pick profile, filters and output interactively")
}

func runProcess(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	choices := wizardChoices{
		Profile: flagProfile,
		Section: flagSection,
		Tags:    cleanTags(flagTags),
		Output:  flagOutput,
	}

	// The wizard needs the script; the pipeline reuses it.
	var loaded *script.Script
	if flagTUI {
		loaded, err = a.loader.Load(ctx, args[0])
		if err != nil {
			return err
		}
		choices, err = runWizard(loaded, choices)
		if errors.Is(err, errWizardCancelled) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	renderer, onProgress := progressRenderer()
	_, err = pipeline.Process(ctx, pipeline.ProcessOptions{
		Source:     args[0],
		Script:     loaded,
		Output:     choices.Output,
		Stdout:     cmd.OutOrStdout(),
		Profile:    choices.Profile,
		Section:    choices.Section,
		Tags:       choices.Tags,
		Loader:     a.loader,
		OnProgress: onProgress,
		Logger:     a.logger,
	})
	if renderer != nil && err == nil {
		renderer.Finish()
	}
	return err
}
