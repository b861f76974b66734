package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/mulmoprep/internal/pipeline"
	"github.com/apresai/mulmoprep/internal/query"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <script>",
	Short: "Summarize a script with an LLM",
	Example: `  mulmoprep summarize script.json
  mulmoprep summarize script.json --provider anthropic --format markdown --lang ja
  mulmoprep summarize script.json --format html --target-length 500 -o summary.html`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

// llmFlags are shared by summarize and query.
type llmFlags struct {
	provider     string
	model        string
	lang         string
	systemPrompt string
	section      string
	tags         []string
}

func (f *llmFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "LLM provider: openai, anthropic, groq, gemini (default from MULMOPREP_PROVIDER)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model name (default: provider's default model)")
	cmd.Flags().StringVarP(&f.lang, "lang", "l", "", "Output language code (e.g. en, ja)")
	cmd.Flags().StringVar(&f.systemPrompt, "system-prompt", "", "Replace the built-in system prompt")
	cmd.Flags().StringVarP(&f.section, "section", "s", "", "Filter by section name")
	cmd.Flags().StringSliceVarP(&f.tags, "tags", "t", nil, "Filter by tags (comma-separated)")
}

func (f *llmFlags) options(a *app) (query.Options, error) {
	llmOpts, err := a.llmOptions(f.provider, f.model)
	if err != nil {
		return query.Options{}, err
	}
	return query.Options{
		LLM:            llmOpts,
		Lang:           f.lang,
		SystemPrompt:   f.systemPrompt,
		Section:        f.section,
		Tags:           cleanTags(f.tags),
		FetchMaxLength: a.cfg.FetchMaxLength,
		Logger:         a.logger,
	}, nil
}

var (
	summarizeFlags     llmFlags
	flagFormat         string
	flagTargetLength   int
	flagSummaryOutFile string
)

func init() {
	summarizeFlags.register(summarizeCmd)
	summarizeCmd.Flags().StringVarP(&flagFormat, "format", "f", "text", "Output format: text, markdown, html")
	summarizeCmd.Flags().IntVar(&flagTargetLength, "target-length", 0, "Approximate summary length in characters")
	summarizeCmd.Flags().StringVarP(&flagSummaryOutFile, "output", "o", "", "Write the summary to a file or s3:// URL instead of stdout")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	format, err := query.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	opts, err := summarizeFlags.options(a)
	if err != nil {
		return err
	}

	renderer, onProgress := progressRenderer()
	res, err := pipeline.Summarize(cmd.Context(), pipeline.SummarizeOptions{
		Source: args[0],
		SummarizeOptions: query.SummarizeOptions{
			Options:           opts,
			Format:            format,
			TargetLengthChars: flagTargetLength,
		},
		Loader:     a.loader,
		Client:     a.llmClient(),
		OnProgress: onProgress,
	})
	if err != nil {
		return err
	}
	if renderer != nil {
		renderer.Finish()
	}

	summary := strings.TrimRight(res.Summary, "\n") + "\n"
	if flagSummaryOutFile != "" {
		if err := a.loader.SaveText(cmd.Context(), summary, flagSummaryOutFile, contentType(format)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Output written to %s\n", flagSummaryOutFile)
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), summary)
	return err
}

func contentType(f query.Format) string {
	switch f {
	case query.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case query.FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
