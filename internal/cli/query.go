package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/progress"
	"github.com/apresai/mulmoprep/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query <script> [question]",
	Short: "Ask questions about a script",
	Example: `  mulmoprep query script.json "What is GraphAI?"
  mulmoprep query script.json -i --provider anthropic`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

var (
	queryFlags      llmFlags
	flagInteractive bool
)

func init() {
	queryFlags.register(queryCmd)
	queryCmd.Flags().BoolVarP(&flagInteractive, "interactive", "i", false, "Start an interactive session")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if !flagInteractive && len(args) < 2 {
		return errors.New("a question is required unless --interactive is set")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	opts, err := queryFlags.options(a)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	s, err := a.loader.Load(ctx, args[0])
	if err != nil {
		return err
	}

	if !flagInteractive {
		res, err := query.Query(ctx, a.llmClient(), s, args[1], opts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(res.Answer, "\n"))
		return err
	}

	extractor, err := ingest.NewExtractor(a.cfg.Extractor)
	if err != nil {
		return err
	}
	fetcher := ingest.NewFetcher(
		ingest.WithExtractor(extractor),
		ingest.WithLogger(a.logger),
	)
	session, err := query.NewSession(s, a.llmClient(), fetcher, opts)
	if err != nil {
		return err
	}

	styled := cmd.OutOrStdout() == os.Stdout && progress.IsTerminal(os.Stdout)
	in := cmd.InOrStdin()
	if len(args) == 2 {
		// A question given with -i is the first turn.
		in = io.MultiReader(strings.NewReader(args[1]+"\n"), in)
	}
	err = query.NewREPL(session, in, cmd.OutOrStdout(), query.REPLOptions{Styled: styled}).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
