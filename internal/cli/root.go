package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/apresai/mulmoprep/internal/config"
	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/observability"
	"github.com/apresai/mulmoprep/internal/progress"
	"github.com/apresai/mulmoprep/internal/script"
	"github.com/apresai/mulmoprep/internal/storage"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "mulmoprep",
	Short:         "Preprocess MulmoCast scripts: profiles, filters, summaries and Q&A",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mulmoprep %s\n", Version)
	},
}

var flagVerbose bool

const llmTimeout = 120 * time.Second

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging on stderr")
}

// Execute runs the root command and reports the error on stderr. Commands
// stop when ctx is cancelled.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// app holds what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	loader *script.Loader
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, err := observability.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if flagVerbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	logger := observability.InitLogger(os.Stderr, level)
	slog.SetDefault(logger)

	loader := script.NewLoader(
		ingest.NewHTTPClient(script.LoadTimeout),
		&lazyStorage{region: cfg.AWSRegion},
	)
	return &app{cfg: cfg, logger: logger, loader: loader}, nil
}

// llmClient builds the provider router. The CLI reads API keys from the
// environment only.
func (a *app) llmClient() llm.Client {
	cfg := a.cfg.LLMConfig(nil)
	cfg.HTTPClient = ingest.NewHTTPClient(llmTimeout)
	cfg.Logger = a.logger
	return llm.New(cfg)
}

// llmOptions resolves --provider/--model against the configured defaults.
// The configured model only applies to the configured provider.
func (a *app) llmOptions(provider, model string) (llm.Options, error) {
	name := provider
	if name == "" {
		name = a.cfg.Provider
	}
	p, err := llm.ParseProvider(name)
	if err != nil {
		return llm.Options{}, err
	}
	if model == "" && provider == "" {
		model = a.cfg.Model
	}
	return llm.Options{Provider: p, Model: model}, nil
}

// progressRenderer returns a stderr renderer when stderr is a terminal.
func progressRenderer() (*progress.BarRenderer, progress.Callback) {
	if !progress.IsTerminal(os.Stderr) {
		return nil, nil
	}
	r := progress.NewBarRenderer(os.Stderr)
	return r, r.Handle
}

// lazyStorage defers AWS configuration until an s3:// path is used.
type lazyStorage struct {
	region string

	once  sync.Once
	store *storage.Storage
	err   error
}

func (l *lazyStorage) init(ctx context.Context) error {
	l.once.Do(func() {
		awsCfg, err := storage.LoadAWSConfig(ctx, l.region)
		if err != nil {
			l.err = err
			return
		}
		l.store = storage.NewFromConfig(awsCfg)
	})
	return l.err
}

func (l *lazyStorage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := l.init(ctx); err != nil {
		return nil, err
	}
	return l.store.Get(ctx, bucket, key)
}

func (l *lazyStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := l.init(ctx); err != nil {
		return err
	}
	return l.store.Put(ctx, bucket, key, data, contentType)
}

// cleanTags trims entries from a comma-separated --tags flag and drops
// empty ones.
func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
