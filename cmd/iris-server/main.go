package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"iris/internal/assist"
	"iris/internal/config"
	"iris/internal/llm"
	"iris/internal/logging"
	"iris/internal/memory"
	"iris/internal/scene"
	"iris/internal/server"
	"iris/internal/speech"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "iris-server",
		Short: "Visual-memory assistant backend",
		Long: "iris-server analyzes uploaded images with a vision model, stores the\n" +
			"scene as retrievable memory fragments, and answers questions about\n" +
			"the current and previously seen scenes.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("host", "", "listen host (overrides config)")
	flags.Int("port", 0, "listen port (overrides config)")
	flags.String("provider", "", "chat model provider: cerebras or groq")
	flags.String("memory-path", "", "directory for persisted memory fragments")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("mock-speech", false, "serve silent audio instead of calling Cartesia")

	_ = v.BindPFlags(flags)

	return cmd
}

// run loads configuration, wires the pipeline and serves until the process
// receives SIGINT or SIGTERM.
func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return err
	}
	applyFlags(cfg, v)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewComponentLogger("Main")

	client, err := newChatClient(cfg.Provider)
	if err != nil {
		return err
	}

	embedder, err := memory.NewEmbedder(memory.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	store, err := memory.NewStore(memory.StoreConfig{
		PersistPath: cfg.Memory.PersistPath,
		Collection:  cfg.Memory.Collection,
	}, embedder, logging.NewComponentLogger("Memory"))
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer func() { _ = store.Close() }()

	analyzer := scene.NewAnalyzer(client, logging.NewComponentLogger("Scene"))
	composer := assist.NewComposer(store, cfg.Memory.TopK, logging.NewComponentLogger("Assist"))
	generator := assist.NewGenerator(client, logging.NewComponentLogger("Assist"))
	pipeline := assist.NewPipeline(analyzer, store, composer, generator, logging.NewComponentLogger("Assist"))

	transcriber, synthesizer, speechCheck := newSpeech(cfg.Speech)

	srv := server.New(server.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		EnableCORS:     cfg.Server.EnableCORS,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		Pipeline:       pipeline,
		Store:          store,
		Transcriber:    transcriber,
		Synthesizer:    synthesizer,
		Checks: map[string]server.ReadyFunc{
			"chat_model": readyCheck(client.Ready, "provider API key is not set"),
			"embeddings": embedderCheck(embedder),
			"speech":     speechCheck,
		},
		Logger: logging.NewComponentLogger("HTTP"),
	})

	printBanner(cfg, client.Model())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// applyFlags lets explicit flags win over file and environment values.
func applyFlags(cfg *config.Config, v *viper.Viper) {
	if host := v.GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port := v.GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if provider := v.GetString("provider"); provider != "" {
		cfg.Provider.Name = strings.ToLower(provider)
	}
	if path := v.GetString("memory-path"); path != "" {
		cfg.Memory.PersistPath = path
	}
	if level := v.GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if v.GetBool("mock-speech") {
		cfg.Speech.Mock = true
	}
}

func newChatClient(cfg config.ProviderConfig) (*llm.Client, error) {
	conf := llm.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}
	switch cfg.Name {
	case config.ProviderCerebras:
		return llm.NewCerebrasClient(conf), nil
	case config.ProviderGroq:
		return llm.NewGroqClient(conf), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

func newSpeech(cfg config.SpeechConfig) (speech.Transcriber, speech.Synthesizer, server.ReadyFunc) {
	if cfg.Mock {
		ready := func() error { return nil }
		return &speech.MockTranscriber{}, &speech.MockSynthesizer{}, ready
	}
	client := speech.NewCartesiaClient(speech.CartesiaConfig{
		APIKey: cfg.APIKey,
		Voice:  cfg.Voice,
	})
	return client, client, readyCheck(client.Ready, "CARTESIA_API_KEY is not set")
}

func readyCheck(ready func() bool, reason string) server.ReadyFunc {
	return func() error {
		if !ready() {
			return fmt.Errorf("%s", reason)
		}
		return nil
	}
}

func embedderCheck(embedder memory.Embedder) server.ReadyFunc {
	checker, ok := embedder.(memory.ReadyChecker)
	if !ok {
		return func() error { return nil }
	}
	return readyCheck(checker.Ready, "OPENAI_API_KEY is not set")
}

func printBanner(cfg *config.Config, model string) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s %s\n", bold("iris"), gray(version))
	fmt.Printf("  %s http://%s:%d\n", cyan("listen"), cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  %s %s (%s)\n", cyan("model"), model, cfg.Provider.Name)
	fmt.Printf("  %s %s\n", cyan("memory"), cfg.Memory.PersistPath)
}
