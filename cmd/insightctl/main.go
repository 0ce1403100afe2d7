package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vampirenirmal/insightatlas/internal/audio"
	"github.com/vampirenirmal/insightatlas/internal/config"
	"github.com/vampirenirmal/insightatlas/internal/extract"
	"github.com/vampirenirmal/insightatlas/internal/pipeline"
	"github.com/vampirenirmal/insightatlas/internal/provider"
	"github.com/vampirenirmal/insightatlas/internal/storage"
)

const version = "0.3.0"

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	stepColor    = color.New(color.FgCyan)

	bookTitle  string
	bookAuthor string
	outputDir  string
	withAudio  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "insightctl",
		Short: "Generate premium insight guides from books on the command line",
		Long: `insightctl runs the full insight pipeline against a local book file:
analysis, chunked guide generation, gap analysis, and audio script,
then writes the finished guide to the insights directory.`,
		SilenceUsage: true,
	}

	generateCmd := &cobra.Command{
		Use:   "generate <book-file>",
		Short: "Generate an insight guide from a book file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVarP(&bookTitle, "title", "t", "", "Book title (defaults to the first line of the file)")
	generateCmd.Flags().StringVarP(&bookAuthor, "author", "a", "", "Book author")
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to write the guide to (defaults to the configured insights dir)")
	generateCmd.Flags().BoolVar(&withAudio, "audio", false, "Synthesize narration audio when a speech backend is configured")
	rootCmd.AddCommand(generateCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the insightctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("insightctl %s\n", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading book file: %w", err)
	}

	extractor := extract.NewPlainText()
	content, err := extractor.ExtractContent(data, filepath.Base(path), "")
	if err != nil {
		return fmt.Errorf("extracting book content: %w", err)
	}

	title := bookTitle
	if title == "" {
		title = content.Title
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	clientOpts := []provider.ClientOption{
		provider.WithTimeout(cfg.Limits.RequestTimeout),
		provider.WithRetry(cfg.Limits.MaxRetries),
		provider.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize),
	}
	primary := provider.NewAnthropicClient(cfg.Providers.Primary.APIKey, cfg.Providers.Primary.Model,
		append(clientOpts, provider.WithBaseURL(cfg.Providers.Primary.BaseURL))...)
	fallback := provider.NewOpenAIClient(cfg.Providers.Fallback.APIKey, cfg.Providers.Fallback.Model,
		append(clientOpts, provider.WithBaseURL(cfg.Providers.Fallback.BaseURL))...)
	gen := provider.New([]provider.Backend{primary, fallback}, nil)

	var orchOpts []pipeline.OrchestratorOption
	if withAudio {
		synth := audio.NewSynthesizer(cfg.Audio.APIKey, cfg.Audio.BaseURL, audio.WithVoice(cfg.Audio.VoiceID))
		if !synth.Configured() {
			return fmt.Errorf("--audio requires SPEECH_API_KEY and SPEECH_BASE_URL")
		}
		orchOpts = append(orchOpts, pipeline.WithAudioSynthesizer(synth))
	}
	orch := pipeline.NewOrchestrator(gen, orchOpts...)

	insightsDir := cfg.Storage.InsightsDir
	if outputDir != "" {
		insightsDir = outputDir
	}
	store, err := storage.NewInsightStore(insightsDir)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	insightID := uuid.New().String()
	fmt.Printf("Generating insight guide for %q (%d words)\n", title, content.WordCount)

	result, err := orch.GeneratePremiumInsight(ctx, title, bookAuthor, content.Text, insightID,
		func(stage pipeline.Stage, percent int) {
			stepColor.Printf("  [%3d%%] %s\n", percent, stage)
		})
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	if err := store.SaveInsight(ctx, result); err != nil {
		return fmt.Errorf("saving guide: %w", err)
	}

	successColor.Printf("Guide complete: %d sections, %d words (completeness %d)\n",
		len(result.Sections), result.WordCount, result.CompletenessScore)
	fmt.Printf("Saved to %s\n", filepath.Join(insightsDir, insightID+".json"))
	if result.AudioURL != "" {
		fmt.Printf("Narration: %s (%ds)\n", result.AudioURL, result.AudioDurationSecs)
	}
	return nil
}
