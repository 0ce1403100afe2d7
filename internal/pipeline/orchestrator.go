package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

// Stage names the orchestrator's states. A run moves through them in
// order; failed is reachable from any non-terminal state.
type Stage string

const (
	StageIdle           Stage = "idle"
	StageAnalyzing      Stage = "analyzing"
	StageGenerating     Stage = "generating"
	StageGapAnalysis    Stage = "gapAnalysis"
	StageAudioScript    Stage = "audioScript"
	StageAudioSynthesis Stage = "audioSynthesis"
	StageCompleted      Stage = "completed"
	StageFailed         Stage = "failed"
)

// Percent checkpoints emitted at each stage transition. Monotonic by
// construction.
const (
	pctStart      = 5
	pctAnalyzed   = 25
	pctGenerated  = 65
	pctGapsDone   = 80
	pctScriptDone = 85
	pctAudioDone  = 95
	pctFinal      = 100
)

// minScriptChars guards audio synthesis against implausibly short scripts.
const minScriptChars = 100

// ProgressSink receives progress tuples during a run. The WebSocket
// broadcaster implements it; tests substitute recorders.
type ProgressSink interface {
	Broadcast(update insight.ProgressUpdate)
}

// AudioResult is the synthesized narration asset.
type AudioResult struct {
	URL          string
	DurationSecs int
}

// AudioSynthesizer is the speech-synthesis collaborator boundary.
// Implementations report Configured()==false to have the stage skipped.
type AudioSynthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, script string) (*AudioResult, error)
}

// ProgressFunc lets non-networked callers (tests, CLIs) observe stage
// transitions without a live connection.
type ProgressFunc func(stage Stage, percent int)

// Orchestrator sequences the pipeline stages and assembles the final
// GeneratedInsight. It holds no durable state; a crash mid-run loses all
// progress and must be restarted from analysis.
type Orchestrator struct {
	analyzer *Analyzer
	chunker  *ChunkedGenerator
	gaps     *GapAnalyzer
	script   *AudioScriptSynthesizer
	synth    AudioSynthesizer
	sink     ProgressSink
	logger   *slog.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithAudioSynthesizer wires the optional speech-synthesis collaborator.
func WithAudioSynthesizer(synth AudioSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.synth = synth
	}
}

// WithProgressSink wires the broadcaster all stage transitions publish to.
func WithProgressSink(sink ProgressSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "orchestrator")
		o.analyzer = NewAnalyzer(o.analyzer.gen, logger)
		o.chunker = NewChunkedGenerator(o.chunker.gen, logger)
		o.gaps = NewGapAnalyzer(o.gaps.gen, logger)
		o.script = NewAudioScriptSynthesizer(o.script.gen, logger)
	}
}

func NewOrchestrator(gen Generator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		analyzer: NewAnalyzer(gen, nil),
		chunker:  NewChunkedGenerator(gen, nil),
		gaps:     NewGapAnalyzer(gen, nil),
		script:   NewAudioScriptSynthesizer(gen, nil),
		logger:   slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GeneratePremiumInsight runs the full pipeline for one book. Documented
// soft-failure stages (analysis, gap analysis, audio script) degrade in
// place; everything else is caught once here, logged with context,
// broadcast as a failed progress update, and returned to the caller.
func (o *Orchestrator) GeneratePremiumInsight(ctx context.Context, bookTitle, bookAuthor, bookText, insightID string, onProgress ProgressFunc) (*insight.GeneratedInsight, error) {
	start := time.Now()
	o.logger.Info("pipeline run starting",
		"insight_id", insightID,
		"book_title", bookTitle,
		"text_chars", len(bookText))

	result, percent, err := o.run(ctx, bookTitle, bookAuthor, bookText, insightID, onProgress)
	if err != nil {
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			stageErr = &StageError{Stage: "pipeline", Book: bookTitle, Cause: err}
		}
		o.logger.Error("pipeline run failed",
			"insight_id", insightID,
			"book_title", bookTitle,
			"stage", stageErr.Stage,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		o.emit(insightID, onProgress, StageFailed, insight.StatusFailed, percent, "Generation failed", 0, 0, stageErr.Error())
		return nil, stageErr
	}

	o.logger.Info("pipeline run complete",
		"insight_id", insightID,
		"book_title", bookTitle,
		"duration_ms", time.Since(start).Milliseconds(),
		"word_count", result.WordCount,
		"section_count", len(result.Sections))
	return result, nil
}

// run walks the state machine. It returns the last emitted percent so the
// failure broadcast can report where the run stopped.
func (o *Orchestrator) run(ctx context.Context, bookTitle, bookAuthor, bookText, insightID string, onProgress ProgressFunc) (*insight.GeneratedInsight, int, error) {
	percent := pctStart
	o.emit(insightID, onProgress, StageAnalyzing, insight.StatusGenerating, percent, "Analyzing book structure", 0, 0, "")

	analysisResult := o.analyzer.Analyze(ctx, bookTitle, bookAuthor, bookText)
	analysis := analysisResult.Value
	if err := ctx.Err(); err != nil {
		return nil, percent, err
	}

	percent = pctAnalyzed
	o.emit(insightID, onProgress, StageGenerating, insight.StatusGenerating, percent, "Generating guide content", 0, 0, "")

	sections, err := o.chunker.GenerateGuide(ctx, bookTitle, bookAuthor, analysis, bookText)
	if err != nil {
		return nil, percent, err
	}

	percent = pctGenerated
	o.emit(insightID, onProgress, StageGapAnalysis, insight.StatusGenerating, percent, "Checking content completeness",
		len(sections), insight.TotalWords(sections), "")

	gapResult := o.gaps.Analyze(ctx, bookTitle, bookAuthor, sections, bookText)
	if err := ctx.Err(); err != nil {
		return nil, percent, err
	}
	merged := Merge(sections, gapResult.NewSections)

	percent = pctGapsDone
	o.emit(insightID, onProgress, StageAudioScript, insight.StatusGenerating, percent, "Writing narration script",
		len(merged), insight.TotalWords(merged), "")

	scriptResult := o.script.Synthesize(ctx, bookTitle, bookAuthor, merged, analysis)
	if err := ctx.Err(); err != nil {
		return nil, percent, err
	}

	percent = pctScriptDone
	audioURL, audioDuration := o.synthesizeAudio(ctx, insightID, scriptResult.Value)
	if err := ctx.Err(); err != nil {
		return nil, percent, err
	}

	percent = pctAudioDone
	o.emit(insightID, onProgress, StageAudioSynthesis, insight.StatusGenerating, percent, "Finalizing insight guide",
		len(merged), insight.TotalWords(merged), "")

	result := o.assemble(insightID, bookTitle, analysis, merged, gapResult, scriptResult.Value, audioURL, audioDuration)

	percent = pctFinal
	o.emit(insightID, onProgress, StageCompleted, insight.StatusCompleted, percent, "Completed",
		len(result.Sections), result.WordCount, "")
	return result, percent, nil
}

// synthesizeAudio runs the optional speech-synthesis stage. Skipping it
// (unconfigured provider, implausibly short script, or synthesis error)
// is a recognized degraded-but-valid outcome, never a failure.
func (o *Orchestrator) synthesizeAudio(ctx context.Context, insightID, script string) (string, int) {
	if o.synth == nil || !o.synth.Configured() {
		o.logger.Info("audio synthesis skipped: provider unconfigured", "insight_id", insightID)
		return "", 0
	}
	if len(script) < minScriptChars {
		o.logger.Info("audio synthesis skipped: script too short",
			"insight_id", insightID,
			"script_chars", len(script))
		return "", 0
	}

	audio, err := o.synth.Synthesize(ctx, script)
	if err != nil {
		o.logger.Warn("audio synthesis failed, continuing without audio",
			"insight_id", insightID,
			"error", err)
		return "", 0
	}
	return audio.URL, audio.DurationSecs
}

func (o *Orchestrator) assemble(insightID, bookTitle string, analysis insight.BookAnalysis, sections []insight.PremiumSection, gaps insight.GapAnalysisResult, script, audioURL string, audioDuration int) *insight.GeneratedInsight {
	summary := ""
	if qg, ok := insight.FindByType(sections, insight.TypeQuickGlance); ok {
		summary = insight.Truncate(qg.Content, 300)
	}

	themes := make([]string, 0, len(analysis.CoreConcepts))
	for i, c := range analysis.CoreConcepts {
		if i >= topConceptCount {
			break
		}
		themes = append(themes, c.Name)
	}

	return &insight.GeneratedInsight{
		ID:                 insightID,
		Title:              fmt.Sprintf("Insight Guide: %s", bookTitle),
		Summary:            summary,
		KeyThemes:          themes,
		Sections:           sections,
		TOC:                insight.BuildTOC(sections),
		AudioScript:        script,
		AudioURL:           audioURL,
		AudioDurationSecs:  audioDuration,
		WordCount:          insight.TotalWords(sections),
		Analysis:           analysis,
		GapAnalysisApplied: len(gaps.NewSections) > 0,
		CompletenessScore:  gaps.CompletenessScore,
		GeneratedAt:        time.Now().UTC(),
	}
}

func (o *Orchestrator) emit(insightID string, onProgress ProgressFunc, stage Stage, status insight.Status, percent int, step string, sectionCount, wordCount int, errMsg string) {
	if o.sink != nil {
		o.sink.Broadcast(insight.ProgressUpdate{
			InsightID:    insightID,
			Status:       status,
			Percent:      percent,
			CurrentStep:  step,
			SectionCount: sectionCount,
			WordCount:    wordCount,
			Error:        errMsg,
		})
	}
	if onProgress != nil {
		onProgress(stage, percent)
	}
}
