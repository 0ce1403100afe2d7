package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vampirenirmal/insightatlas/internal/insight"
	"github.com/vampirenirmal/insightatlas/internal/pipeline"
)

// narrationWordsPerSecond approximates spoken-word pacing for the
// duration estimate when the service does not report one.
const narrationWordsPerSecond = 2.6

// Synthesizer calls a speech-synthesis HTTP service to turn narration
// scripts into audio assets. It is optional: with no API key the
// orchestrator skips the stage entirely.
type Synthesizer struct {
	apiKey     string
	baseURL    string
	voiceID    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Synthesizer)

func WithVoice(voiceID string) Option {
	return func(s *Synthesizer) {
		s.voiceID = voiceID
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Synthesizer) {
		s.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logger.With("component", "audio_synthesizer")
	}
}

func NewSynthesizer(apiKey, baseURL string, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		apiKey:     apiKey,
		baseURL:    baseURL,
		voiceID:    "narrator-default",
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		logger:     slog.Default().With("component", "audio_synthesizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) Configured() bool {
	return len(s.apiKey) >= 20 && s.baseURL != ""
}

// Synthesize sends the script to the speech service and returns the
// hosted audio asset.
func (s *Synthesizer) Synthesize(ctx context.Context, script string) (*pipeline.AudioResult, error) {
	requestID := fmt.Sprintf("tts_%d", time.Now().UnixNano())
	start := time.Now()

	body, err := json.Marshal(map[string]string{
		"text":     script,
		"voice_id": s.voiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	s.logger.Debug("sending speech synthesis request",
		"request_id", requestID,
		"script_chars", len(script),
		"voice_id", s.voiceID)

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/narrations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var payload struct {
		AudioURL        string `json:"audio_url"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if payload.AudioURL == "" {
		return nil, fmt.Errorf("speech service returned no audio url")
	}
	if payload.DurationSeconds == 0 {
		payload.DurationSeconds = int(float64(insight.CountWords(script)) / narrationWordsPerSecond)
	}

	s.logger.Info("speech synthesis complete",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
		"audio_duration_secs", payload.DurationSeconds)

	return &pipeline.AudioResult{
		URL:          payload.AudioURL,
		DurationSecs: payload.DurationSeconds,
	}, nil
}
