package audio_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vampirenirmal/insightatlas/internal/audio"
)

const testKey = "speech-key-0123456789abcdef"

func TestConfigured(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		baseURL string
		want    bool
	}{
		{name: "key and url", apiKey: testKey, baseURL: "https://speech.example.com", want: true},
		{name: "no key", apiKey: "", baseURL: "https://speech.example.com", want: false},
		{name: "placeholder key", apiKey: "changeme", baseURL: "https://speech.example.com", want: false},
		{name: "no url", apiKey: testKey, baseURL: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := audio.NewSynthesizer(tt.apiKey, tt.baseURL)
			if got := s.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSynthesize(t *testing.T) {
	var gotAuth, gotVoice, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/narrations" {
			t.Errorf("request path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotVoice = req["voice_id"]
		gotText = req["text"]

		json.NewEncoder(w).Encode(map[string]any{
			"audio_url":        "https://cdn.example.com/narrations/abc.mp3",
			"duration_seconds": 312,
		})
	}))
	defer server.Close()

	s := audio.NewSynthesizer(testKey, server.URL, audio.WithVoice("calm-narrator"))
	result, err := s.Synthesize(context.Background(), "The narration script.")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}

	if result.URL != "https://cdn.example.com/narrations/abc.mp3" {
		t.Errorf("url = %q", result.URL)
	}
	if result.DurationSecs != 312 {
		t.Errorf("duration = %d, want 312", result.DurationSecs)
	}
	if gotAuth != "Bearer "+testKey {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if gotVoice != "calm-narrator" {
		t.Errorf("voice_id = %q", gotVoice)
	}
	if gotText != "The narration script." {
		t.Errorf("text = %q", gotText)
	}
}

func TestSynthesizeEstimatesMissingDuration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"audio_url": "https://cdn.example.com/a.mp3"})
	}))
	defer server.Close()

	s := audio.NewSynthesizer(testKey, server.URL)
	script := strings.TrimSpace(strings.Repeat("word ", 260))
	result, err := s.Synthesize(context.Background(), script)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	// 260 words at 2.6 words per second.
	if result.DurationSecs != 100 {
		t.Errorf("estimated duration = %d, want 100", result.DurationSecs)
	}
}

func TestSynthesizeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := audio.NewSynthesizer(testKey, server.URL)
	if _, err := s.Synthesize(context.Background(), "script"); err == nil {
		t.Error("service error not surfaced")
	}
}

func TestSynthesizeMissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"duration_seconds": 10})
	}))
	defer server.Close()

	s := audio.NewSynthesizer(testKey, server.URL)
	if _, err := s.Synthesize(context.Background(), "script"); err == nil {
		t.Error("response without an audio url accepted")
	}
}
