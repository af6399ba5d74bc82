package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cardline/backend/internal/model/speech"
)

var (
	// ErrMissingAPIKey means the speech API credential is not configured.
	ErrMissingAPIKey = errors.New("missing speech API key")
	// ErrChainNotConfigured means no fallback voice chain endpoint is set.
	ErrChainNotConfigured = errors.New("voice chain URL not configured")
	// ErrMissingAudio means a call requiring audio received none.
	ErrMissingAudio = errors.New("missing audio payload")
)

// Service is the HTTP client for the remote speech capability: direct
// speech-to-text and text-to-speech plus the voice-chain fallback pipeline.
type Service struct {
	config *speech.Config
	client *http.Client
}

// NewService creates a speech client with the configured per-call timeout.
func NewService(config *speech.Config) *Service {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// ChainConfigured reports whether the fallback voice chain can be invoked.
func (s *Service) ChainConfigured() bool {
	return s.config.ChainURL != ""
}

// Transcribe sends audio to the speech-to-text endpoint and normalizes the
// response into a canonical Transcription.
func (s *Service) Transcribe(ctx context.Context, req *speech.TranscribeRequest) (*speech.Transcription, error) {
	if s.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if req.AudioBase64 == "" {
		return nil, ErrMissingAudio
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	payload := map[string]any{
		"model": s.config.STTModel,
		"audio": map[string]string{
			"content":  req.AudioBase64,
			"mimeType": mimeType,
		},
	}

	raw, err := s.postJSON(ctx, s.config.BaseURL+"/speech-to-text", payload, "speech-to-text")
	if err != nil {
		return nil, err
	}

	return &speech.Transcription{Text: normalizeTranscript(raw), Raw: raw}, nil
}

// Synthesize sends text to the text-to-speech endpoint.
func (s *Service) Synthesize(ctx context.Context, req *speech.SynthesizeRequest) (*speech.Synthesis, error) {
	if s.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	voice := req.Voice
	if voice == "" {
		voice = "alloy"
	}

	payload := map[string]any{
		"model": s.config.TTSModel,
		"input": req.Text,
		"voice": voice,
	}

	raw, err := s.postJSON(ctx, s.config.BaseURL+"/text-to-speech", payload, "text-to-speech")
	if err != nil {
		return nil, err
	}

	return &speech.Synthesis{Raw: raw}, nil
}

// ProcessVoiceChain pushes audio through the fallback STT->LLM->TTS chain.
// The chain answers with synthesized audio, never a transcript.
func (s *Service) ProcessVoiceChain(ctx context.Context, req *speech.ChainRequest) (*speech.ChainResult, error) {
	if !s.ChainConfigured() {
		return nil, ErrChainNotConfigured
	}
	if req.AudioBase64 == "" {
		return nil, ErrMissingAudio
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode chain audio: %w", err)
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "session-" + uuid.NewString()[:8]
	}

	chainConfig := map[string]any{
		"enableConversationHistory": req.EnableConversationHistory,
		"sessionId":                 sessionID,
		"stt":                       map[string]any{"model": s.config.STTModel},
		"llm":                       map[string]any{"model": s.config.LLMModel, "stream": true},
		"tts":                       map[string]any{"model": s.config.TTSModel},
	}
	configJSON, err := json.Marshal(chainConfig)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", "input.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := form.WriteField("config", string(configJSON)); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.ChainURL, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("voice chain request: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voice chain response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("voice chain failed (%d): %s", resp.StatusCode, out)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	return &speech.ChainResult{
		SessionID:   sessionID,
		MimeType:    contentType,
		AudioBase64: base64.StdEncoding.EncodeToString(out),
	}, nil
}

func (s *Service) postJSON(ctx context.Context, url string, payload any, label string) (json.RawMessage, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", label, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", label, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s failed (%d): %s", label, resp.StatusCode, raw)
	}
	return raw, nil
}

// normalizeTranscript flattens the known speech-to-text response shapes:
// a top-level "text" string, a "transcript" string, or the transcript of
// the first element in a "results" list. Anything else yields "".
func normalizeTranscript(raw json.RawMessage) string {
	var shape struct {
		Text       json.RawMessage `json:"text"`
		Transcript json.RawMessage `json:"transcript"`
		Results    []struct {
			Transcript json.RawMessage `json:"transcript"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return ""
	}
	if s, ok := asString(shape.Text); ok {
		return s
	}
	if s, ok := asString(shape.Transcript); ok {
		return s
	}
	if len(shape.Results) > 0 {
		if s, ok := asString(shape.Results[0].Transcript); ok {
			return s
		}
	}
	return ""
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
