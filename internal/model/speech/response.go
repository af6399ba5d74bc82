package speech

import "encoding/json"

// Transcription is the canonical speech-to-text result. Upstream response
// shapes are normalized into it at the adapter boundary so callers never
// branch on raw payloads.
type Transcription struct {
	Text string          `json:"text"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

// Synthesis is the text-to-speech result.
type Synthesis struct {
	Raw json.RawMessage `json:"raw,omitempty"`
}

// ChainResult is the voice-chain output: synthesized audio, not text.
type ChainResult struct {
	SessionID   string `json:"sessionId"`
	MimeType    string `json:"mimeType"`
	AudioBase64 string `json:"audioBase64"`
}
