package speech

// TranscribeRequest carries audio to the speech-to-text endpoint.
type TranscribeRequest struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"` // audio/wav, audio/webm, etc.
}

// SynthesizeRequest carries text to the text-to-speech endpoint.
type SynthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// ChainRequest carries audio through the fallback voice chain.
type ChainRequest struct {
	AudioBase64               string `json:"audioBase64"`
	MimeType                  string `json:"mimeType"`
	SessionID                 string `json:"sessionId,omitempty"`
	EnableConversationHistory bool   `json:"enableConversationHistory"`
}
