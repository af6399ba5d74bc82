package speech

// Config carries credentials and model names for the remote speech API.
type Config struct {
	BaseURL  string
	APIKey   string
	ChainURL string
	STTModel string
	LLMModel string
	TTSModel string
	Timeout  int // seconds, applied per call
}
