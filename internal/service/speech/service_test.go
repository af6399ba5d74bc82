package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	speechmodel "github.com/cardline/backend/internal/model/speech"
)

func newTestService(baseURL, chainURL string) *Service {
	return NewService(&speechmodel.Config{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		ChainURL: chainURL,
		STTModel: "deepgram:nova-2",
		LLMModel: "qwen3",
		TTSModel: "kokoro",
		Timeout:  5,
	})
}

func TestNormalizeTranscriptShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"text field", `{"text":"hello"}`, "hello"},
		{"transcript field", `{"transcript":"hi there"}`, "hi there"},
		{"results list", `{"results":[{"transcript":"from results"}]}`, "from results"},
		{"text wins over transcript", `{"text":"a","transcript":"b"}`, "a"},
		{"non-string text falls through", `{"text":42,"transcript":"b"}`, "b"},
		{"nothing usable", `{"confidence":0.9}`, ""},
		{"empty results", `{"results":[]}`, ""},
	}

	for _, tc := range cases {
		if got := normalizeTranscript(json.RawMessage(tc.raw)); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestTranscribeSendsModelAndAudio(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "my card was charged twice"})
	}))
	defer srv.Close()

	svc := newTestService(srv.URL, "")
	got, err := svc.Transcribe(context.Background(), &speechmodel.TranscribeRequest{
		AudioBase64: base64.StdEncoding.EncodeToString([]byte("audio")),
		MimeType:    "audio/webm",
	})
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if got.Text != "my card was charged twice" {
		t.Fatalf("unexpected transcript: %q", got.Text)
	}
	if gotPath != "/speech-to-text" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotBody["model"] != "deepgram:nova-2" {
		t.Fatalf("unexpected model: %v", gotBody["model"])
	}
}

func TestTranscribeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stt backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL, "")
	_, err := svc.Transcribe(context.Background(), &speechmodel.TranscribeRequest{
		AudioBase64: "Zm9v",
	})
	if err == nil {
		t.Fatal("expected error from failing upstream")
	}
}

func TestTranscribeRequiresAudio(t *testing.T) {
	svc := newTestService("http://unused", "")
	if _, err := svc.Transcribe(context.Background(), &speechmodel.TranscribeRequest{}); err != ErrMissingAudio {
		t.Fatalf("expected ErrMissingAudio, got %v", err)
	}
}

func TestProcessVoiceChainReturnsAudio(t *testing.T) {
	audioOut := []byte("synthesized-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("config") == "" {
			t.Error("expected config form field")
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected file form part: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audioOut)
	}))
	defer srv.Close()

	svc := newTestService("http://unused", srv.URL)
	got, err := svc.ProcessVoiceChain(context.Background(), &speechmodel.ChainRequest{
		AudioBase64: base64.StdEncoding.EncodeToString([]byte("audio-in")),
		MimeType:    "audio/wav",
		SessionID:   "sess_test",
	})
	if err != nil {
		t.Fatalf("ProcessVoiceChain err: %v", err)
	}
	if got.MimeType != "audio/mpeg" {
		t.Fatalf("unexpected mime type: %s", got.MimeType)
	}
	decoded, err := base64.StdEncoding.DecodeString(got.AudioBase64)
	if err != nil {
		t.Fatalf("decode chain audio: %v", err)
	}
	if string(decoded) != string(audioOut) {
		t.Fatalf("unexpected audio payload: %q", decoded)
	}
	if got.SessionID != "sess_test" {
		t.Fatalf("unexpected session id: %s", got.SessionID)
	}
}

func TestProcessVoiceChainNotConfigured(t *testing.T) {
	svc := newTestService("http://unused", "")
	_, err := svc.ProcessVoiceChain(context.Background(), &speechmodel.ChainRequest{AudioBase64: "Zm9v"})
	if err != ErrChainNotConfigured {
		t.Fatalf("expected ErrChainNotConfigured, got %v", err)
	}
}
