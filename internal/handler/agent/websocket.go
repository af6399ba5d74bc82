package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/service/resolution"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var pingInterval = 54 * time.Second

// socket serializes writes to the connection. The read loop and the ping
// loop both write, and the underlying connection forbids concurrent writers.
type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socket) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type audioFrame struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
	IsFinal     bool   `json:"isFinal"`
	ChunkIndex  int    `json:"chunkIndex"`
}

type textFrame struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

type configFrame struct {
	CardLast4 string `json:"cardLast4"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// intakeState accumulates audio frames until the caller marks the final one.
type intakeState struct {
	customerID string
	cardLast4  string
	mimeType   string
	buffer     bytes.Buffer
}

// handleWebSocket runs a live intake conversation: the caller streams audio
// or text frames, and on the final frame the full pipeline runs with phase
// events sent back over the socket.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		http.Error(w, "customerID is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info().Str("customerID", customerID).Msg("websocket intake connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	sock := &socket{conn: conn}
	go pingLoop(ctx, sock)

	state := &intakeState{customerID: customerID}
	sendEvent(sock, "connected", map[string]interface{}{"customerId": customerID})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Warn().Err(err).Msg("websocket read error")
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			h.handleSocketMessage(ctx, sock, state, &msg)
		}
	}
}

func (h *Handler) handleSocketMessage(ctx context.Context, sock *socket, state *intakeState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		h.handleAudioFrame(ctx, sock, state, msg.Data)
	case "text":
		h.handleTextFrame(ctx, sock, state, msg.Data)
	case "config":
		h.handleConfigFrame(sock, state, msg.Data)
	default:
		sendSocketError(sock, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleAudioFrame(ctx context.Context, sock *socket, state *intakeState, raw json.RawMessage) {
	var frame audioFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		sendSocketError(sock, "invalid audio payload")
		return
	}

	if frame.AudioBase64 != "" {
		chunk, err := base64.StdEncoding.DecodeString(frame.AudioBase64)
		if err != nil {
			sendSocketError(sock, "invalid base64 audio chunk")
			return
		}
		state.buffer.Write(chunk)
		log.Debug().
			Str("customerID", state.customerID).
			Int("chunk", frame.ChunkIndex).
			Int("buffered", state.buffer.Len()).
			Msg("buffered audio frame")
	}
	if frame.MimeType != "" {
		state.mimeType = frame.MimeType
	}

	if frame.IsFinal {
		audio := state.buffer.Bytes()
		state.buffer.Reset()
		if len(audio) == 0 {
			sendSocketError(sock, "no audio buffered")
			return
		}
		h.runPipeline(ctx, sock, state, resolution.IntakeRequest{
			CustomerID:  state.customerID,
			CardLast4:   state.cardLast4,
			AudioBase64: base64.StdEncoding.EncodeToString(audio),
			MimeType:    state.mimeType,
		})
	}
}

func (h *Handler) handleTextFrame(ctx context.Context, sock *socket, state *intakeState, raw json.RawMessage) {
	var frame textFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		sendSocketError(sock, "invalid text payload")
		return
	}
	if strings.TrimSpace(frame.Text) == "" {
		return
	}
	if !frame.IsFinal {
		return
	}

	h.runPipeline(ctx, sock, state, resolution.IntakeRequest{
		CustomerID: state.customerID,
		CardLast4:  state.cardLast4,
		Transcript: frame.Text,
	})
}

func (h *Handler) handleConfigFrame(sock *socket, state *intakeState, raw json.RawMessage) {
	var frame configFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		sendSocketError(sock, "invalid config payload")
		return
	}
	if frame.CardLast4 != "" {
		state.cardLast4 = frame.CardLast4
	}
	sendEvent(sock, "config", map[string]interface{}{"cardLast4": state.cardLast4})
}

// runPipeline drives intake, handling and summary over one socket, emitting
// an event per phase.
func (h *Handler) runPipeline(ctx context.Context, sock *socket, state *intakeState, req resolution.IntakeRequest) {
	intake, err := h.svc.Begin(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("customerID", state.customerID).Msg("websocket intake failed")
		sendSocketError(sock, err.Error())
		return
	}
	sendEvent(sock, "intake", intake)

	handled, err := h.svc.Handle(ctx, intake.SessionID)
	if err != nil {
		sendSocketError(sock, err.Error())
		return
	}
	sendEvent(sock, "handling", handled)

	summary, err := h.svc.Summarize(ctx, intake.SessionID)
	if err != nil {
		sendSocketError(sock, err.Error())
		return
	}
	sendEvent(sock, "summary", summary)
}

func sendEvent(sock *socket, eventType string, data interface{}) {
	msg := outgoingMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := sock.writeJSON(msg); err != nil {
		log.Warn().Err(err).Msg("websocket write failed")
	}
}

func sendSocketError(sock *socket, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := sock.writeJSON(msg); err != nil {
		log.Warn().Err(err).Msg("websocket write failed")
	}
}

func pingLoop(ctx context.Context, sock *socket) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.ping(); err != nil {
				return
			}
		}
	}
}
