package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/boat-builder/opspod"
)

// frameSession is the first frame of a stream and carries the session id.
const frameSession opspod.ResponseType = "session"

type streamFrame struct {
	SessionID string `json:"session_id,omitempty"`
	opspod.Response
}

// handleStream serves a session over a websocket. Every text message from the
// client is one human turn; the server answers with status frames, the reply
// (or a warning or an error) and an end frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	session := s.pod.NewSession(ctx, r.URL.Query().Get("session_id"))
	defer session.Close()
	logger := s.logger.With("sessionID", session.ID())

	if err := writeFrame(ctx, conn, streamFrame{SessionID: session.ID(), Response: opspod.Response{Type: frameSession}}); err != nil {
		return
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				logger.Warn("Websocket read failed", "error", err)
			}
			return
		}
		input := strings.TrimSpace(string(data))
		if input == "" {
			continue
		}
		if err := session.In(input); err != nil {
			_ = conn.Close(websocket.StatusInternalError, err.Error())
			return
		}
		for {
			response := session.Out()
			if err := writeFrame(ctx, conn, streamFrame{Response: response}); err != nil {
				logger.Warn("Websocket write failed", "error", err)
				return
			}
			if response.Type == opspod.ResponseTypeEnd {
				break
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame streamFrame) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}
