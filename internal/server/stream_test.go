package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/boat-builder/opspod"
)

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) streamFrame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame streamFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return frame
}

func TestStreamServesTurns(t *testing.T) {
	srv := newTestServer(t, &echoLLM{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream?session_id=stream-1"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	if hello := readFrame(ctx, t, conn); hello.Type != frameSession || hello.SessionID != "stream-1" {
		t.Fatalf("unexpected first frame %+v", hello)
	}

	for _, input := range []string{"hello", "again"} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(input)); err != nil {
			t.Fatal(err)
		}
		reply := readFrame(ctx, t, conn)
		if reply.Type != opspod.ResponseTypePartialText || reply.Content != "echo: "+input {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if end := readFrame(ctx, t, conn); end.Type != opspod.ResponseTypeEnd {
			t.Fatalf("expected end frame, got %+v", end)
		}
	}
}
