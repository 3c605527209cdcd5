package asr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexzhu0/voicepipe/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		AppID:          "test-app",
		Business:       DefaultBusinessParams(),
		Deadline:       10 * time.Second,
		PacingInterval: time.Millisecond,
	}
}

// mockRecognitionServer upgrades incoming connections and hands them to
// the given handler
func mockRecognitionServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func dialMockServer(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial mock server: %v", err)
	}
	return conn
}

// readUntilLastFrame consumes frame messages until the closing frame
// arrives, returning how many were read
func readUntilLastFrame(conn *websocket.Conn) (int, error) {
	count := 0
	for {
		var msg FrameMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return count, err
		}
		count++
		if msg.Data.Status == StatusLastFrame {
			return count, nil
		}
	}
}

func testFrames(count int) []audio.Frame {
	frames := make([]audio.Frame, count)
	for i := range frames {
		var pos audio.Position
		if i == 0 {
			pos |= audio.PositionFirst
		}
		if i == count-1 {
			pos |= audio.PositionLast
		}
		frames[i] = audio.Frame{Index: i, Position: pos, Payload: make([]byte, 2560)}
	}
	return frames
}

func finalResult(text string) ResultMessage {
	return ResultMessage{
		Code: 0,
		SID:  "iat-test",
		Data: &ResultData{
			Status: ResultStatusFinal,
			Result: &RecognitionResult{WS: []WordGroup{
				{CW: []WordCandidate{{W: text, SC: 1}}},
			}},
		},
	}
}

func partialResult(text string) ResultMessage {
	msg := finalResult(text)
	msg.Data.Status = 1
	return msg
}

func TestSessionDeliversTranscript(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		if _, err := readUntilLastFrame(conn); err != nil {
			return
		}
		conn.WriteJSON(partialResult("你"))
		conn.WriteJSON(finalResult("你好"))
		// Keep the connection open; the client closes it
		conn.ReadMessage()
	})

	session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())

	transcript, err := session.Run(context.Background(), testFrames(5))
	if err != nil {
		t.Fatalf("Expected transcript, got: %v", err)
	}

	if transcript != "你好" {
		t.Errorf("Expected transcript '你好', got %q", transcript)
	}

	if session.State() != StateComplete {
		t.Errorf("Expected state complete, got %s", session.State())
	}
}

func TestSessionPartialsReplacedByFinal(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		if _, err := readUntilLastFrame(conn); err != nil {
			return
		}
		conn.WriteJSON(partialResult("你"))
		conn.WriteJSON(partialResult("你号"))
		conn.WriteJSON(finalResult("你好吗"))
		conn.ReadMessage()
	})

	session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())

	transcript, err := session.Run(context.Background(), testFrames(3))
	if err != nil {
		t.Fatalf("Expected transcript, got: %v", err)
	}

	if transcript != "你好吗" {
		t.Errorf("Expected final hypothesis to win, got %q", transcript)
	}
}

func TestSessionCompleteAfterImmediateFinal(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		if _, err := readUntilLastFrame(conn); err != nil {
			return
		}
		conn.WriteJSON(finalResult("好"))
		conn.ReadMessage()
	})

	// The receiver can process the final result before the sender records
	// that the last frame went out; run enough sessions to hit both orders.
	for i := 0; i < 25; i++ {
		session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())

		transcript, err := session.Run(context.Background(), testFrames(1))
		if err != nil {
			t.Fatalf("Run %d: expected transcript, got: %v", i, err)
		}

		if transcript != "好" {
			t.Fatalf("Run %d: expected transcript '好', got %q", i, transcript)
		}

		if session.State() != StateComplete {
			t.Fatalf("Run %d: expected state complete, got %s", i, session.State())
		}
	}
}

func TestMarkFramesSentPreservesTerminalState(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})

	session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())
	defer session.Close()

	session.setState(StateComplete)
	session.markFramesSent()
	if session.State() != StateComplete {
		t.Errorf("Expected complete to survive the sender transition, got %s", session.State())
	}

	session.setState(StateStreaming)
	session.markFramesSent()
	if session.State() != StateAwaitingFinal {
		t.Errorf("Expected streaming to advance to awaiting_final, got %s", session.State())
	}
}

func TestReceiveDropsResultAfterContextEnds(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(finalResult("你好"))
		conn.ReadMessage()
	})

	session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The final result is already in flight, but the context has ended;
	// it must not be applied.
	err := session.receiveResults(ctx, cancel)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context error, got: %v", err)
	}

	if session.State() == StateComplete {
		t.Error("Expected session not to complete from a dropped result")
	}

	if session.acc.Text() != "" {
		t.Errorf("Expected no accumulated text, got %q", session.acc.Text())
	}
}

func TestSessionDeadline(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		// Swallow frames, never answer
		readUntilLastFrame(conn)
		conn.ReadMessage()
	})

	config := testSessionConfig()
	config.Deadline = 300 * time.Millisecond

	session := NewSession(dialMockServer(t, server), config, testLogger())

	start := time.Now()
	_, err := session.Run(context.Background(), testFrames(2))
	elapsed := time.Since(start)

	if !errors.Is(err, ErrDeadline) {
		t.Fatalf("Expected ErrDeadline, got: %v", err)
	}

	if session.State() != StateTimedOut {
		t.Errorf("Expected state timed_out, got %s", session.State())
	}

	if elapsed > 2*time.Second {
		t.Errorf("Expected prompt deadline return, took %v", elapsed)
	}
}

func TestSessionServiceError(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(ResultMessage{Code: 10105, Message: "invalid appid"})
		conn.ReadMessage()
	})

	session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())

	_, err := session.Run(context.Background(), testFrames(3))

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("Expected ProtocolError, got: %v", err)
	}

	if protoErr.Code != 10105 {
		t.Errorf("Expected code 10105, got %d", protoErr.Code)
	}

	if session.State() != StateFailed {
		t.Errorf("Expected state failed, got %s", session.State())
	}
}

func TestSessionConnectionDrop(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		// Drop the connection after the first frame
		conn.ReadMessage()
		conn.Close()
	})

	session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())

	_, err := session.Run(context.Background(), testFrames(10))
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("Expected ErrConnection, got: %v", err)
	}

	if session.State() != StateFailed {
		t.Errorf("Expected state failed, got %s", session.State())
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	server := mockRecognitionServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})

	session := NewSession(dialMockServer(t, server), testSessionConfig(), testLogger())

	session.Close()
	session.Close()
	session.Close()
}

func TestSessionStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateConnecting, "connecting"},
		{StateStreaming, "streaming"},
		{StateAwaitingFinal, "awaiting_final"},
		{StateComplete, "complete"},
		{StateFailed, "failed"},
		{StateTimedOut, "timed_out"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
