package asr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/alexzhu0/voicepipe/internal/audio"
)

// State represents the lifecycle of a recognition session
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateAwaitingFinal
	StateComplete
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateAwaitingFinal:
		return "awaiting_final"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// SessionConfig contains the parameters for one recognition attempt
type SessionConfig struct {
	AppID          string
	Business       BusinessParams
	Format         string        // Audio format descriptor, e.g. "audio/L16;rate=16000"
	Deadline       time.Duration // Wall-clock limit for the whole attempt
	PacingInterval time.Duration // Delay between consecutive frames
}

// Session drives a single recognition attempt over one WebSocket
// connection. Frames are sent at a steady pace while results are
// consumed concurrently; the session ends when the service delivers its
// final result, the deadline expires, or either direction fails.
type Session struct {
	id        string
	config    SessionConfig
	logger    *slog.Logger
	conn      *websocket.Conn
	acc       *Accumulator
	state     atomic.Int32
	closeOnce sync.Once
}

// NewSession creates a session for the given open connection. The
// session takes ownership of the connection and closes it when done.
func NewSession(conn *websocket.Conn, config SessionConfig, logger *slog.Logger) *Session {
	if config.PacingInterval <= 0 {
		config.PacingInterval = 40 * time.Millisecond
	}

	if config.Deadline <= 0 {
		config.Deadline = 15 * time.Second
	}

	if config.Format == "" {
		config.Format = "audio/L16;rate=16000"
	}

	id := uuid.New().String()
	s := &Session{
		id:     id,
		config: config,
		logger: logger.With("session_id", id),
		conn:   conn,
		acc:    NewAccumulator(),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	old := State(s.state.Swap(int32(state)))
	if old != state {
		s.logger.Debug("Session state changed",
			"from", old.String(),
			"to", state.String())
	}
}

// markFramesSent moves the session from streaming to awaiting_final.
// The receiver can reach a terminal state before the sender gets here,
// so the transition must not clobber anything but streaming.
func (s *Session) markFramesSent() {
	if s.state.CompareAndSwap(int32(StateStreaming), int32(StateAwaitingFinal)) {
		s.logger.Debug("Session state changed",
			"from", StateStreaming.String(),
			"to", StateAwaitingFinal.String())
	}
}

// Close tears down the underlying connection. Safe to call multiple
// times and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("Connection close error", "error", err)
		}
	})
}

// Run streams the frames and blocks until the session reaches a
// terminal state. On success it returns the accumulated transcript.
func (s *Session) Run(ctx context.Context, frames []audio.Frame) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Deadline)
	defer cancel()

	defer s.Close()

	s.setState(StateStreaming)
	s.logger.Info("Recognition session started",
		"frames", len(frames),
		"deadline", s.config.Deadline)

	g, gctx := errgroup.WithContext(ctx)

	// Closing the connection is the only way to unblock a pending read,
	// so a watchdog does it as soon as the group context ends.
	g.Go(func() error {
		<-gctx.Done()
		s.Close()
		return nil
	})

	g.Go(func() error {
		return s.sendFrames(gctx, frames)
	})

	g.Go(func() error {
		return s.receiveResults(gctx, cancel)
	})

	err := g.Wait()

	if s.State() == StateComplete {
		s.logger.Info("Recognition session complete",
			"transcript_len", len(s.acc.Text()))
		return s.acc.Text(), nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.setState(StateTimedOut)
		s.logger.Warn("Recognition session timed out")
		return "", fmt.Errorf("%w: no final result within %v", ErrDeadline, s.config.Deadline)
	case err != nil:
		var protoErr *ProtocolError
		if errors.As(err, &protoErr) {
			s.setState(StateFailed)
			s.logger.Error("Recognition service rejected session",
				"code", protoErr.Code,
				"message", protoErr.Message)
			return "", err
		}
		s.setState(StateFailed)
		s.logger.Error("Recognition session failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrConnection, err)
	default:
		s.setState(StateFailed)
		return "", fmt.Errorf("%w: session ended without final result", ErrConnection)
	}
}

// sendFrames writes every frame at the configured pace. Send-side
// errors after the context is done are expected teardown noise and are
// not reported.
func (s *Session) sendFrames(ctx context.Context, frames []audio.Frame) error {
	ticker := time.NewTicker(s.config.PacingInterval)
	defer ticker.Stop()

	for _, frame := range frames {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		msg := FrameMessage{
			Common:   CommonParams{AppID: s.config.AppID},
			Business: s.config.Business,
			Data: FramePayload{
				Status:   FrameStatus(frame.Position),
				Format:   s.config.Format,
				Encoding: "raw",
				Audio:    base64.StdEncoding.EncodeToString(frame.Payload),
			},
		}

		if err := s.conn.WriteJSON(msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to send frame %d: %w", frame.Index, err)
		}
	}

	s.markFramesSent()
	s.logger.Debug("All frames sent", "count", len(frames))
	return nil
}

// receiveResults consumes result messages and folds them into the
// accumulator until the final result arrives, then cancels the group to
// stop the sender and watchdog.
func (s *Session) receiveResults(ctx context.Context, cancel context.CancelFunc) error {
	for {
		var msg ResultMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read result: %w", err)
		}

		// A message already in flight when the deadline fires must not
		// be applied.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if msg.Code != 0 {
			return &ProtocolError{Code: msg.Code, Message: msg.Message}
		}

		if msg.Data == nil {
			continue
		}

		final := msg.Data.Final()
		s.acc.Apply(msg.Data.Result, final)

		if final {
			s.setState(StateComplete)
			s.logger.Debug("Final result received", "sid", msg.SID)
			cancel()
			return nil
		}
	}
}
