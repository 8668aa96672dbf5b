package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/studycampus/qa-api/internal/generation"
)

// State is the lifecycle position of a relay.
type State int32

// Relay states. OPEN and STREAMING are transient; the other three are
// terminal and mutually exclusive.
const (
	StateOpen State = iota
	StateStreaming
	StateComplete
	StateError
	StateTimeout
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	case StateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Relay errors reported to the orchestrating unit. They never surface to
// the remote caller; the push channel simply ends.
var (
	// ErrTimedOut indicates the watchdog fired before the upstream
	// completion signal arrived. Nothing is persisted in that case.
	ErrTimedOut = errors.New("stream timed out")

	// ErrClientGone indicates the remote caller disconnected mid-stream.
	// Remaining chunks are dropped silently.
	ErrClientGone = errors.New("stream client disconnected")
)

// Chunk is one push-channel record of a streamed answer.
type Chunk struct {
	ID       int     `json:"id"`
	Text     string  `json:"chunk"`
	Done     bool    `json:"done"`
	Progress float64 `json:"progress"`
}

// Config holds the per-relay settings.
type Config struct {
	// Timeout is the watchdog window for the whole streaming session.
	Timeout time.Duration

	// Pace is an optional delay between chunk emissions; zero disables it.
	Pace time.Duration

	// Strategy picks the chunk size; nil selects DefaultChunkStrategy.
	Strategy ChunkStrategy
}

// Relay drives one streaming session. It consumes the upstream fragment
// sequence, assembles the full answer, and emits ordered chunks on its
// output channel. The caller persists the assembled answer only when Run
// reports normal completion.
type Relay struct {
	config Config
	logger *slog.Logger

	out   chan Chunk
	state atomic.Int32
}

// NewRelay creates a Relay in the OPEN state.
func NewRelay(config Config, logger *slog.Logger) *Relay {
	if config.Strategy == nil {
		config.Strategy = DefaultChunkStrategy
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		config: config,
		logger: logger.With(slog.String("component", "stream_relay")),
		out:    make(chan Chunk),
	}
}

// Chunks is the consumer side of the push channel. It is closed once the
// relay reaches a terminal state; the final chunk before the close carries
// Done=true only on normal completion.
func (r *Relay) Chunks() <-chan Chunk {
	return r.out
}

// State returns the relay's current state.
func (r *Relay) State() State {
	return State(r.state.Load())
}

// Run consumes the fragment sequence and forwards chunks until a terminal
// transition. ctx must be the remote caller's request context: its
// cancellation signals a client disconnect, which silently drops the rest
// of the stream. Run returns the fully assembled answer on completion; on
// ErrTimedOut, ErrClientGone or an upstream error the answer must not be
// persisted. The relay cannot be run twice.
func (r *Relay) Run(ctx context.Context, fragments <-chan generation.Fragment) (string, error) {
	if !r.state.CompareAndSwap(int32(StateOpen), int32(StateStreaming)) {
		return "", fmt.Errorf("relay already used (state %s)", r.State())
	}
	defer close(r.out)

	// The watchdog covers the whole session: generation and delivery.
	watchdog := time.NewTimer(r.config.Timeout)
	defer watchdog.Stop()

	answer, err := r.collect(ctx, fragments, watchdog.C)
	if err != nil {
		return "", err
	}

	if err := r.deliver(ctx, answer, watchdog.C); err != nil {
		return "", err
	}

	r.state.Store(int32(StateComplete))
	return answer, nil
}

// collect assembles the upstream fragments into the complete answer,
// watching for transport errors, the watchdog and client disconnect.
func (r *Relay) collect(
	ctx context.Context,
	fragments <-chan generation.Fragment,
	timeout <-chan time.Time,
) (string, error) {
	var assembled []byte
	for {
		select {
		case <-timeout:
			r.state.Store(int32(StateTimeout))
			r.logger.Warn("stream timed out during generation")
			return "", ErrTimedOut

		case <-ctx.Done():
			r.state.Store(int32(StateError))
			r.logger.Info("client disconnected during generation")
			return "", ErrClientGone

		case frag, ok := <-fragments:
			if !ok {
				// A bare close without a completion signal is a
				// transport defect, not normal completion.
				r.state.Store(int32(StateError))
				return "", fmt.Errorf("%w: fragment sequence ended without completion signal", generation.ErrUpstream)
			}
			if frag.Err != nil {
				r.state.Store(int32(StateError))
				r.logger.Error("upstream stream failed", slog.String("error", frag.Err.Error()))
				return "", frag.Err
			}
			if frag.Done {
				return string(assembled), nil
			}
			assembled = append(assembled, frag.Text...)
		}
	}
}

// deliver emits the assembled answer as ordered chunks. Ids increase
// monotonically and the done flag is set on the final chunk only.
func (r *Relay) deliver(ctx context.Context, answer string, timeout <-chan time.Time) error {
	parts := split(answer, r.config.Strategy(len([]rune(answer))))
	if len(parts) == 0 {
		// An empty answer still ends the push channel with a done chunk.
		parts = []string{""}
	}

	total := len([]rune(answer))
	sent := 0
	for i, part := range parts {
		sent += len([]rune(part))
		chunk := Chunk{
			ID:   i,
			Text: part,
			Done: i == len(parts)-1,
		}
		if total > 0 {
			chunk.Progress = float64(sent) / float64(total)
		} else {
			chunk.Progress = 1.0
		}

		select {
		case r.out <- chunk:
		case <-ctx.Done():
			// Remote caller is gone: drop the remainder silently.
			r.state.Store(int32(StateError))
			r.logger.Info("client disconnected mid-stream",
				slog.Int("delivered_chunks", i),
				slog.Int("total_chunks", len(parts)))
			return ErrClientGone
		case <-timeout:
			r.state.Store(int32(StateTimeout))
			r.logger.Warn("stream timed out during delivery",
				slog.Int("delivered_chunks", i))
			return ErrTimedOut
		}

		if r.config.Pace > 0 && !chunk.Done {
			select {
			case <-time.After(r.config.Pace):
			case <-ctx.Done():
				r.state.Store(int32(StateError))
				return ErrClientGone
			}
		}
	}
	return nil
}
