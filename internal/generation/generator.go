package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SystemInstruction is the fixed system message prepended to every request.
const SystemInstruction = "You are a personal study companion for campus learners. " +
	"You answer questions about coursework, study material and campus life.\n" +
	"Requirements:\n" +
	"1. Be accurate, professional and friendly.\n" +
	"2. When reference material is provided, base the answer on it.\n" +
	"3. When the material is insufficient, you may draw on general knowledge but say so.\n" +
	"4. Keep the answer clearly structured, using short paragraphs and highlights."

// Fallback texts substituted for upstream failures. Callers of ComputeAnswer
// never see a bare error; the conversation degrades to one of these instead.
const (
	FallbackUnavailable = "The AI service is temporarily unavailable, please try again later."
	FallbackTimeout     = "The AI service timed out, please try again later or shorten your question."
	FallbackEmpty       = "The AI service returned an empty response, please try again later."
)

// Prompt carries the question and optional reference context for one request.
type Prompt struct {
	Question string
	Contexts []string
}

// UserMessage renders the user-role message. When no reference context is
// supplied the question is sent bare, with no empty wrapping around it.
func (p Prompt) UserMessage() string {
	if len(p.Contexts) == 0 {
		return p.Question
	}

	var b strings.Builder
	b.WriteString("Answer the question using the following reference material:\n\n")
	for i, c := range p.Contexts {
		fmt.Fprintf(&b, "[Reference %d]\n%s\n\n", i+1, c)
	}
	fmt.Fprintf(&b, "Question: %s\n\n", p.Question)
	b.WriteString("Give a detailed answer based on the material above.")
	return b.String()
}

// Answer is the result of a blocking compute call. When the upstream failed,
// Text holds fallback content and Fallback is set.
type Answer struct {
	Text       string
	Fallback   bool
	TokensUsed int
}

// Fragment is one element of a streamed answer. The sequence is finite and
// terminates with exactly one terminal fragment: either Done is true (normal
// completion) or Err is non-nil (transport failure). A bare channel close
// never signals completion on its own.
type Fragment struct {
	Text string
	Done bool
	Err  error
}

// ModelClient is the capability interface over one remote text-generation
// endpoint. The two operations are deliberately distinct so each contract
// (timeout, return shape) stays independently specified and testable.
type ModelClient interface {
	// ComputeAnswer blocks until the endpoint answers or the timeout
	// elapses. It never returns a bare failure: on timeout or transport
	// error the Answer carries fallback text.
	ComputeAnswer(ctx context.Context, prompt Prompt, timeout time.Duration) Answer

	// StreamAnswer returns a finite fragment sequence for the prompt. The
	// channel is closed after the terminal fragment (Done or Err) has been
	// delivered. The sequence is not restartable.
	StreamAnswer(ctx context.Context, prompt Prompt, timeout time.Duration) <-chan Fragment
}

// FallbackFor maps an upstream error to the user-visible canned text.
func FallbackFor(err error) string {
	if errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return FallbackTimeout
	}
	return FallbackUnavailable
}
