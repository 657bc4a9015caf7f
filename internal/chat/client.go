package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/inercia/chatterm/internal/logging"
)

const (
	// DefaultUserID is the identifier sent when none is configured.
	DefaultUserID = "test-user-001"

	// DefaultErrorMessage is the text of the error turn shown for any failed exchange.
	DefaultErrorMessage = "An error occurred while receiving the response. Check the log for details."
)

// ErrBusy is returned by Submit while another exchange is in flight.
var ErrBusy = errors.New("a message is already being sent")

// Sender delivers one message and returns the open response body.
// A non-success answer must be returned as an error, not as a body.
type Sender interface {
	Send(ctx context.Context, userID, message string) (io.ReadCloser, error)
}

// State is the lifecycle of a single exchange.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateSending waits for the response headers.
	StateSending
	// StateStreaming receives the response body.
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Client runs the exchanges of one chat session and owns its transcript.
// Only one exchange is in flight at a time; Submit refuses a second one.
// Client is safe for concurrent use.
type Client struct {
	sender       Sender
	userID       string
	errorMessage string
	strictUTF8   bool
	view         View
	logger       *slog.Logger

	mu         sync.Mutex
	state      State
	transcript *Transcript
}

// Option configures a Client.
type Option func(*Client)

// WithUserID sets the identifier sent with every message of the session.
func WithUserID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.userID = id
		}
	}
}

// WithErrorMessage sets the fixed text of error turns.
func WithErrorMessage(msg string) Option {
	return func(c *Client) {
		if msg != "" {
			c.errorMessage = msg
		}
	}
}

// WithView sets the view notified of transcript changes.
func WithView(v View) Option {
	return func(c *Client) {
		if v != nil {
			c.view = v
		}
	}
}

// WithLogger sets the logger receiving exchange diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStrictUTF8 makes invalid UTF-8 in a response a stream error instead
// of being replaced by U+FFFD.
func WithStrictUTF8(strict bool) Option {
	return func(c *Client) {
		c.strictUTF8 = strict
	}
}

// New creates a Client sending messages through sender.
func New(sender Sender, opts ...Option) *Client {
	c := &Client{
		sender:       sender,
		userID:       DefaultUserID,
		errorMessage: DefaultErrorMessage,
		view:         nopView{},
		transcript:   NewTranscript(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Chat()
	}
	return c
}

// UserID returns the identifier sent with every message.
func (c *Client) UserID() string {
	return c.userID
}

// State returns the current exchange state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether submission is currently disabled.
func (c *Client) Busy() bool {
	return c.State() != StateIdle
}

// Turns returns a snapshot of the transcript.
func (c *Client) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Turns()
}

// Submit sends input as a new user turn and streams the answer into the
// transcript. Input is trimmed; blank input is ignored and returns nil.
//
// Any failure of the exchange is recorded as a single error turn before
// Submit returns it. Whatever happens, the client is idle again and the
// view re-enabled when Submit returns.
func (c *Client) Submit(ctx context.Context, input string) error {
	message := strings.TrimSpace(input)
	if message == "" {
		return nil
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateSending
	i := c.transcript.Append(SpeakerUser, message)
	c.mu.Unlock()

	c.view.TurnAdded(i, Turn{Speaker: SpeakerUser, Text: message})
	c.view.SetBusy(true)
	defer c.release()

	c.logger.Debug("sending message", "user_id", c.userID, "length", len(message))
	if err := c.exchange(ctx, message); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

func (c *Client) exchange(ctx context.Context, message string) error {
	body, err := c.dispatch(ctx, message)
	if err != nil {
		return err
	}
	defer body.Close()
	return c.consumeStream(body)
}

func (c *Client) dispatch(ctx context.Context, message string) (io.ReadCloser, error) {
	body, err := c.sender.Send(ctx, c.userID, message)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return body, nil
}

// release returns the client to idle after an exchange.
func (c *Client) release() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.view.SetBusy(false)
}

// fail records err as an error turn. A partially streamed turn is left as it is.
func (c *Client) fail(err error) {
	c.mu.Lock()
	partial, streaming := c.transcript.Streaming()
	c.transcript.EndStream()
	i := c.transcript.Append(SpeakerError, c.errorMessage)
	c.mu.Unlock()

	if streaming {
		c.logger.Error("exchange failed while streaming", "user_id", c.userID, "partial_turn", partial, "error", err)
	} else {
		c.logger.Error("exchange failed", "user_id", c.userID, "error", err)
	}
	c.view.TurnAdded(i, Turn{Speaker: SpeakerError, Text: c.errorMessage})
}
