// Package chat holds the conversation state of a chatterm session: the
// ordered transcript of turns and the client that appends to it while a
// response is being streamed.
package chat

// Speaker identifies who a turn is attributed to.
type Speaker string

const (
	// SpeakerUser is a message typed by the user.
	SpeakerUser Speaker = "user"
	// SpeakerAssistant is a (possibly still streaming) response from the endpoint.
	SpeakerAssistant Speaker = "assistant"
	// SpeakerError is a failed exchange.
	SpeakerError Speaker = "error"
)

// Turn is one rendered message of the transcript.
type Turn struct {
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
}

// noStream marks the streaming handle as unset.
const noStream = -1

// Transcript is the append-only list of turns, newest last.
//
// The only turn that can change after being appended is the streaming
// target, referenced by index rather than by any rendered node. While the
// handle is set it always points at the last turn, which is an assistant
// turn. Transcript is not safe for concurrent use; Client serializes access.
type Transcript struct {
	turns     []Turn
	streaming int
}

// NewTranscript returns an empty transcript with no streaming target.
func NewTranscript() *Transcript {
	return &Transcript{streaming: noStream}
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of all turns in order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Turn returns the turn at index i.
func (t *Transcript) Turn(i int) (Turn, bool) {
	if i < 0 || i >= len(t.turns) {
		return Turn{}, false
	}
	return t.turns[i], true
}

// Append adds a finished turn and returns its index.
// Any open stream is closed first so the handle never trails the last turn.
func (t *Transcript) Append(speaker Speaker, text string) int {
	t.streaming = noStream
	t.turns = append(t.turns, Turn{Speaker: speaker, Text: text})
	return len(t.turns) - 1
}

// Streaming returns the index of the streaming target, if any.
func (t *Transcript) Streaming() (int, bool) {
	if t.streaming == noStream {
		return 0, false
	}
	return t.streaming, true
}

// AppendChunk adds streamed text. The first chunk of a stream opens a new
// assistant turn seeded with it, later chunks extend that turn in place.
// It reports the index of the target and whether the turn was just created.
func (t *Transcript) AppendChunk(text string) (index int, created bool) {
	if t.streaming == noStream {
		t.turns = append(t.turns, Turn{Speaker: SpeakerAssistant, Text: text})
		t.streaming = len(t.turns) - 1
		return t.streaming, true
	}
	t.turns[t.streaming].Text += text
	return t.streaming, false
}

// EndStream clears the streaming handle. The former target keeps whatever
// text it received and becomes immutable.
func (t *Transcript) EndStream() {
	t.streaming = noStream
}
