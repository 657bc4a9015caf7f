package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/inercia/chatterm/internal/chat"
)

const (
	userLabel      = "You: "
	assistantLabel = "Assistant: "
	errorLabel     = "❌ "
)

// termView renders transcript changes on a terminal. Streaming chunks are
// written as they arrive; the assistant line is closed when the exchange ends.
type termView struct {
	mu       sync.Mutex
	out      io.Writer
	echoUser bool
	// lineOpen is set while the cursor sits after unterminated output.
	lineOpen bool
}

func newTermView(out io.Writer, echoUser bool) *termView {
	return &termView{out: out, echoUser: echoUser}
}

func (v *termView) TurnAdded(_ int, turn chat.Turn) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch turn.Speaker {
	case chat.SpeakerUser:
		if v.echoUser {
			v.endLine()
			fmt.Fprintln(v.out, userLabel+turn.Text)
		}
	case chat.SpeakerAssistant:
		v.endLine()
		v.write(assistantLabel + turn.Text)
	case chat.SpeakerError:
		v.endLine()
		fmt.Fprintln(v.out, errorLabel+turn.Text)
	}
}

func (v *termView) TurnExtended(_ int, chunk string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.write(chunk)
}

func (v *termView) SetBusy(busy bool) {
	if busy {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endLine()
}

func (v *termView) write(s string) {
	if s == "" {
		return
	}
	io.WriteString(v.out, s)
	v.lineOpen = !strings.HasSuffix(s, "\n")
}

func (v *termView) endLine() {
	if v.lineOpen {
		io.WriteString(v.out, "\n")
		v.lineOpen = false
	}
}

// printTranscript writes every turn with its speaker label.
func printTranscript(out io.Writer, turns []chat.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(out, "(no messages yet)")
		return
	}
	for _, turn := range turns {
		text := strings.TrimRight(turn.Text, "\n")
		switch turn.Speaker {
		case chat.SpeakerUser:
			fmt.Fprintln(out, userLabel+text)
		case chat.SpeakerAssistant:
			fmt.Fprintln(out, assistantLabel+text)
		default:
			fmt.Fprintln(out, errorLabel+text)
		}
	}
}
