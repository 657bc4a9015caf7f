package chat

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readBufferSize matches the internal buffer of transform.Reader, so a
// single Read hands over everything the decoder produced and never splits
// a rune across two chunks.
const readBufferSize = 4096

// decoder returns a fresh incremental UTF-8 transformer. It holds back an
// incomplete trailing sequence until the rest of it arrives.
func (c *Client) decoder() transform.Transformer {
	if c.strictUTF8 {
		return encoding.UTF8Validator
	}
	return unicode.UTF8.NewDecoder()
}

// consumeStream reads body until EOF and feeds the decoded text into the
// transcript in the order it was received.
func (c *Client) consumeStream(body io.Reader) error {
	r := transform.NewReader(body, c.decoder())
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.appendChunk(string(buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
	}

	c.mu.Lock()
	i, ok := c.transcript.Streaming()
	c.transcript.EndStream()
	c.mu.Unlock()
	if ok {
		c.logger.Debug("stream complete", "user_id", c.userID, "turn", i)
	} else {
		c.logger.Debug("stream complete without text", "user_id", c.userID)
	}
	return nil
}

// appendChunk adds text to the streaming turn, opening it if needed.
// Empty text never opens a turn.
func (c *Client) appendChunk(text string) {
	if text == "" {
		return
	}

	c.mu.Lock()
	c.state = StateStreaming
	i, created := c.transcript.AppendChunk(text)
	c.mu.Unlock()

	if created {
		c.view.TurnAdded(i, Turn{Speaker: SpeakerAssistant, Text: text})
		return
	}
	c.view.TurnExtended(i, text)
}
