package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/reeflective/readline"
	"github.com/spf13/cobra"

	"github.com/inercia/chatterm/internal/chat"
	"github.com/inercia/chatterm/internal/config"
	"github.com/inercia/chatterm/internal/logging"
	"github.com/inercia/chatterm/internal/transport"
)

var (
	// Chat-specific flags
	oncePrompt string
)

func init() {
	rootCmd.Flags().StringVar(&oncePrompt, "once", "", "Send a single message, print the answer and exit (non-interactive mode)")
}

// session ties a chat client to the terminal it renders on.
type session struct {
	client   *chat.Client
	endpoint string
	prompt   string
	out      io.Writer
}

// newSession wires the HTTP transport and the terminal view into a chat client.
// User turns are echoed only when echoUser is set; interactively the user
// already sees what they typed.
func newSession(c *config.Config, out io.Writer, echoUser bool) *session {
	sender := transport.New(c.Endpoint,
		transport.WithTimeout(c.Timeout),
		transport.WithLogger(logging.WithUser(logging.Transport(), c.UserID)))

	client := chat.New(sender,
		chat.WithUserID(c.UserID),
		chat.WithErrorMessage(c.ErrorMessage),
		chat.WithStrictUTF8(c.StrictUTF8),
		chat.WithView(newTermView(out, echoUser)),
		chat.WithLogger(logging.Chat()))

	return &session{
		client:   client,
		endpoint: c.Endpoint,
		prompt:   c.Prompt,
		out:      out,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	isOnceMode := oncePrompt != ""

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			if !isOnceMode {
				fmt.Fprintln(cmd.OutOrStdout(), "\n\n👋 Shutting down...")
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	s := newSession(cfg, cmd.OutOrStdout(), isOnceMode)
	logging.CLI().Info("chat session started",
		"endpoint", cfg.Endpoint,
		"user_id", cfg.UserID,
		"once", isOnceMode)

	if isOnceMode {
		return runOnceMode(ctx, s, oncePrompt)
	}
	return runInteractiveLoop(ctx, s)
}

// runOnceMode sends a single message and returns once the answer is complete.
// A failed exchange is reported as an error so the process exits non-zero.
func runOnceMode(ctx context.Context, s *session, message string) error {
	if strings.TrimSpace(message) == "" {
		return errors.New("--once needs a non-blank message")
	}
	if err := s.client.Submit(ctx, message); err != nil {
		return fmt.Errorf("exchange failed: %w", err)
	}
	return nil
}

func runInteractiveLoop(ctx context.Context, s *session) error {
	// Create readline shell
	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return s.prompt })

	// Set up history
	history := readline.NewInMemoryHistory()
	rl.History.Add("default", history)

	// Set up tab completion for slash commands
	rl.Completer = func(line []rune, cursor int) readline.Completions {
		return completeInput(string(line), cursor)
	}

	fmt.Fprintln(s.out, "📝 Type your message and press Enter. Use /help for commands. Tab completes commands.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// The prompt only comes back once the previous exchange has finished,
		// so a second message can never be sent while one is in flight.
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				fmt.Fprintln(s.out, "\n👋 Goodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Check for commands
		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(s, line); quit {
				return nil
			}
			continue
		}

		// Failures already show up as an error turn and in the log.
		if err := s.client.Submit(ctx, line); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// slashCommand is a command typed at the prompt.
type slashCommand struct {
	name        string
	description string
}

// slashCommands defines the available slash commands with their descriptions.
var slashCommands = []slashCommand{
	{"/help", "Show available commands"},
	{"/h", "Show available commands (alias)"},
	{"/?", "Show available commands (alias)"},
	{"/quit", "Exit chatterm"},
	{"/exit", "Exit chatterm (alias)"},
	{"/q", "Exit chatterm (alias)"},
	{"/transcript", "Print the conversation so far"},
	{"/whoami", "Show the user id and endpoint"},
}

// handleCommand runs a slash command and reports whether the session should end.
func handleCommand(s *session, line string) bool {
	cmd := strings.ToLower(strings.TrimPrefix(line, "/"))
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		fmt.Fprintln(s.out, "❓ Empty command (use /help for available commands)")
		return false
	}

	switch parts[0] {
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "👋 Goodbye!")
		return true
	case "help", "h", "?":
		printHelp(s.out)
	case "transcript":
		printTranscript(s.out, s.client.Turns())
	case "whoami":
		fmt.Fprintf(s.out, "user id:  %s\nendpoint: %s\n", s.client.UserID(), s.endpoint)
	default:
		fmt.Fprintf(s.out, "❓ Unknown command: %s (use /help for available commands)\n", parts[0])
	}
	return false
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Available commands:
  /quit, /exit, /q  - Exit chatterm
  /transcript       - Print the conversation so far
  /whoami           - Show the user id and endpoint
  /help, /h, /?     - Show this help message

Tips:
  - Type your message and press Enter to send it
  - The prompt comes back when the answer is complete
  - Use Ctrl+C or Ctrl+D to exit
  - Use up/down arrows for message history
  - Use Tab to autocomplete slash commands`)
}

// matchCommands returns the slash commands starting with prefix, in definition order.
func matchCommands(prefix string) []slashCommand {
	var matches []slashCommand
	for _, cmd := range slashCommands {
		if strings.HasPrefix(cmd.name, prefix) {
			matches = append(matches, cmd)
		}
	}
	return matches
}

// completeInput provides tab completion for the chat input.
// It completes slash commands when the input starts with "/".
func completeInput(line string, cursor int) readline.Completions {
	// Get the text up to the cursor position
	if cursor > len(line) {
		cursor = len(line)
	}
	text := line[:cursor]

	// Only complete if the line starts with "/"
	if !strings.HasPrefix(text, "/") {
		return readline.Completions{}
	}

	matches := matchCommands(text)
	if len(matches) == 0 {
		return readline.Completions{}
	}

	// Format: value1, desc1, value2, desc2, ...
	pairs := make([]string, 0, len(matches)*2)
	for _, match := range matches {
		pairs = append(pairs, match.name, match.description)
	}

	return readline.CompleteValuesDescribed(pairs...).
		Tag("commands").
		NoSpace('/') // Don't add space after completing partial command
}
