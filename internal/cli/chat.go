package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/campusdesk/internal/client"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	chatWindow    int
	chatShowUsage bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the College Guide assistant",
	Long: `Talk to the College Guide assistant.

With a message argument, sends a single question and prints the reply.
Without one, starts an interactive session that keeps the most recent turns
as context. Type /reset to forget the conversation and /exit to leave.

Examples:
  campusdesk chat "When do exam registrations close?"
  campusdesk chat
  campusdesk chat --usage`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVar(&chatWindow, "window", models.DefaultHistoryWindow, "number of turns kept as context")
	chatCmd.Flags().BoolVar(&chatShowUsage, "usage", false, "print token usage after each reply")
}

// Theme holds the color scheme for the chat session.
type Theme struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:      lipgloss.Color("#5FAFD7"), // light blue
	Assistant: lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// chatSession drives one conversation. Styling and prompts are only applied
// when the session is attached to a terminal.
type chatSession struct {
	client      *client.Client
	history     *models.History
	theme       Theme
	in          io.Reader
	out         io.Writer
	interactive bool
	showUsage   bool
}

// historyWindow caps the requested window at the server's history limit.
// A non-positive limit means unknown and leaves the request alone.
func historyWindow(requested, serverMax int) (int, bool) {
	if serverMax > 0 && requested > serverMax {
		return serverMax, true
	}
	return requested, false
}

func runChat(cmd *cobra.Command, args []string) error {
	window, capped := historyWindow(chatWindow, cfg.Chat.MaxHistory)
	if capped {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: --window %d exceeds the server limit, using %d\n", chatWindow, window)
	}

	s := &chatSession{
		client:      apiClient,
		history:     models.NewHistory(window),
		theme:       defaultTheme,
		in:          cmd.InOrStdin(),
		out:         cmd.OutOrStdout(),
		interactive: isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()),
		showUsage:   chatShowUsage,
	}

	if len(args) > 0 {
		return s.send(cmd, strings.Join(args, " "))
	}
	return s.run(cmd)
}

// run reads one message per line until EOF or /exit.
func (s *chatSession) run(cmd *cobra.Command) error {
	s.hint("College Guide assistant. /reset clears the conversation, /exit quits.")

	scanner := bufio.NewScanner(s.in)
	for {
		s.prompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			s.history.Reset()
			s.hint("Conversation cleared.")
			continue
		}

		if err := s.send(cmd, line); err != nil {
			// Keep the session alive; the failed exchange is not added to history.
			fmt.Fprintln(s.out, s.style(s.theme.errorStyle(), "Error: "+err.Error()))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (s *chatSession) send(cmd *cobra.Command, message string) error {
	reply, err := s.client.SendMessage(cmd.Context(), message, s.history.Turns())
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	s.history.Append(message, reply.Reply)

	fmt.Fprintln(s.out, s.style(s.theme.assistantStyle(), reply.Reply))
	if s.showUsage && reply.Usage != nil {
		s.hint(fmt.Sprintf("tokens: %d prompt, %d completion, %d total",
			reply.Usage.PromptTokens, reply.Usage.CompletionTokens, reply.Usage.TotalTokens))
	}
	return nil
}

func (s *chatSession) prompt() {
	if s.interactive {
		fmt.Fprint(s.out, s.theme.userStyle().Render("you> "))
	}
}

func (s *chatSession) hint(msg string) {
	if s.interactive || verbose {
		fmt.Fprintln(s.out, s.style(s.theme.hintStyle(), msg))
	}
}

func (s *chatSession) style(st lipgloss.Style, text string) string {
	if !s.interactive {
		return text
	}
	return st.Render(text)
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
