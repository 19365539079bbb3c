package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/services"
)

var (
	chatTopK int
	chatMode string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question session with conversation memory",
	Long: `Starts an interactive session. Recent exchanges are carried as
conversation context within a token budget; older exchanges are evicted
first. Type 'help' inside the session for commands.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&chatTopK, "k", "k", 0, "number of fragments to retrieve per question")
	chatCmd.Flags().StringVar(&chatMode, "mode", "", "response mode: compact or tree_summarize")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	opts, err := queryOptions(chatTopK, chatMode)
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	session := services.NewChatSession(eng.queries, settings.Query.MemoryBudget)

	cmd.Println(styleHeading.Render("corpora chat"))
	cmd.Printf("Session %s. Type 'help' for commands, 'quit' to leave.\n\n", session.SessionID())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "quit" || line == "exit":
			return nil

		case line == "help":
			printChatHelp(cmd)

		case line == "stats":
			printChatStats(cmd, session)

		case line == "history":
			printChatHistory(cmd, session)

		case line == "save" || strings.HasPrefix(line, "save "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "save"))
			if path == "" {
				path = fmt.Sprintf("session_%s.json", session.SessionID())
			}
			if err := saveTranscript(session, path); err != nil {
				cmd.Println(styleFail.Render(fmt.Sprintf("save failed: %v", err)))
			} else {
				cmd.Printf("Transcript saved to %s\n", path)
			}

		default:
			answer, err := session.Chat(context.Background(), line, opts)
			if err != nil {
				// Interactive sessions report and continue.
				cmd.Println(styleFail.Render(fmt.Sprintf("error: %v", err)))
				continue
			}
			cmd.Println()
			outputAnswer(cmd, answer)
			cmd.Println()
		}
	}
	return scanner.Err()
}

func printChatHelp(cmd *cobra.Command) {
	cmd.Println("Commands:")
	cmd.Println("  help          show this help")
	cmd.Println("  stats         show session statistics")
	cmd.Println("  history       show the conversation so far")
	cmd.Println("  save [path]   save the transcript as JSON")
	cmd.Println("  quit          end the session")
	cmd.Println("Anything else is asked against the indexed corpus.")
}

func printChatStats(cmd *cobra.Command, session *services.ChatSession) {
	transcript := session.Transcript()
	cmd.Printf("Session:    %s\n", transcript.SessionID)
	cmd.Printf("Started:    %s\n", transcript.StartedAt.Format("15:04:05"))
	cmd.Printf("Exchanges:  %d\n", len(transcript.Turns)/2)
	cmd.Printf("Memory:     %d tokens in budget window\n", session.TokensInMemory())
}

func printChatHistory(cmd *cobra.Command, session *services.ChatSession) {
	transcript := session.Transcript()
	if len(transcript.Turns) == 0 {
		cmd.Println("No exchanges yet.")
		return
	}
	for _, turn := range transcript.Turns {
		label := "you"
		if turn.Role == domain.RoleAssistant {
			label = "corpora"
		}
		cmd.Printf("%s %s\n", styleFaint.Render(label+":"), turn.Content)
	}
}

func saveTranscript(session *services.ChatSession, path string) error {
	data, err := json.MarshalIndent(session.Transcript(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
