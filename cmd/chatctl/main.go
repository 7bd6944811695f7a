// chatctl is a terminal client for the chat backend. It exercises the
// streaming consumer: live token output, Ctrl-C aborts the in-flight turn
// while keeping the partial answer, and the conversation identifier is
// carried across turns.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Geetanshgarg/ai-chat-interface/client"
)

var (
	serverFlag string
	modelFlag  string
	noSaveFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "terminal client for the chat backend",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "start an interactive chat session",
	Example: `  # Chat against a local server
  $ chatctl chat --model llama3:8b

  # Keyboard controls:
  - Enter sends the message
  - Ctrl-C stops the current answer (partial output is kept)
  - /quit exits`,
	RunE: runChat,
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "list saved conversations",
	RunE:  runConversations,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "http://localhost:8080", "chat backend address")
	chatCmd.Flags().StringVar(&modelFlag, "model", "llama3:8b", "model to chat with")
	chatCmd.Flags().BoolVar(&noSaveFlag, "no-save", false, "do not persist the conversation")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(conversationsCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	c := client.New(serverFlag)
	session := client.NewSession(c, modelFlag, !noSaveFlag)

	// Print each new fragment as it streams in
	printed := 0
	session.OnPartial(func(accumulated string) {
		fmt.Print(accumulated[printed:])
		printed = len(accumulated)
	})

	// Ctrl-C aborts the in-flight turn instead of killing the process
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			session.Abort()
		}
	}()
	defer signal.Stop(sigCh)

	fmt.Printf("Chatting with %s at %s (Ctrl-C stops an answer, /quit exits)\n", modelFlag, serverFlag)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			break
		}

		printed = 0
		state, err := session.Send(cmd.Context(), input, nil)
		fmt.Println()
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		case state == client.StateAborted:
			fmt.Println("(stopped)")
		case state == client.StateErrored:
			msgs := session.Messages()
			fmt.Println(msgs[len(msgs)-1].Content)
		}
	}

	if id := session.ConversationID(); id != "" {
		fmt.Printf("conversation saved as %s\n", id)
	}
	return scanner.Err()
}

func runConversations(cmd *cobra.Command, args []string) error {
	c := client.New(serverFlag)
	convos, err := c.ListConversations(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(convos) == 0 {
		fmt.Println("no saved conversations")
		return nil
	}
	for _, convo := range convos {
		fmt.Printf("%s  %-40q  %s  %d messages\n",
			convo.ID, convo.Title, convo.UpdatedAt.Format("2006-01-02 15:04"), len(convo.Messages))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
