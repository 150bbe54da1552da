package cli

import (
	"bufio"
	"fmt"
	"strings"

	"resumeforensics/internal/ai"
	"resumeforensics/internal/config"
	"resumeforensics/internal/types"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the career assistant about resumes and interviews",
	Long: `Ask the career assistant a single question, or start an interactive
conversation when no message is given. Type "exit" or "quit" to leave.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	chatConfig := cfg.GetChatConfig()
	assistant, err := ai.NewService(&chatConfig, config.OperationChat, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		reply, err := assistant.Chat(ctx, types.ChatInput{Message: strings.Join(args, " ")})
		if err != nil {
			return userError(err)
		}
		fmt.Fprintln(out, reply)
		return nil
	}

	var history []types.ChatTurn
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		message := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(message) {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := assistant.Chat(ctx, types.ChatInput{Message: message, History: history})
		if err != nil {
			logger.LogError(err, "Chat request failed")
			fmt.Fprintln(out, "I'm sorry, I couldn't process that request.")
		} else {
			fmt.Fprintln(out, reply)
			history = append(history,
				types.ChatTurn{Role: types.ChatRoleUser, Text: message},
				types.ChatTurn{Role: types.ChatRoleModel, Text: reply})
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
