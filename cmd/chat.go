package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
	"github.com/cyberxz2077/Startup-Hub/internal/logger"
	"github.com/cyberxz2077/Startup-Hub/internal/onboarding"
)

const (
	PromptContinue  = "Continue chatting"
	PromptShowDraft = "Show draft"
	PromptExit      = "Exit"
)

var errChatExit = errors.New("exit requested")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive onboarding conversation in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("role", "r", "project", "onboarding role: profile or project")
}

// chat drives the same conversational field extraction the API serves, but
// against a local terminal. Useful for trying prompts without a client.
func chat(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	role := onboarding.Role(cmd.Flag("role").Value.String())
	if !role.Valid() {
		logger.Fatal("unknown role", zap.String("role", string(role)))
	}

	invoker, err := newInvoker(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai provider", zap.Error(err))
	}

	maxLogLength := 0
	if config.AI != nil && config.AI.Gemini != nil {
		maxLogLength = config.AI.Gemini.MaxLogLength
	}
	assistant := newAssistant(invoker, config.AI, logger, maxLogLength)

	history := []ai.Turn{{Role: ai.RoleModel, Text: role.Welcome()}}
	fmt.Printf("\n< %s\n", role.Welcome())

	var draft draftDocument
	if role == onboarding.RoleProject {
		draft = &onboarding.ProjectDraft{}
	} else {
		draft = &onboarding.ProfileDraft{}
	}

	for {
		if err := chatTurn(ctx, assistant, role, draft, &history); err != nil {
			if errors.Is(err, errChatExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

type draftDocument interface {
	Apply(updates map[string]any) error
}

func chatTurn(ctx context.Context, assistant ai.Assistant, role onboarding.Role, draft draftDocument, history *[]ai.Turn) error {
	input := promptui.Prompt{Label: ">"}

	text, err := input.Run()
	if err != nil {
		return err
	}

	if text == "" {
		return chatMenu(draft)
	}

	reply := assistant.Reply(ctx, role.SystemInstruction(), *history, ai.Content{Text: text})
	fmt.Printf("\n< %s\n", reply.Reply)

	if err := draft.Apply(reply.Updates); err != nil {
		fmt.Printf("! updates could not be applied: %s\n", err)
	}

	*history = append(*history,
		ai.Turn{Role: ai.RoleUser, Text: text},
		ai.Turn{Role: ai.RoleModel, Text: reply.Reply},
	)
	return nil
}

func chatMenu(draft draftDocument) error {
	menu := promptui.Select{
		Label: "What now?",
		Items: []string{PromptContinue, PromptShowDraft, PromptExit},
	}

	_, action, err := menu.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptShowDraft:
		pretty, _ := json.MarshalIndent(draft, "", "  ")
		fmt.Println(string(pretty))
		return nil
	case PromptExit:
		return errChatExit
	default:
		return nil
	}
}
