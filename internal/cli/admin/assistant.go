package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/legacy-decks/deckhand/internal/config"
	"github.com/legacy-decks/deckhand/internal/database"
	"github.com/legacy-decks/deckhand/internal/repository"
	"github.com/legacy-decks/deckhand/internal/service"
)

func AssistantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Manage assistants",
		Long:  "Create, list, and delete assistants",
	}

	cmd.AddCommand(AssistantCreateCmd())
	cmd.AddCommand(AssistantListCmd())
	cmd.AddCommand(AssistantDeleteCmd())

	return cmd
}

func AssistantCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new assistant",
		Long:  "Create a new assistant with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE:  runAssistantCreate,
	}

	cmd.Flags().String("id", "", "Assistant ID slug (defaults to a generated UUID)")
	cmd.Flags().String("prompt", "", "Base system prompt")
	cmd.Flags().String("contact", "", "Contact name offered when knowledge has no answer")
	cmd.Flags().Bool("no-knowledge", false, "Disable knowledge retrieval for chat")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runAssistantCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	id, _ := cmd.Flags().GetString("id")
	prompt, _ := cmd.Flags().GetString("prompt")
	contact, _ := cmd.Flags().GetString("contact")
	noKnowledge, _ := cmd.Flags().GetBool("no-knowledge")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	assistantSvc := service.NewAssistantService(repository.NewAssistantRepository(pool))

	assistant, err := assistantSvc.Create(ctx, service.CreateAssistantInput{
		ID:               id,
		Name:             name,
		SystemPrompt:     prompt,
		ContactName:      contact,
		KnowledgeEnabled: !noKnowledge,
	})
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":                assistant.ID,
			"name":              assistant.Name,
			"knowledge_enabled": assistant.KnowledgeEnabled,
			"created_at":        assistant.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Assistant created: %s (%s)\n", assistant.Name, assistant.ID)
	}

	return nil
}

func AssistantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all assistants",
		Long:  "List all assistants in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAssistantList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runAssistantList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	assistantSvc := service.NewAssistantService(repository.NewAssistantRepository(pool))

	assistants, err := assistantSvc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list assistants: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(assistants))
		for i, a := range assistants {
			data[i] = map[string]interface{}{
				"id":                a.ID,
				"name":              a.Name,
				"knowledge_enabled": a.KnowledgeEnabled,
				"created_at":        a.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(assistants) == 0 {
			fmt.Println("No assistants found")
			return nil
		}
		fmt.Println("Assistants:")
		for _, a := range assistants {
			knowledge := "knowledge on"
			if !a.KnowledgeEnabled {
				knowledge = "knowledge off"
			}
			fmt.Printf("  %s: %s (%s, created: %s)\n", a.ID, a.Name, knowledge, a.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func AssistantDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an assistant",
		Long:  "Delete an assistant by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runAssistantDelete,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runAssistantDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	assistantSvc := service.NewAssistantService(repository.NewAssistantRepository(pool))

	if err := assistantSvc.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assistant: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":      id,
			"deleted": true,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Assistant %s deleted\n", id)
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.Connect(ctx, cfg.DatabaseURL)
}
