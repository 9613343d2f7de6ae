package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shoptalk/shoptalk/internal/citation"
	"github.com/shoptalk/shoptalk/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a contract question",
	Long: `Ask a contract question. The answer cites the contract documents that
apply to your Local.

Examples:
  shoptalk ask --local 705 "How much notice before a schedule change?"
  shoptalk ask "I'm in Local 89, what's the overtime rate?"
  shoptalk ask --conversation 8f14e45f "And on Sundays?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		local, _ := cmd.Flags().GetInt("local")
		conversationID, _ := cmd.Flags().GetString("conversation")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"question": question}
		if local > 0 {
			body["local"] = local
		}
		if conversationID != "" {
			body["conversation_id"] = conversationID
		}

		resp, err := client.post(cmd.Context(), "/ask", body)
		if err != nil {
			return err
		}

		var result struct {
			ConversationID string              `json:"conversation_id"`
			LocalNumber    int                 `json:"local_number"`
			Scope          []string            `json:"scope"`
			Footnoted      string              `json:"footnoted"`
			Citations      []citation.Citation `json:"citations"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Footnoted)

		if result.LocalNumber > 0 {
			printStatus("Local", "%d (searched: %s)", result.LocalNumber, strings.Join(result.Scope, ", "))
		} else {
			printStatus("Local", "unknown (searched the master agreement only; pass --local for your supplement)")
		}
		printStatus("Conversation", "%s", result.ConversationID)
		return nil
	},
}

func init() {
	askCmd.Flags().Int("local", 0, "your union Local number")
	askCmd.Flags().String("conversation", "", "continue an existing conversation")
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a contract document",
	Long: `Ingest a contract document into the search index.

The --id flag names the contract document the text belongs to, e.g. master,
western, central, local-705, louisville-air.

Examples:
  shoptalk ingest --id master --file ./national-master-2023.pdf
  shoptalk ingest --id local-705 --file ./local705.txt
  shoptalk ingest --id sort-rider --text "ARTICLE 1 ..." --title "Sort Rider"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		file, _ := cmd.Flags().GetString("file")
		text, _ := cmd.Flags().GetString("text")
		title, _ := cmd.Flags().GetString("title")

		if id == "" {
			return fmt.Errorf("--id is required")
		}
		if file == "" && text == "" {
			return fmt.Errorf("one of --file or --text is required")
		}

		req := map[string]any{"id": id}
		if title != "" {
			req["title"] = title
		}
		if file != "" {
			// The server reads the file; send an absolute path so its
			// working directory doesn't matter.
			abs, err := filepath.Abs(file)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			req["path"] = abs
		}
		if text != "" {
			req["text"] = text
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/documents", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Queued document %s for ingestion", result["id"])
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("id", "", "contract document ID (e.g. master, western, local-705)")
	ingestCmd.Flags().String("file", "", "path to a PDF, HTML, or text file")
	ingestCmd.Flags().String("text", "", "inline contract text")
	ingestCmd.Flags().String("title", "", "document title")
}

// --- documents ---

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested contract documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/documents")
		if err != nil {
			return err
		}

		var docs []struct {
			ID         string
			Title      string
			Status     string
			PageCount  int
			ChunkCount int
			LastError  string
		}
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No documents ingested yet. Use: shoptalk ingest --id master --file <path>")
			return nil
		}

		for _, d := range docs {
			line := fmt.Sprintf("%s  %s  %d pages, %d chunks",
				colorize(colorBold, d.ID), d.Status, d.PageCount, d.ChunkCount)
			fmt.Println(line)
			if d.Status == "failed" && d.LastError != "" {
				fmt.Printf("  %s\n", colorize(colorRed, d.LastError))
			}
		}
		return nil
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an ingested document and its search index entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted document %s", args[0])
		return nil
	},
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
}

// --- locals ---

var localsCmd = &cobra.Command{
	Use:   "locals",
	Short: "Look up union Locals",
}

var localsShowCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show which contract documents apply to a Local",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid local number: %q", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/locals/%d/documents", number))
		if err != nil {
			return err
		}

		var result struct {
			Local      int
			Registered bool
			Name       string
			Region     string
			Documents  []struct {
				ID        string
				Name      string
				ShortName string
				Type      string
			}
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Registered {
			fmt.Printf("%s (%s region)\n", colorize(colorBold, result.Name), result.Region)
		} else {
			printWarning("Local %d is not in the registry; only the master agreement applies until it is added.", number)
		}
		for _, d := range result.Documents {
			fmt.Printf("  %-18s %s (%s)\n", d.ID, d.Name, d.Type)
		}
		return nil
	},
}

func init() {
	localsCmd.AddCommand(localsShowCmd)
}

// --- conversations ---

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Manage conversation history",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/conversations?limit=%d", limit))
		if err != nil {
			return err
		}

		var conversations []struct {
			ID          string
			LocalNumber int
			Title       string
			UpdatedAt   string
		}
		if err := decodeJSON(resp, &conversations); err != nil {
			return err
		}

		if len(conversations) == 0 {
			fmt.Println("No conversations yet.")
			return nil
		}

		for _, c := range conversations {
			title := c.Title
			if len(title) > 60 {
				title = title[:60] + "..."
			}
			local := "—"
			if c.LocalNumber > 0 {
				local = fmt.Sprintf("Local %d", c.LocalNumber)
			}
			fmt.Printf("%s  %-10s  %s\n", colorize(colorCyan, c.ID[:8]), local, title)
		}
		return nil
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/conversations/"+args[0]+"/messages")
		if err != nil {
			return err
		}

		var messages []struct {
			Role      string
			Content   string
			Citations string
		}
		if err := decodeJSON(resp, &messages); err != nil {
			return err
		}

		for _, m := range messages {
			fmt.Printf("\n%s\n%s\n", colorize(colorBold, "["+m.Role+"]"), m.Content)
			for _, c := range citation.Extract(m.Content) {
				fmt.Printf("  %s\n", citation.Format(c, citation.StyleFull))
			}
		}
		return nil
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/conversations/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted conversation %s", args[0])
		return nil
	},
}

func init() {
	conversationsListCmd.Flags().Int("limit", 20, "maximum number of conversations to list")
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
