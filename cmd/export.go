package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format         string
	outputDir      string
	conversationID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversations to files",
	Long: `Export conversations to various formats (jsonl, md, yaml, json), one file
per conversation.

Use 'synapse list' to see available conversation IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		a.hydrate(ctx)

		convs := a.manager.Conversations()
		if conversationID != "" {
			conv, err := resolveConversation(a, conversationID)
			if err != nil {
				return err
			}
			convs = []internal.Conversation{conv}
		}
		if len(convs) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("No conversations to export"))
			return nil
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		var exported int
		var firstErr error
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d conversation(s) to %s", len(convs), outputDir), func() error {
			for i := range convs {
				path := filepath.Join(outputDir, fmt.Sprintf("conversation_%s.%s", convs[i].ID, exporter.Extension()))
				if err := exportFile(exporter, &convs[i], path); err != nil {
					internal.LogError("Failed to export conversation %s: %v", convs[i].ID, err)
					if firstErr == nil {
						firstErr = &internal.ExportError{Format: format, Path: path, Err: err}
					}
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Export complete: %d conversation(s) exported to %s", exported, outputDir)))
		return firstErr
	},
}

func exportFile(exporter export.Exporter, conv *internal.Conversation, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Export(conv, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&conversationID, "id", "", "Export a specific conversation by ID")
}
