package main

import (
	"errors"
	"fmt"

	"chat_ingest/internal/catalog"
	"chat_ingest/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHistoryCommand() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history --db <catalog.db> [--digest <blake3>]",
		Short: "List imports recorded in the SQLite catalog, optionally only those holding an attachment digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, _ := cmd.Flags().GetString("digest")
			return withCatalog(func(db *catalog.DB) error {
				lines, listErr := historyLines(db, digest)
				if listErr != nil {
					return listErr
				}
				for _, line := range lines {
					utils.PrintLine(line)
				}
				return nil
			})
		},
	}
	historyCmd.Flags().String("digest", "", "Only list imports holding an attachment with this content digest")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "delete <import-id>",
		Short: "Remove an import and its messages, participants and attachments from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(db *catalog.DB) error {
				line, deleteErr := deleteImport(db, args[0])
				if deleteErr != nil {
					return deleteErr
				}
				utils.PrintLine(line)
				return nil
			})
		},
	})
	return historyCmd
}

func withCatalog(run func(db *catalog.DB) error) error {
	dbPath := viper.GetString("db")
	if dbPath == "" {
		return errors.New("missing required flag: --db")
	}
	db, openErr := catalog.OpenDB(dbPath)
	if openErr != nil {
		return openErr
	}
	defer db.Close()
	return run(db)
}

func historyLines(db *catalog.DB, digest string) ([]string, error) {
	imports, listErr := db.ListImports()
	if listErr != nil {
		return nil, fmt.Errorf("list imports: %w", listErr)
	}
	var keep map[string]struct{}
	if digest != "" {
		ids, digestErr := db.ImportsWithDigest(utils.ToLowerTrim(digest))
		if digestErr != nil {
			return nil, fmt.Errorf("look up digest: %w", digestErr)
		}
		keep = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			keep[id] = struct{}{}
		}
	}

	lines := make([]string, 0, len(imports))
	for _, row := range imports {
		if keep != nil {
			if _, ok := keep[row.ImportID]; !ok {
				continue
			}
		}
		lines = append(lines, formatHistoryRow(row))
	}
	return lines, nil
}

func deleteImport(db *catalog.DB, importID string) (string, error) {
	messageCount, countErr := db.MessageCount(importID)
	if countErr != nil {
		return "", fmt.Errorf("count messages: %w", countErr)
	}
	removed, deleteErr := db.DeleteImport(importID)
	if deleteErr != nil {
		return "", fmt.Errorf("delete import %q: %w", importID, deleteErr)
	}
	if !removed {
		return "", fmt.Errorf("import %q not found in catalog", importID)
	}
	return fmt.Sprintf("deleted %s\t%d messages", importID, messageCount), nil
}

func formatHistoryRow(row catalog.ImportRow) string {
	return fmt.Sprintf("%s\t%s\t%s\t%d messages\t%s",
		row.ImportID, row.ImportedAt, row.Source, row.MessageCount, utils.StringsJoinComma(row.Participants))
}
