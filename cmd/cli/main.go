package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"chat_ingest/internal/catalog"
	"chat_ingest/internal/filters"
	"chat_ingest/internal/ingest"
	"chat_ingest/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	rootCmd := newRootCommand(filepath.Base(os.Args[0]))

	// Support -mt shorthand → --media-type
	rootCmd.SetArgs(utils.NormalizeMTShorthand(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(baseName string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   baseName + " -f <chat_export.zip> [-o <output_folder>] [--format json|yaml|cbor] [-p <pattern> ...] [-s <sender> ...] [-mt image,pdf] [--db catalog.db]",
		Short: "Import a chat export ZIP: parse the transcript, resolve attachments, and write or catalog the conversation",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetString("file") == "" {
				return errors.New("missing required flag: -f, --file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, settingsErr := loadSettings()
			if settingsErr != nil {
				return settingsErr
			}
			logger, loggerErr := newLogger(settings.LogLevel)
			if loggerErr != nil {
				return fmt.Errorf("init logger: %w", loggerErr)
			}
			defer logger.Sync()
			return runImport(cmd.Context(), settings, logger)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Optional config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite catalog to record the import in")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.Flags().StringP("file", "f", "", "Path to the chat export ZIP archive (required)")
	rootCmd.Flags().StringP("output", "o", "", "Output folder; when empty only a summary is printed")
	rootCmd.Flags().String("format", utils.FormatJSON, "Conversation file format: json, yaml or cbor")
	rootCmd.Flags().String("primary", "", "Participant whose messages are shown as outgoing")
	rootCmd.Flags().String("timezone", "", "IANA time zone the export was written in (default: local)")
	rootCmd.Flags().Int("workers", 4, "Attachments classified in parallel")
	rootCmd.Flags().Duration("transcode-timeout", defaultTranscodeTimeout, "Time limit for converting one HEIC image")
	rootCmd.Flags().StringSliceP("pattern", "p", nil,
		"Case-insensitive search terms or raw regexes; repeat -p to AND multiple patterns (all must match)")
	rootCmd.Flags().StringSliceP("sender", "s", nil,
		"Keep messages from ANY of these senders (comma-separated or repeated flag)")
	rootCmd.Flags().StringSlice("media-type", nil,
		"Keep messages with ANY of these attachment kinds: image, video, audio, pdf, vcard, text, unknown. Example: -mt image,pdf")

	for _, key := range []string{"config", "db", "log-level"} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
	for _, key := range []string{"file", "output", "format", "primary", "timezone", "workers", "transcode-timeout", "pattern", "sender", "media-type"} {
		_ = viper.BindPFlag(key, rootCmd.Flags().Lookup(key))
	}

	rootCmd.AddCommand(newHistoryCommand())
	return rootCmd
}

func initConfig() error {
	viper.SetEnvPrefix("chat_ingest")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	configFile := viper.GetString("config")
	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %q: %w", configFile, err)
	}
	return nil
}

func runImport(ctx context.Context, settings settings, logger *zap.Logger) error {
	importer := ingest.NewImporter(ingest.Options{
		Workers:          settings.Workers,
		TranscodeTimeout: settings.TranscodeTimeout,
		Location:         settings.Location,
		Primary:          settings.Primary,
		Logger:           logger,
	})
	conversation, importErr := importer.ImportFile(ctx, settings.File)
	if importErr != nil {
		return importErr
	}

	criteria := filters.Criteria{
		Patterns:   settings.Patterns,
		Senders:    settings.Senders,
		MediaTypes: settings.MediaTypes,
	}
	kept := filters.Apply(conversation.Result.Messages, criteria)
	if criteria.Active() && len(kept) == 0 {
		return filters.BuildNoMatchError(utils.StringsJoinComma(settings.PatternTexts), settings.Senders, settings.MediaTypes)
	}

	if settings.DBPath != "" {
		db, openErr := catalog.OpenDB(settings.DBPath)
		if openErr != nil {
			return openErr
		}
		defer db.Close()
		if saveErr := db.SaveConversation(conversation); saveErr != nil {
			return fmt.Errorf("catalog import: %w", saveErr)
		}
		logger.Info("import cataloged", zap.String("db", settings.DBPath), zap.String("id", conversation.ID))
	}

	if settings.Output == "" {
		utils.PrintLine(fmt.Sprintf("%s\t%d messages\t%s", conversation.ID, len(kept), utils.StringsJoinComma(conversation.Result.Participants)))
		return nil
	}
	targetFolder, exportErr := ingest.Export(conversation, kept, settings.Output, settings.Format, logger)
	if exportErr != nil {
		return exportErr
	}
	utils.PrintLine(targetFolder + string(filepath.Separator))
	return nil
}
