package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"chat_ingest/internal/utils"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTranscodeTimeout = 30 * time.Second

type settings struct {
	File             string
	Output           string
	Format           string
	DBPath           string
	Primary          string
	Location         *time.Location
	Workers          int
	TranscodeTimeout time.Duration
	PatternTexts     []string
	Patterns         []*regexp.Regexp
	Senders          []string
	MediaTypes       []string
	LogLevel         string
}

// loadSettings reads the bound flags, environment and config file through viper.
func loadSettings() (settings, error) {
	format, formatErr := utils.ValidateFormat(viper.GetString("format"))
	if formatErr != nil {
		return settings{}, formatErr
	}
	location, locationErr := utils.ResolveLocation(viper.GetString("timezone"))
	if locationErr != nil {
		return settings{}, locationErr
	}
	patternTexts := viper.GetStringSlice("pattern")
	patterns, patternErr := utils.CompileUserPatterns(patternTexts)
	if patternErr != nil {
		return settings{}, patternErr
	}
	return settings{
		File:             viper.GetString("file"),
		Output:           viper.GetString("output"),
		Format:           format,
		DBPath:           viper.GetString("db"),
		Primary:          strings.TrimSpace(viper.GetString("primary")),
		Location:         location,
		Workers:          viper.GetInt("workers"),
		TranscodeTimeout: viper.GetDuration("transcode-timeout"),
		PatternTexts:     patternTexts,
		Patterns:         patterns,
		Senders:          utils.SplitCommaValues(viper.GetStringSlice("sender")),
		MediaTypes:       utils.SplitCommaValues(viper.GetStringSlice("media-type")),
		LogLevel:         viper.GetString("log-level"),
	}, nil
}

func newLogger(levelName string) (*zap.Logger, error) {
	normalized := utils.ToLowerTrim(levelName)
	if normalized == "" {
		normalized = "info"
	}
	if normalized == "warning" {
		normalized = "warn"
	}
	level, parseErr := zapcore.ParseLevel(normalized)
	if parseErr != nil {
		return nil, fmt.Errorf("log level %q: %w", levelName, parseErr)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build()
}
