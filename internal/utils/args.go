package utils

import "strings"

// NormalizeMTShorthand rewrites the -mt shorthand, which pflag cannot express, into --media-type.
func NormalizeMTShorthand(args []string) []string {
	output := make([]string, 0, len(args))
	for _, original := range args {
		if original == "-mt" {
			output = append(output, "--media-type")
			continue
		}
		if strings.HasPrefix(original, "-mt=") {
			output = append(output, "--media-type="+original[len("-mt="):])
			continue
		}
		output = append(output, original)
	}
	return output
}

// SplitCommaValues flattens repeated and comma-separated flag values, dropping blanks.
func SplitCommaValues(raw []string) []string {
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, piece := range strings.Split(item, ",") {
			trimmed := strings.TrimSpace(piece)
			if trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	return values
}
