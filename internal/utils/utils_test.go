package utils

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp/syntax"
	"testing"
	"time"
)

func TestNormalizeMTShorthand(t *testing.T) {
	got := NormalizeMTShorthand([]string{"-f", "chat.zip", "-mt", "image", "-mt=pdf", "--media-type", "audio"})
	want := []string{"-f", "chat.zip", "--media-type", "image", "--media-type=pdf", "--media-type", "audio"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeMTShorthand() = %v, want %v", got, want)
	}
}

func TestSplitCommaValues(t *testing.T) {
	got := SplitCommaValues([]string{"image, pdf", "", " audio ", "video,,"})
	want := []string{"image", "pdf", "audio", "video"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitCommaValues() = %v, want %v", got, want)
	}
}

func TestCompileUserPattern(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"hello", "HeLLo there", true},
		{"a.b", "axb", false},
		{"a.b", "A.B", true},
		{"^see (you|them)$", "see you", true},
		{"^see (you|them)$", "See you", false},
	}
	for _, tt := range tests {
		re, err := CompileUserPattern(tt.pattern)
		if err != nil {
			t.Fatalf("CompileUserPattern(%q) error = %v", tt.pattern, err)
		}
		if got := re.MatchString(tt.input); got != tt.want {
			t.Errorf("%q matching %q = %v, want %v", tt.pattern, tt.input, got, tt.want)
		}
	}
}

func TestCompileUserPatterns_NamesBadPattern(t *testing.T) {
	_, err := CompileUserPatterns([]string{"fine", "(unclosed"})
	var patternErr *PatternError
	if !errors.As(err, &patternErr) || patternErr.Pattern != "(unclosed" {
		t.Fatalf("error = %v, want PatternError for (unclosed", err)
	}
	var syntaxErr *syntax.Error
	if !errors.As(err, &syntaxErr) {
		t.Errorf("PatternError should unwrap to the regexp syntax error")
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{" cbor ", FormatCBOR, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ValidateFormat(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ValidateFormat(%q) = %q, %v", tt.input, got, err)
		}
	}
}

func TestWriteDocument(t *testing.T) {
	dir := t.TempDir()
	value := map[string]any{"id": "abc", "count": 2}
	for _, format := range []string{FormatJSON, FormatYAML, FormatCBOR} {
		target := filepath.Join(dir, "doc."+format)
		if err := WriteDocument(target, format, value); err != nil {
			t.Fatalf("WriteDocument(%s) error = %v", format, err)
		}
		info, err := os.Stat(target)
		if err != nil || info.Size() == 0 {
			t.Errorf("WriteDocument(%s) wrote nothing: %v", format, err)
		}
	}
}

func TestFormatDatestamp(t *testing.T) {
	got := FormatDatestamp(time.Date(2023, time.May, 12, 9, 5, 0, 0, time.UTC))
	if got != "051223-0905" {
		t.Errorf("FormatDatestamp() = %q", got)
	}
}

func TestResolveLocation(t *testing.T) {
	if location, err := ResolveLocation(""); err != nil || location != time.Local {
		t.Errorf("ResolveLocation(\"\") = %v, %v", location, err)
	}
	if location, err := ResolveLocation("UTC"); err != nil || location.String() != "UTC" {
		t.Errorf("ResolveLocation(UTC) = %v, %v", location, err)
	}
	if _, err := ResolveLocation("Mars/Olympus_Mons"); err == nil {
		t.Errorf("expected an error for an unknown zone")
	}
}

func TestStartTime(t *testing.T) {
	fallback := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	first := time.Date(2023, time.May, 12, 9, 5, 0, 0, time.UTC)
	if got := StartTime([]time.Time{{}, first}, fallback); !got.Equal(first) {
		t.Errorf("StartTime() = %v", got)
	}
	if got := StartTime(nil, fallback); !got.Equal(fallback) {
		t.Errorf("StartTime(nil) = %v", got)
	}
}
