// Package vcard reads shared contact cards into a flat Contact record.
package vcard

import (
	"io"
	"mime/quotedprintable"
	"strings"
)

// Photo is an inline, base64-encoded contact picture.
type Photo struct {
	Format string `json:"format" yaml:"format"`
	Data   string `json:"data" yaml:"data"`
}

// DataURI renders the photo so it can be embedded directly by a renderer.
func (p Photo) DataURI() string {
	return "data:image/" + strings.ToLower(p.Format) + ";base64," + p.Data
}

// Contact is the normalized form of one card. Missing properties stay empty.
type Contact struct {
	Name        string            `json:"name" yaml:"name"`
	Phones      []string          `json:"phones,omitempty" yaml:"phones,omitempty"`
	Emails      []string          `json:"emails,omitempty" yaml:"emails,omitempty"`
	Photo       *Photo            `json:"photo,omitempty" yaml:"photo,omitempty"`
	Address     string            `json:"address,omitempty" yaml:"address,omitempty"`
	Birthday    string            `json:"birthday,omitempty" yaml:"birthday,omitempty"`
	ExtraFields map[string]string `json:"extraFields,omitempty" yaml:"extraFields,omitempty"`
}

var structural = map[string]bool{"BEGIN": true, "END": true, "VERSION": true}

// Parse never fails: lines it cannot interpret are skipped.
func Parse(text string) Contact {
	contact := Contact{ExtraFields: map[string]string{}}
	var formattedName, structuredName string
	var sawFormattedName, sawStructuredName bool

	for _, line := range unfold(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		key := line[:colon]
		value := line[colon+1:]
		property, params := splitKey(key)
		if isQuotedPrintable(params) {
			value = decodeQuotedPrintable(value)
		}

		switch {
		case structural[property]:
			continue
		case property == "FN":
			if !sawFormattedName {
				formattedName = unescape(strings.TrimSpace(value))
				sawFormattedName = true
			}
		case property == "N":
			if !sawStructuredName {
				structuredName = formatStructuredName(value)
				sawStructuredName = true
			}
		case property == "TEL":
			if phone := afterLastColon(line); phone != "" {
				contact.Phones = append(contact.Phones, phone)
			}
		case property == "EMAIL":
			if email := afterLastColon(line); email != "" {
				contact.Emails = append(contact.Emails, email)
			}
		case property == "PHOTO":
			if contact.Photo == nil {
				contact.Photo = parsePhoto(params, value)
			}
		case property == "ADR":
			if contact.Address == "" {
				contact.Address = formatAddress(value)
			}
		case property == "BDAY":
			if contact.Birthday == "" {
				contact.Birthday = strings.TrimSpace(value)
			}
		default:
			if _, exists := contact.ExtraFields[key]; !exists && strings.TrimSpace(value) != "" {
				contact.ExtraFields[key] = unescape(strings.TrimSpace(value))
			}
		}
	}

	if sawFormattedName && formattedName != "" {
		contact.Name = formattedName
	} else {
		contact.Name = structuredName
	}
	if len(contact.ExtraFields) == 0 {
		contact.ExtraFields = nil
	}
	return contact
}

// unfold joins RFC 6350 continuation lines and vCard 2.1 quoted-printable soft breaks.
func unfold(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if len(lines) > 0 {
			last := lines[len(lines)-1]
			if strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t") {
				lines[len(lines)-1] = last + raw[1:]
				continue
			}
			if strings.HasSuffix(last, "=") && isQuotedPrintableLine(last) {
				lines[len(lines)-1] = last[:len(last)-1] + raw
				continue
			}
		}
		lines = append(lines, raw)
	}
	return lines
}

// splitKey returns the upper-cased property name without its group prefix, and its parameters.
func splitKey(key string) (string, []string) {
	parts := strings.Split(key, ";")
	name := strings.ToUpper(strings.TrimSpace(parts[0]))
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[dot+1:]
	}
	return name, parts[1:]
}

func isQuotedPrintable(params []string) bool {
	for _, param := range params {
		upper := strings.ToUpper(strings.TrimSpace(param))
		if upper == "ENCODING=QUOTED-PRINTABLE" || upper == "QUOTED-PRINTABLE" {
			return true
		}
	}
	return false
}

func isQuotedPrintableLine(line string) bool {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return false
	}
	_, params := splitKey(line[:colon])
	return isQuotedPrintable(params)
}

func decodeQuotedPrintable(value string) string {
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(value)))
	if err != nil {
		return value
	}
	return string(decoded)
}

func afterLastColon(line string) string {
	return strings.TrimSpace(line[strings.LastIndex(line, ":")+1:])
}

func parsePhoto(params []string, value string) *Photo {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(value), "data:") {
		// vCard 4: data:image/jpeg;base64,<data>
		header, data, found := strings.Cut(value[len("data:"):], ",")
		if !found || data == "" {
			return nil
		}
		format := strings.TrimPrefix(strings.Split(header, ";")[0], "image/")
		return &Photo{Format: normalizeFormat(format), Data: data}
	}

	inline := false
	format := "jpeg"
	for _, param := range params {
		upper := strings.ToUpper(strings.TrimSpace(param))
		switch {
		case upper == "BASE64", upper == "ENCODING=B", upper == "ENCODING=BASE64":
			inline = true
		case strings.HasPrefix(upper, "TYPE="):
			format = strings.TrimSpace(param)[len("TYPE="):]
		}
	}
	if !inline || value == "" {
		return nil
	}
	return &Photo{Format: normalizeFormat(format), Data: strings.ReplaceAll(value, " ", "")}
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "jpg" {
		return "jpeg"
	}
	return format
}

func formatStructuredName(value string) string {
	parts := strings.Split(value, ";")
	// N:Family;Given;Additional;Prefix;Suffix
	order := []int{1, 2, 0}
	var names []string
	for _, index := range order {
		if index < len(parts) {
			if part := unescape(strings.TrimSpace(parts[index])); part != "" {
				names = append(names, part)
			}
		}
	}
	return strings.Join(names, " ")
}

func formatAddress(value string) string {
	var components []string
	for _, part := range strings.Split(value, ";") {
		if part = unescape(strings.TrimSpace(part)); part != "" {
			components = append(components, part)
		}
	}
	return strings.Join(components, ", ")
}

var unescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func unescape(value string) string {
	return unescaper.Replace(value)
}
