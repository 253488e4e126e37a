package sniff

import "strings"

// Kind is the closed set of media families an attachment can belong to.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
	KindAudio
	KindPDF
	KindVCard
	KindPlainText
)

// String returns the lowercase family name used by filters and the catalog.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindPDF:
		return "pdf"
	case KindVCard:
		return "vcard"
	case KindPlainText:
		return "text"
	default:
		return "unknown"
	}
}

// MediaType is a Kind plus an optional subkind such as "png" or "opus".
type MediaType struct {
	Kind    Kind
	Subkind string
}

func Image(subkind string) MediaType { return MediaType{Kind: KindImage, Subkind: subkind} }
func Video(subkind string) MediaType { return MediaType{Kind: KindVideo, Subkind: subkind} }
func Audio(subkind string) MediaType { return MediaType{Kind: KindAudio, Subkind: subkind} }

var (
	PDF       = MediaType{Kind: KindPDF}
	VCard     = MediaType{Kind: KindVCard}
	PlainText = MediaType{Kind: KindPlainText}
	Unknown   = MediaType{Kind: KindUnknown}
)

var mimeOverrides = map[MediaType]string{
	Image("jpeg"): "image/jpeg",
	Image("svg"):  "image/svg+xml",
	Video("mov"):  "video/quicktime",
	Video("avi"):  "video/x-msvideo",
	Video("mkv"):  "video/x-matroska",
	Audio("mp3"):  "audio/mpeg",
	Audio("m4a"):  "audio/mp4",
}

// MIME renders the media type as a MIME string.
func (m MediaType) MIME() string {
	if override, ok := mimeOverrides[m]; ok {
		return override
	}
	switch m.Kind {
	case KindImage, KindVideo, KindAudio:
		if m.Subkind == "" {
			return m.Kind.String() + "/*"
		}
		return m.Kind.String() + "/" + m.Subkind
	case KindPDF:
		return "application/pdf"
	case KindVCard:
		return "text/vcard"
	case KindPlainText:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func (m MediaType) String() string {
	return m.MIME()
}

// MarshalText encodes the media type as its MIME string.
func (m MediaType) MarshalText() ([]byte, error) {
	return []byte(m.MIME()), nil
}

// IsTextual reports whether the payload is kept as decoded text rather than inline binary.
func (m MediaType) IsTextual() bool {
	return m.Kind == KindVCard || m.Kind == KindPlainText
}

// Extension returns a file extension, with leading dot, suitable for writing the payload to disk.
func (m MediaType) Extension() string {
	switch m.Kind {
	case KindPDF:
		return ".pdf"
	case KindVCard:
		return ".vcf"
	case KindPlainText:
		return ".txt"
	case KindUnknown:
		return ".bin"
	}
	if m.Subkind == "jpeg" {
		return ".jpg"
	}
	if m.Subkind == "" {
		return ".bin"
	}
	return "." + strings.ToLower(m.Subkind)
}
