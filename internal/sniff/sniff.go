package sniff

import (
	"bytes"
	"path"
	"strings"
)

// headerSize is how much of an entry the signature predicates ever look at.
const headerSize = 512

// textSniffSize bounds the best-effort textual checks (SVG, vCard).
const textSniffSize = 100

type signature struct {
	name    string
	matches func(header []byte) (MediaType, bool)
}

// signatures is evaluated top to bottom; the first hit wins.
var signatures = []signature{
	{"png", fixed(Image("png"), []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})},
	{"jpeg", fixed(Image("jpeg"), []byte{0xFF, 0xD8})},
	{"gif", matchGIF},
	{"webp", matchWebP},
	{"bmp", fixed(Image("bmp"), []byte("BM"))},
	{"tiff", matchTIFF},
	{"svg", matchSVG},
	{"heic", matchHEIC},
	{"pdf", fixed(PDF, []byte("%PDF"))},
	{"mp4", matchMP4},
	{"mp3", matchMP3},
	{"ogg", fixed(Audio("opus"), []byte("OggS"))},
	{"vcard", matchVCard},
}

var extensionTable = map[string]MediaType{
	"jpg":  Image("jpeg"),
	"jpeg": Image("jpeg"),
	"png":  Image("png"),
	"gif":  Image("gif"),
	"webp": Image("webp"),
	"bmp":  Image("bmp"),
	"tiff": Image("tiff"),
	"tif":  Image("tiff"),
	"svg":  Image("svg"),
	"heic": Image("heic"),
	"heif": Image("heif"),
	"mp4":  Video("mp4"),
	"mov":  Video("mov"),
	"avi":  Video("avi"),
	"mkv":  Video("mkv"),
	"mp3":  Audio("mp3"),
	"wav":  Audio("wav"),
	"m4a":  Audio("m4a"),
	"opus": Audio("opus"),
	"pdf":  PDF,
	// Office documents have always been presented through the PDF path.
	"doc":  PDF,
	"docx": PDF,
	"vcf":  VCard,
	"txt":  PlainText,
}

var (
	documentMarkers  = []string{"doc-", "document"}
	voiceNoteMarkers = []string{"ptt-", "voice note", "voice-note"}
)

// Classify identifies data by magic number, falling back to the filename. It never fails.
func Classify(data []byte, filenameHint string) MediaType {
	header := data
	if len(header) > headerSize {
		header = header[:headerSize]
	}
	for _, sig := range signatures {
		if mediaType, ok := sig.matches(header); ok {
			return mediaType
		}
	}
	if strings.HasSuffix(strings.ToLower(filenameHint), ".vcf") {
		return VCard
	}
	return FromFilename(filenameHint)
}

// FromFilename maps a filename to a media type using only its extension and naming markers.
func FromFilename(name string) MediaType {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(name))), ".")
	if mediaType, ok := extensionTable[ext]; ok {
		return mediaType
	}
	lower := strings.ToLower(name)
	if containsAny(lower, voiceNoteMarkers) {
		return Audio("opus")
	}
	if containsAny(lower, documentMarkers) {
		return PDF
	}
	return Unknown
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func fixed(mediaType MediaType, magic []byte) func([]byte) (MediaType, bool) {
	return func(header []byte) (MediaType, bool) {
		return mediaType, bytes.HasPrefix(header, magic)
	}
}

func matchGIF(header []byte) (MediaType, bool) {
	if bytes.HasPrefix(header, []byte("GIF87a")) || bytes.HasPrefix(header, []byte("GIF89a")) {
		return Image("gif"), true
	}
	return MediaType{}, false
}

func matchWebP(header []byte) (MediaType, bool) {
	if len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP")) {
		return Image("webp"), true
	}
	return MediaType{}, false
}

func matchTIFF(header []byte) (MediaType, bool) {
	if bytes.HasPrefix(header, []byte{'I', 'I', 0x2A, 0x00}) || bytes.HasPrefix(header, []byte{'M', 'M', 0x00, 0x2A}) {
		return Image("tiff"), true
	}
	return MediaType{}, false
}

func matchSVG(header []byte) (MediaType, bool) {
	if bytes.Contains(bytes.ToLower(textHead(header)), []byte("<svg")) {
		return Image("svg"), true
	}
	return MediaType{}, false
}

var heicBrands = map[string]bool{"heic": true, "heix": true, "hevc": true, "mif1": true, "heif": true}

func matchHEIC(header []byte) (MediaType, bool) {
	brand, ok := ftypBrand(header)
	if !ok || !heicBrands[brand] {
		return MediaType{}, false
	}
	if brand == "heif" || brand == "mif1" {
		return Image("heif"), true
	}
	return Image("heic"), true
}

func matchMP4(header []byte) (MediaType, bool) {
	if brand, ok := ftypBrand(header); ok {
		if brand == "M4A " || brand == "M4B " {
			return Audio("m4a"), true
		}
		return Video("mp4"), true
	}
	// QuickTime files written without an ftyp box open directly with moov or mdat.
	if len(header) >= 8 {
		box := string(header[4:8])
		if box == "moov" || box == "mdat" || box == "wide" {
			return Video("mp4"), true
		}
	}
	return MediaType{}, false
}

func matchMP3(header []byte) (MediaType, bool) {
	if bytes.HasPrefix(header, []byte("ID3")) {
		return Audio("mp3"), true
	}
	if len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0 {
		return Audio("mp3"), true
	}
	return MediaType{}, false
}

func matchVCard(header []byte) (MediaType, bool) {
	if bytes.Contains(bytes.ToUpper(textHead(header)), []byte("BEGIN:VCARD")) {
		return VCard, true
	}
	return MediaType{}, false
}

func ftypBrand(header []byte) (string, bool) {
	if len(header) < 12 || string(header[4:8]) != "ftyp" {
		return "", false
	}
	return string(header[8:12]), true
}

func textHead(header []byte) []byte {
	if len(header) > textSniffSize {
		return header[:textSniffSize]
	}
	return header
}
