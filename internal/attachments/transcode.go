package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/jdeng/goheif"

	"chat_ingest/internal/sniff"
)

// JPEGQuality is the fixed quality used for converted HEIC images.
const JPEGQuality = 85

// Outcome is either Converted or Failed.
type Outcome interface {
	outcome()
}

// Converted carries the re-encoded payload and its new media type.
type Converted struct {
	Data      []byte
	MediaType sniff.MediaType
}

// Failed hands back the untouched input so the caller can store it as-is.
type Failed struct {
	Original  []byte
	MediaType sniff.MediaType
	Err       error
}

func (Converted) outcome() {}
func (Failed) outcome()    {}

// Transcoder converts an image the renderer cannot display into one it can.
type Transcoder interface {
	Transcode(ctx context.Context, data []byte, mediaType sniff.MediaType) Outcome
}

// TranscoderFunc adapts a plain function to Transcoder.
type TranscoderFunc func(ctx context.Context, data []byte, mediaType sniff.MediaType) Outcome

func (f TranscoderFunc) Transcode(ctx context.Context, data []byte, mediaType sniff.MediaType) Outcome {
	return f(ctx, data, mediaType)
}

var errDecoderPanic = errors.New("heic decoder panicked")

// HEICTranscoder decodes HEIC/HEIF and re-encodes it as JPEG.
type HEICTranscoder struct {
	// Timeout bounds a single conversion. Zero means only ctx bounds it.
	Timeout time.Duration
}

func (h HEICTranscoder) Transcode(ctx context.Context, data []byte, mediaType sniff.MediaType) Outcome {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- Failed{Original: data, MediaType: mediaType, Err: fmt.Errorf("%w: %v", errDecoderPanic, recovered)}
			}
		}()
		done <- convertHEIC(data, mediaType)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-ctx.Done():
		return Failed{Original: data, MediaType: mediaType, Err: fmt.Errorf("transcode heic: %w", ctx.Err())}
	}
}

func convertHEIC(data []byte, mediaType sniff.MediaType) Outcome {
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return Failed{Original: data, MediaType: mediaType, Err: fmt.Errorf("decode heic: %w", err)}
	}
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Failed{Original: data, MediaType: mediaType, Err: fmt.Errorf("encode jpeg: %w", err)}
	}
	return Converted{Data: encoded.Bytes(), MediaType: sniff.Image("jpeg")}
}
