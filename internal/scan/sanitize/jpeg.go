// Package sanitize removes privacy-sensitive metadata from image containers
// before they are stored or sent to external services. Only JPEG is
// implemented; other formats report that metadata was not verified removed.
package sanitize

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/brightpath/safescan/pkg/errors"
)

// JPEG markers used by the segment walk.
const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerAPP1   = 0xE1
	markerTEM    = 0x01
)

// Result reports the outcome of a sanitization attempt. Success false means
// "metadata not verified removed", not a blocking error; callers proceed with
// the original bytes.
type Result struct {
	Success bool   `json:"success"`
	Cleaned []byte `json:"-"`
	Err     string `json:"error,omitempty"`
}

// Strip removes metadata from the given content if the MIME type has a
// supported sanitizer.
func Strip(data []byte, mimeType string) Result {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		cleaned, _, err := StripJPEG(data)
		if err != nil {
			return Result{Success: false, Err: err.Error()}
		}
		return Result{Success: true, Cleaned: cleaned}
	default:
		return Result{Success: false, Err: errors.ErrUnsupportedFormat.Error()}
	}
}

// StripJPEG walks the JPEG segment table from offset 2 and rebuilds the file
// without APP1 segments, which is where EXIF/GPS/device metadata lives.
// Retained segments are copied forward into a new buffer rather than spliced
// in place. The walk bound-checks every read; a truncated or malformed
// segment table returns ErrMalformedSegments and no output.
//
// The second return reports whether any APP1 segment was removed.
func StripJPEG(data []byte) ([]byte, bool, error) {
	if len(data) < 4 || data[0] != markerPrefix || data[1] != markerSOI {
		return nil, false, errors.ErrUnsupportedFormat
	}

	out := make([]byte, 0, len(data))
	out = append(out, data[0], data[1])
	stripped := false
	offset := 2

	for offset < len(data)-1 {
		if data[offset] != markerPrefix {
			return nil, false, errors.ErrMalformedSegments
		}
		marker := data[offset+1]

		switch {
		case marker == markerEOI:
			// End of image: keep the marker and any trailing bytes.
			out = append(out, data[offset:]...)
			return out, stripped, nil

		case marker == markerSOS:
			// Entropy-coded image data runs to EOI; copy the remainder.
			out = append(out, data[offset:]...)
			return out, stripped, nil

		case marker == markerTEM || (marker >= 0xD0 && marker <= 0xD7):
			// Standalone markers carry no length field.
			out = append(out, data[offset], data[offset+1])
			offset += 2

		default:
			if offset+4 > len(data) {
				return nil, false, errors.ErrMalformedSegments
			}
			segLen := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
			if segLen < 2 || offset+2+segLen > len(data) {
				return nil, false, errors.ErrMalformedSegments
			}
			if marker == markerAPP1 {
				stripped = true
			} else {
				out = append(out, data[offset:offset+2+segLen]...)
			}
			offset += 2 + segLen
		}
	}

	// Ran out of bytes without reaching EOI or SOS.
	return nil, false, errors.ErrMalformedSegments
}

// exifHeader is the payload prefix identifying an EXIF APP1 segment.
var exifHeader = []byte("Exif\x00\x00")

// HasEXIF reports whether the JPEG carries an EXIF APP1 segment. Used by the
// image safety scorer: genuine camera photos carry device metadata,
// downloaded or synthetic images usually do not.
func HasEXIF(data []byte) bool {
	if len(data) < 4 || data[0] != markerPrefix || data[1] != markerSOI {
		return false
	}
	offset := 2
	for offset < len(data)-1 {
		if data[offset] != markerPrefix {
			return false
		}
		marker := data[offset+1]
		if marker == markerEOI || marker == markerSOS {
			return false
		}
		if marker == markerTEM || (marker >= 0xD0 && marker <= 0xD7) {
			offset += 2
			continue
		}
		if offset+4 > len(data) {
			return false
		}
		segLen := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		if segLen < 2 || offset+2+segLen > len(data) {
			return false
		}
		if marker == markerAPP1 && bytes.HasPrefix(data[offset+4:offset+2+segLen], exifHeader) {
			return true
		}
		offset += 2 + segLen
	}
	return false
}
