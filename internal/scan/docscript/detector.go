// Package docscript detects embedded executable actions in PDF-like
// documents. Detection is a raw byte scan on purpose: malformed and polyglot
// files that a structural parser would reject are exactly the ones that must
// still be inspected.
package docscript

import "bytes"

// scriptKeywords are PDF dictionary keys and actions associated with
// embedded executable behavior.
var scriptKeywords = [][]byte{
	[]byte("/JavaScript"),
	[]byte("/JS"),
	[]byte("/OpenAction"),
	[]byte("/AA"),
	[]byte("/Launch"),
	[]byte("/SubmitForm"),
	[]byte("/EmbeddedFile"),
	[]byte("/RichMedia"),
	[]byte("/XFA"),
}

// ContainsScript reports whether the document carries any embedded-script
// indicator. A single match is sufficient; there is no partial-confidence
// notion. Any detected document script fails the file regardless of every
// other signal.
func ContainsScript(data []byte) bool {
	for _, kw := range scriptKeywords {
		if bytes.Contains(data, kw) {
			return true
		}
	}
	return false
}

// IsPDF reports whether the content looks like a PDF document. The
// declared MIME type is never trusted alone.
func IsPDF(data []byte, mimeType string) bool {
	if mimeType == "application/pdf" {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
