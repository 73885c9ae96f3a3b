package docscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsScript(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{
			name:     "javascript action",
			data:     []byte("%PDF-1.4\n1 0 obj\n<< /Type /Action /S /JavaScript /JS (app.alert(1)) >>"),
			expected: true,
		},
		{
			name:     "open action",
			data:     []byte("%PDF-1.7\n<< /OpenAction 2 0 R >>"),
			expected: true,
		},
		{
			name:     "launch action",
			data:     []byte("<< /S /Launch /F (cmd.exe) >>"),
			expected: true,
		},
		{
			name:     "additional actions dictionary",
			data:     []byte("<< /AA << /O 3 0 R >> >>"),
			expected: true,
		},
		{
			name:     "form submission",
			data:     []byte("<< /S /SubmitForm /F (http://collector) >>"),
			expected: true,
		},
		{
			name:     "embedded file",
			data:     []byte("<< /Type /Filespec /EF << /F 4 0 R >> /EmbeddedFile true >>"),
			expected: true,
		},
		{
			name:     "clean document",
			data:     []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj"),
			expected: false,
		},
		{
			name:     "empty",
			data:     nil,
			expected: false,
		},
		{
			name:     "keyword inside binary stream still detected",
			data:     append([]byte{0x00, 0xFF, 0x13}, []byte("/JavaScript")...),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsScript(tt.data))
		})
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.4"), "application/octet-stream"))
	assert.True(t, IsPDF([]byte("random"), "application/pdf"))
	assert.False(t, IsPDF([]byte("random"), "image/jpeg"))
}
