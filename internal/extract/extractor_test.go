package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperforge/paperforge/constants"
)

func TestExtractTXT(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	text, meta, err := e.Extract(context.Background(), SourceFile{
		Name:   "notes.txt",
		Format: constants.TXT,
		Data:   []byte("Newton's first law.\n\nNewton's second law."),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "first law")
	assert.Equal(t, 2, meta.Paragraphs)
	assert.False(t, meta.FallbackUsed)
}

func TestExtractTXTStripsUTF8BOM(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Kinetic energy.")...)
	text, meta, err := e.Extract(context.Background(), SourceFile{
		Name: "bom.txt", Format: constants.TXT, Data: data,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kinetic energy.", text)
	assert.False(t, meta.FallbackUsed)
}

func TestExtractTXTUTF16Fallback(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	// UTF-16LE with BOM: "hi"
	data := []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}
	text, meta, err := e.Extract(context.Background(), SourceFile{
		Name: "u.txt", Format: constants.TXT, Data: data,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	assert.True(t, meta.FallbackUsed)
}

func TestExtractTXTEmpty(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	_, _, err := e.Extract(context.Background(), SourceFile{
		Name: "blank.txt", Format: constants.TXT, Data: []byte("   \n \n"),
	})
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, KindEmpty, xe.Kind)
}

func TestExtractTooLarge(t *testing.T) {
	e := NewExtractor(Config{MaxFileBytes: 8}, nil)
	_, _, err := e.Extract(context.Background(), SourceFile{
		Name: "big.txt", Format: constants.TXT, Data: []byte("0123456789"),
	})
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, KindTooLarge, xe.Kind)
}

func TestExtractCharCap(t *testing.T) {
	e := NewExtractor(Config{CharLimit: 5}, nil)
	text, _, err := e.Extract(context.Background(), SourceFile{
		Name: "long.txt", Format: constants.TXT, Data: []byte("abcdefghij"),
	})
	require.NoError(t, err)
	assert.Equal(t, "abcde", text)
}

func TestExtractFormatSniffMismatch(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	_, _, err := e.Extract(context.Background(), SourceFile{
		Name:   "fake.pdf",
		Format: constants.PDF,
		Data:   []byte("just text pretending to be a pdf"),
	})
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, KindUnsupportedFormat, xe.Kind)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	_, _, err := e.Extract(context.Background(), SourceFile{
		Name: "slides.pptx", Format: "", Data: []byte("PK\x03\x04"),
	})
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, KindUnsupportedFormat, xe.Kind)
}

func TestRTFToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain paragraph",
			in:   `{\rtf1\ansi Hello World\par}`,
			want: "Hello World\n",
		},
		{
			name: "font table skipped",
			in:   `{\rtf1{\fonttbl{\f0 Arial;}}Body text\par}`,
			want: "Body text\n",
		},
		{
			name: "hex escape",
			in:   `{\rtf1 caf\'e9\par}`,
			want: "caf\xe9\n",
		},
		{
			name: "unicode escape with replacement",
			in:   `{\rtf1 \u960? is pi\par}`,
			want: "π is pi\n",
		},
		{
			name: "escaped braces",
			in:   `{\rtf1 set \{a, b\}\par}`,
			want: "set {a, b}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rtfToText(tt.in))
		})
	}
}

func TestExtractRTFViaDispatch(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	text, meta, err := e.Extract(context.Background(), SourceFile{
		Name:   "doc.rtf",
		Format: constants.RTF,
		Data:   []byte(`{\rtf1\ansi Thermodynamics.\par First law of thermodynamics.\par}`),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Thermodynamics."))
	assert.Equal(t, constants.RTF, meta.Format)
}
