package constants

import "strings"

// FileFormat is the declared format of an uploaded source file.
type FileFormat string

const (
	TXT FileFormat = "TXT"
	PDF FileFormat = "PDF"
	RTF FileFormat = "RTF"
)

// AllowedExtensions holds the accepted upload extensions.
var AllowedExtensions = map[string]struct{}{
	"txt": {},
	"pdf": {},
	"rtf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to its format, or "" if unsupported.
func MapExtToFormat(ext string) FileFormat {
	switch NormalizeExt(ext) {
	case "txt":
		return TXT
	case "pdf":
		return PDF
	case "rtf":
		return RTF
	}
	return ""
}
