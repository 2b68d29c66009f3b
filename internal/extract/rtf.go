package extract

import (
	"strconv"
	"strings"

	"github.com/paperforge/paperforge/constants"
)

// Destination groups whose content is metadata, not body text.
var rtfSkipGroups = map[string]struct{}{
	"fonttbl":    {},
	"colortbl":   {},
	"stylesheet": {},
	"info":       {},
	"pict":       {},
	"header":     {},
	"footer":     {},
	"field":      {},
	"themedata":  {},
}

func (e *Extractor) extractRTF(file SourceFile) (string, Metadata, error) {
	meta := Metadata{Format: constants.RTF}
	text := e.cap(rtfToText(string(file.Data)))
	if strings.TrimSpace(text) == "" {
		return "", meta, NewError(KindEmpty, file.Name, nil)
	}
	meta.Paragraphs = countParagraphs(text)
	return text, meta, nil
}

// rtfToText strips RTF control words and groups down to plain text. It covers
// the constructs study-material exports actually use: \par/\line breaks,
// \'hh hex escapes, \uN unicode escapes and skippable destination groups.
func rtfToText(src string) string {
	var b strings.Builder
	skipDepth := 0 // >0 while inside a skipped destination group
	depth := 0
	i := 0
	for i < len(src) {
		c := src[i]
		switch c {
		case '{':
			depth++
			i++
			// peek for a destination control like {\fonttbl or {\*\themedata
			rest := src[i:]
			rest = strings.TrimPrefix(rest, `\*`)
			if strings.HasPrefix(rest, `\`) {
				word := leadingWord(rest[1:])
				if _, skip := rtfSkipGroups[word]; skip && skipDepth == 0 {
					skipDepth = depth
				}
			}
		case '}':
			if skipDepth == depth {
				skipDepth = 0
			}
			depth--
			i++
		case '\\':
			if i+1 >= len(src) {
				return b.String()
			}
			next := src[i+1]
			switch {
			case next == '\'' && i+3 < len(src):
				if skipDepth == 0 {
					if v, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil {
						b.WriteByte(byte(v))
					}
				}
				i += 4
			case next == '\\' || next == '{' || next == '}':
				if skipDepth == 0 {
					b.WriteByte(next)
				}
				i += 2
			case next == '~':
				if skipDepth == 0 {
					b.WriteByte(' ')
				}
				i += 2
			default:
				word := leadingWord(src[i+1:])
				j := i + 1 + len(word)
				// numeric parameter
				numStart := j
				if j < len(src) && src[j] == '-' {
					j++
				}
				for j < len(src) && src[j] >= '0' && src[j] <= '9' {
					j++
				}
				param := src[numStart:j]
				// a single trailing space terminates the control word
				if j < len(src) && src[j] == ' ' {
					j++
				}
				if skipDepth == 0 {
					switch word {
					case "par", "line", "sect", "page":
						b.WriteByte('\n')
					case "tab", "cell":
						b.WriteByte('\t')
					case "u":
						if n, err := strconv.Atoi(param); err == nil && n > 0 {
							b.WriteRune(rune(n))
						}
						// skip the replacement character following \uN
						if j < len(src) && src[j] == '?' {
							j++
						}
					}
				}
				i = j
			}
		case '\r', '\n':
			i++
		default:
			if skipDepth == 0 {
				b.WriteByte(c)
			}
			i++
		}
	}
	return b.String()
}

func leadingWord(s string) string {
	end := 0
	for end < len(s) && ((s[end] >= 'a' && s[end] <= 'z') || (s[end] >= 'A' && s[end] <= 'Z')) {
		end++
	}
	return s[:end]
}
