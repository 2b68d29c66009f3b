// Package texdoc renders the generated paper into LaTeX, compiles it with
// tectonic and repairs common model-induced source defects between attempts.
package texdoc

import (
	"fmt"
	"strings"

	"github.com/paperforge/paperforge/constants"
)

// Entry is one question position with its mark-scheme counterpart.
type Entry struct {
	Position      int
	Type          constants.QuestionType
	Prompt        string
	Options       []string // MCQ only
	CorrectIndex  int      // MCQ only
	Solution      string
	MarkingPoints []string
}

const preamble = `\documentclass[12pt]{article}
\usepackage[a4paper,margin=20mm]{geometry}
\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{enumitem}
\setlength{\parindent}{0pt}
\newcommand{\paperheader}[1]{\begin{center}{\LARGE\bfseries #1}\end{center}\vspace{6mm}}
`

// RenderQuestions builds the question paper source.
func RenderQuestions(title string, entries []Entry) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\\begin{document}\n")
	fmt.Fprintf(&b, "\\paperheader{%s}\n", EscapeText(title))
	b.WriteString("\\begin{enumerate}[leftmargin=*,itemsep=8mm]\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\\item %s\n", renderBody(e.Prompt))
		if len(e.Options) > 0 {
			b.WriteString("\\begin{enumerate}[label=(\\Alph*),itemsep=1mm]\n")
			for _, opt := range e.Options {
				fmt.Fprintf(&b, "\\item %s\n", renderBody(opt))
			}
			b.WriteString("\\end{enumerate}\n")
		}
	}
	b.WriteString("\\end{enumerate}\n")
	b.WriteString("\\end{document}\n")
	return b.String()
}

// RenderMarkScheme builds the companion answers source.
func RenderMarkScheme(title string, entries []Entry) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\\begin{document}\n")
	fmt.Fprintf(&b, "\\paperheader{%s}\n", EscapeText(title+" Mark Scheme"))
	b.WriteString("\\begin{enumerate}[leftmargin=*,itemsep=8mm]\n")
	for _, e := range entries {
		if e.Type == constants.QuestionMCQ && len(e.Options) > 0 && e.CorrectIndex < len(e.Options) {
			fmt.Fprintf(&b, "\\item \\textbf{Correct option: (%c)} %s\n",
				'A'+e.CorrectIndex, renderBody(e.Solution))
		} else {
			fmt.Fprintf(&b, "\\item %s\n", renderBody(e.Solution))
		}
		if len(e.MarkingPoints) > 0 {
			b.WriteString("\\begin{itemize}[itemsep=1mm]\n")
			for _, mp := range e.MarkingPoints {
				fmt.Fprintf(&b, "\\item %s\n", renderBody(mp))
			}
			b.WriteString("\\end{itemize}\n")
		}
	}
	b.WriteString("\\end{enumerate}\n")
	b.WriteString("\\end{document}\n")
	return b.String()
}

// renderBody sanitizes math first, then escapes the prose between math spans.
func renderBody(s string) string {
	return EscapeText(SanitizeMath(s))
}

var escaper = strings.NewReplacer(
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeText escapes LaTeX-reserved characters in prose while leaving
// \( ... \) math spans untouched.
func EscapeText(s string) string {
	var b strings.Builder
	for len(s) > 0 {
		open := strings.Index(s, `\(`)
		if open < 0 {
			b.WriteString(escaper.Replace(s))
			break
		}
		b.WriteString(escaper.Replace(s[:open]))
		closing := strings.Index(s[open:], `\)`)
		if closing < 0 {
			// unterminated math span, close it ourselves
			b.WriteString(s[open:])
			b.WriteString(`\)`)
			break
		}
		b.WriteString(s[open : open+closing+2])
		s = s[open+closing+2:]
	}
	return b.String()
}
