package texdoc

import (
	"regexp"
	"strings"
)

// repairRule maps a compiler diagnostic pattern to a source transformation.
// Rules are evaluated in declaration order, most specific first; the first
// match wins for an attempt. Repairs compound across attempts because each
// one rewrites the source the next attempt compiles.
type repairRule struct {
	name  string
	match *regexp.Regexp
	apply func(string) string
}

var repairRules = []repairRule{
	{
		name:  "fix_frac_sqrt",
		match: regexp.MustCompile(`\\frac[^\n]*\\sqrt|\\sqrt[^\n]*\\frac`),
		apply: func(s string) string { return repairFractions(repairRadicals(s)) },
	},
	{
		name:  "fix_fractions",
		match: regexp.MustCompile(`\\frac|Missing \{ inserted|Illegal unit of measure`),
		apply: repairFractions,
	},
	{
		name:  "fix_radicals",
		match: regexp.MustCompile(`\\sqrt|\\vec`),
		apply: repairRadicals,
	},
	{
		name:  "escape_reserved",
		match: regexp.MustCompile(`Misplaced alignment tab|Missing \$ inserted|You can't use .macro parameter`),
		apply: escapeStrayReserved,
	},
	{
		name:  "fix_macros",
		match: regexp.MustCompile(`Undefined control sequence`),
		apply: repairMacros,
	},
	{
		name:  "balance_braces",
		match: regexp.MustCompile(`Missing \} inserted|Runaway argument|Argument of .+ has an extra \}`),
		apply: BalanceBraces,
	},
}

// Repair picks the transformation for a failed compile and returns the
// rewritten source plus the applied rule's name. An unrecognized diagnostic
// gets the emergency pass, which stacks every known fix.
func Repair(diagnostic, source string) (string, string) {
	for _, r := range repairRules {
		if r.match.MatchString(diagnostic) {
			return r.apply(source), r.name
		}
	}
	return emergencySanitize(source), "emergency"
}

var reStrayReserved = regexp.MustCompile(`([^\\])([&#%])`)

// escapeStrayReserved escapes reserved characters the model emitted bare.
// Already-escaped occurrences are left alone.
func escapeStrayReserved(s string) string {
	return reStrayReserved.ReplaceAllString(s, `$1\$2`)
}

var reUnknownMacro = regexp.MustCompile(`\\([A-Za-z]+)`)

// knownMacros is what the fixed preamble provides. Anything else the model
// invented gets demoted to plain text.
var knownMacros = map[string]bool{
	"frac": true, "sqrt": true, "vec": true, "cdot": true, "times": true,
	"pi": true, "theta": true, "alpha": true, "beta": true, "gamma": true,
	"delta": true, "Delta": true, "lambda": true, "mu": true, "sigma": true,
	"omega": true, "Omega": true, "sum": true, "int": true, "infty": true,
	"leq": true, "geq": true, "neq": true, "approx": true, "pm": true,
	"left": true, "right": true, "text": true, "textbf": true, "textit": true,
	"item": true, "begin": true, "end": true, "paperheader": true,
	"documentclass": true, "usepackage": true, "setlength": true,
	"newcommand": true, "parindent": true, "LARGE": true, "bfseries": true,
	"vspace": true, "Alph": true, "textasciitilde": true, "textasciicircum": true,
	"log": true, "ln": true, "sin": true, "cos": true, "tan": true, "exp": true,
}

// repairMacros strips the backslash off macros the preamble does not define.
func repairMacros(s string) string {
	return reUnknownMacro.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1:]
		if knownMacros[name] {
			return m
		}
		return name
	})
}

// emergencySanitize stacks every fix; last resort before giving up on a
// document.
func emergencySanitize(s string) string {
	s = SanitizeMath(s)
	s = repairMacros(s)
	s = escapeStrayReserved(s)
	return BalanceBraces(s)
}

// DiagnosticTail extracts the part of compiler output worth logging and
// matching, the last error lines rather than the page chatter.
func DiagnosticTail(output string, maxLines int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	var errs []string
	for _, l := range lines {
		if strings.HasPrefix(l, "!") || strings.Contains(l, "error") || strings.Contains(l, "Error") {
			errs = append(errs, l)
		}
	}
	if len(errs) == 0 {
		errs = lines
	}
	if len(errs) > maxLines {
		errs = errs[len(errs)-maxLines:]
	}
	return strings.Join(errs, "\n")
}
