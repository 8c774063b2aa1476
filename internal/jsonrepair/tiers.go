package jsonrepair

import (
	"regexp"
	"strings"

	"github.com/jonathan/credit-quality/internal/llm"
)

// Tier names, in cascade order.
const (
	TierDirect    = "direct"
	TierMarkdown  = "markdown"
	TierNormalize = "normalize"
	TierBalance   = "balance"
	TierMinimal   = "minimal"
	TierDegraded  = "degraded"
)

// Tier is one repair strategy. Apply receives the text produced by the previous tier and
// returns the transformed text, or false when the tier does not apply to this input.
type Tier struct {
	Name  string
	Apply func(text string) (string, bool)
}

// DefaultTiers returns the cascade in increasing order of destructiveness.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: TierDirect, Apply: direct},
		{Name: TierMarkdown, Apply: unwrapMarkdown},
		{Name: TierNormalize, Apply: normalize},
		{Name: TierBalance, Apply: balance},
		{Name: TierMinimal, Apply: minimalExtract},
	}
}

func direct(text string) (string, bool) {
	return text, true
}

func unwrapMarkdown(text string) (string, bool) {
	if !llm.HasCodeFence(text) {
		return text, false
	}
	return llm.CleanJSONBlock(text), true
}

var (
	blankLinesRe   = regexp.MustCompile(`\n[ \t\r]*\n`)
	trailingComma  = regexp.MustCompile(`,\s*([\]}])`)
	adjacentArrays = regexp.MustCompile(`\]\s*\[`)
	adjacentObjs   = regexp.MustCompile(`\}\s*\{`)
	unquotedKey    = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$\-]*)\s*:`)
)

// normalize applies syntactic fixes: blank lines, surrounding prose, single quotes,
// trailing commas, missing commas between adjacent containers and unquoted keys.
func normalize(text string) (string, bool) {
	out := text
	for blankLinesRe.MatchString(out) {
		out = blankLinesRe.ReplaceAllString(out, "\n")
	}
	out = stripOuter(out)
	out = convertSingleQuotes(out)
	out = mapOutsideStrings(out, func(segment string) string {
		segment = trailingComma.ReplaceAllString(segment, "$1")
		segment = adjacentArrays.ReplaceAllString(segment, "],[")
		segment = adjacentObjs.ReplaceAllString(segment, "},{")
		segment = unquotedKey.ReplaceAllString(segment, `$1"$2":`)
		return segment
	})
	return out, true
}

// Known problem substrings seen in generated credits output, each fixed by a targeted substitution.
var knownProblems = []struct {
	re   *regexp.Regexp
	repl string
}{
	// "attachedMedia": [] "title": ...
	{regexp.MustCompile(`\[\]\s*"`), `[], "`},
	// "role": "Ghost"\n "director": ...
	{regexp.MustCompile(`"[ \t]*\r?\n(\s*)"`), "\",\n$1\""},
	// closing container or literal followed by a key on the next line
	{regexp.MustCompile(`([}\]]|\d|true|false|null)[ \t]*\r?\n(\s*)"`), "$1,\n$2\""},
}

// balance resolves known problem substrings and closes every unclosed string, object and array.
func balance(text string) (string, bool) {
	out := text
	for _, p := range knownProblems {
		out = p.re.ReplaceAllString(out, p.repl)
	}
	out = mapOutsideStrings(out, func(segment string) string {
		return trailingComma.ReplaceAllString(segment, "$1")
	})
	return closeOpenContainers(out), true
}

// minimalExtract keeps only the span between the first '{' and the last '}'.
func minimalExtract(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text, false
	}
	return text[start : end+1], true
}
