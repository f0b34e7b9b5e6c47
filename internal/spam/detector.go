// Package spam implements the first-pass submission filter: a chain of cheap
// deterministic checks tuned so legitimate business text is never blocked.
package spam

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-intake/internal/model"
)

// Result is the outcome of a spam check.
type Result struct {
	IsSpam bool
	Reason string
}

// emailPattern is deliberately loose: one @, no whitespace, a dot in the
// domain. Anything failing this is not a deliverable address.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// scamPhrases is the fixed denylist. A single hit is tolerated (legitimate
// briefs occasionally quote one); two or more trips the filter.
var scamPhrases = []string{
	"make money fast",
	"guaranteed income",
	"guaranteed profit",
	"get rich quick",
	"double your money",
	"crypto investment",
	"forex signals",
	"binary options",
	"wire transfer fee",
	"western union",
	"inheritance fund",
	"lottery winner",
	"claim your prize",
	"risk free investment",
	"buy followers",
	"cheap backlinks",
	"seo ranking service",
	"adult content site",
	"casino affiliate",
	"work from home kit",
}

const (
	maxURLs     = 5
	maxCharRun  = 10 // runs longer than this are gibberish
	phraseLimit = 2  // hits at or above this are spam
)

// Detect applies the check chain to a submission. First match wins. It is a
// pure function: no I/O, no external calls.
func Detect(input model.BriefInput) Result {
	if !emailPattern.MatchString(input.Email) {
		return Result{IsSpam: true, Reason: "Invalid email"}
	}

	text := fold(input.Name + " " + input.Description + " " + input.Deliverables)

	if n := countPhrases(text); n >= phraseLimit {
		return Result{IsSpam: true, Reason: "Suspicious content"}
	}

	if countURLs(text) > maxURLs {
		return Result{IsSpam: true, Reason: "Too many links"}
	}

	if hasLongRun(text) {
		return Result{IsSpam: true, Reason: "Gibberish content"}
	}

	return Result{}
}

// fold normalizes text for matching: NFKC so full-width and composed
// lookalikes collapse to their plain forms, then lowercase.
func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func countPhrases(text string) int {
	n := 0
	for _, phrase := range scamPhrases {
		if strings.Contains(text, phrase) {
			n++
		}
	}
	return n
}

func countURLs(text string) int {
	return strings.Count(text, "http://") + strings.Count(text, "https://")
}

// hasLongRun reports whether any rune repeats more than maxCharRun times
// consecutively.
func hasLongRun(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run > maxCharRun {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
