package rules

import (
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

// Length of the longest run of one repeated character. Characters are grapheme clusters, so a skin-toned emoji counts
// once.
func LongestRun(text string) int {
	longest, run := 0, 0
	prev := ""
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		c := gr.Str()
		if run > 0 && c == prev {
			run++
		} else {
			run = 1
		}
		prev = c
		if run > longest {
			longest = run
		}
	}
	return longest
}

var greetingRegex = regexp.MustCompile(`(?i)\b(hello|hi|hey|good\s+(morning|afternoon|evening))\b`)

func IsGreeting(text string) bool {
	return greetingRegex.MatchString(text)
}

func fill(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}
