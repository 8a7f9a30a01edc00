// Link classification: domain cleaning, shortener and obfuscation heuristics, and allow/block list policy evaluation.
package domains

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// Known URL shortener hosts. Matched as substrings of the cleaned domain.
var Shorteners = []string{"bit.ly", "goo.gl", "t.co", "tinyurl.com"}

type Mode string

const (
	ModeStrict    Mode = "strict"
	ModeWhitelist Mode = "whitelist"
	ModeBlacklist Mode = "blacklist"
)

var Modes = []Mode{ModeStrict, ModeWhitelist, ModeBlacklist}

func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case ModeStrict, ModeWhitelist, ModeBlacklist:
		return m, nil
	}
	return "", fmt.Errorf("invalid link mode: %q", raw)
}

// Read-only view of the link policy, as evaluated against a single message.
type Policy struct {
	Mode            Mode
	Allowed         []string
	Blocked         []string
	BlockShorteners bool
	BlockObfuscated bool
	// Stored and reported, but not consulted: list matching is by substring, which already admits subdomains.
	AllowSubdomains bool
}

// Extracts the domain part of a URL: strips the http(s) scheme and leading "www.", lower-cases, and keeps everything before the first "/".
//
// Clean is idempotent: Clean(Clean(x)) == Clean(x).
func Clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for {
		trimmed := strings.TrimPrefix(s, "http://")
		trimmed = strings.TrimPrefix(trimmed, "https://")
		trimmed = strings.TrimPrefix(trimmed, "www.")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func IsShortener(domain string) bool {
	for _, s := range Shorteners {
		if strings.Contains(domain, s) {
			return true
		}
	}
	return false
}

// True if the domain contains a digit, any character outside [A-Za-z0-9._-], or a run of three or more identical letters.
func IsObfuscated(domain string) bool {
	var prev rune
	run := 0
	for _, c := range domain {
		switch {
		case c >= '0' && c <= '9':
			return true
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c == '.' || c == '_' || c == '-':
		default:
			return true
		}
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if isLetter && c == prev {
			run++
		} else if isLetter {
			run = 1
		} else {
			run = 0
		}
		if run >= 3 {
			return true
		}
		prev = c
	}
	return false
}

var urlRegex = regexp.MustCompile(`https?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// Returns the http(s) URLs in text, in textual order, with safe normalization applied (lower-case scheme and host, default port removed).
func ExtractURLs(text string) []string {
	raw := urlRegex.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		norm, err := purell.NormalizeURLString(u, purell.FlagsSafe)
		if err != nil {
			norm = u
		}
		out = append(out, norm)
	}
	return out
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonShortener
	ReasonObfuscated
	ReasonStrict
	ReasonNotWhitelisted
	ReasonBlocked
)

func (r Reason) String() string {
	switch r {
	case ReasonShortener:
		return "shortener"
	case ReasonObfuscated:
		return "obfuscated"
	case ReasonStrict:
		return "strict"
	case ReasonNotWhitelisted:
		return "not-whitelisted"
	case ReasonBlocked:
		return "blocked"
	}
	return "none"
}

// Outcome of evaluating a message's links against a policy.
type Verdict struct {
	URL    string
	Domain string
	Reason Reason
}

func (v Verdict) Flagged() bool {
	return v.Reason != ReasonNone
}

// Human readable reason, as shown in the removal notice.
func (v Verdict) Message() string {
	switch v.Reason {
	case ReasonShortener:
		return "URL shorteners are not allowed"
	case ReasonObfuscated:
		return "Suspicious link detected"
	case ReasonStrict:
		return "All links are blocked"
	case ReasonNotWhitelisted:
		return fmt.Sprintf("Domain not whitelisted: %s", v.Domain)
	case ReasonBlocked:
		return fmt.Sprintf("Blocked domain: %s", v.Domain)
	}
	return ""
}

// Evaluates a single URL. Predicates run in fixed precedence (shortener, obfuscation, mode) and the first to fire wins.
func EvaluateURL(p Policy, rawURL string) Verdict {
	domain := Clean(rawURL)
	v := Verdict{URL: rawURL, Domain: domain}
	switch {
	case p.BlockShorteners && IsShortener(domain):
		v.Reason = ReasonShortener
	case p.BlockObfuscated && IsObfuscated(domain):
		v.Reason = ReasonObfuscated
	case p.Mode == ModeStrict:
		v.Reason = ReasonStrict
	case p.Mode == ModeWhitelist && !containsAny(domain, p.Allowed):
		v.Reason = ReasonNotWhitelisted
	case p.Mode == ModeBlacklist && containsAny(domain, p.Blocked):
		v.Reason = ReasonBlocked
	}
	return v
}

// Evaluates the URLs of a message in textual order; the first flagged URL determines the verdict and later URLs are not inspected.
func Evaluate(p Policy, text string) Verdict {
	for _, u := range ExtractURLs(text) {
		v := EvaluateURL(p, u)
		if v.Flagged() {
			return v
		}
	}
	return Verdict{}
}

func containsAny(domain string, entries []string) bool {
	for _, e := range entries {
		if e != "" && strings.Contains(domain, e) {
			return true
		}
	}
	return false
}
