// Scrambled-word guessing sessions, one per room.
package wordgame

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const DefaultHintBudget = 3

var (
	ErrNoSession       = errors.New("no active word game")
	ErrUnknownCategory = errors.New("unknown word category")
	ErrEmptyBank       = errors.New("word bank is empty")
	ErrHintsExhausted  = errors.New("hint budget exhausted")
)

type Word struct {
	Word     string `yaml:"word"`
	Hint     string `yaml:"hint"`
	Category string `yaml:"category"`
}

type Bank []Word

func DefaultBank() Bank {
	return Bank{
		{Word: "algorithm", Hint: "A step-by-step procedure for calculations", Category: "tech"},
		{Word: "blockchain", Hint: "Decentralized digital ledger technology", Category: "tech"},
		{Word: "nebulous", Hint: "Vague or ill-defined", Category: "vocabulary"},
		{Word: "ephemeral", Hint: "Lasting for a very short time", Category: "vocabulary"},
		{Word: "compiler", Hint: "Turns source code into machine code", Category: "tech"},
		{Word: "telescope", Hint: "Makes distant objects appear nearer", Category: "science"},
		{Word: "molecule", Hint: "Two or more atoms bonded together", Category: "science"},
		{Word: "giraffe", Hint: "The tallest living land animal", Category: "animals"},
		{Word: "octopus", Hint: "Eight arms and three hearts", Category: "animals"},
	}
}

// Sorted distinct categories present in the bank.
func (b Bank) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range b {
		c := strings.ToLower(w.Category)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (b Bank) Filter(category string) Bank {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return b
	}
	var out Bank
	for _, w := range b {
		if strings.ToLower(w.Category) == category {
			out = append(out, w)
		}
	}
	return out
}

type Session struct {
	Word       string
	Clue       string
	Category   string
	Attempts   int
	HintsUsed  int
	HintBudget int
	Scrambled  string
	LastActive time.Time
}

// Picks a random word (optionally from one category) and opens a session for it. intn must return a value in [0, n).
func Start(bank Bank, category string, budget int, intn func(int) int, now time.Time) (*Session, error) {
	if len(bank) == 0 {
		return nil, ErrEmptyBank
	}
	pool := bank.Filter(category)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if budget <= 0 {
		budget = DefaultHintBudget
	}
	w := pool[intn(len(pool))]
	target := strings.ToLower(w.Word)
	return &Session{
		Word:       target,
		Clue:       w.Hint,
		Category:   strings.ToLower(w.Category),
		HintBudget: budget,
		Scrambled:  Scramble(target, intn),
		LastActive: now,
	}, nil
}

// Random permutation of the word's letters.
func Scramble(word string, intn func(int) int) string {
	r := []rune(word)
	for i := len(r) - 1; i > 0; i-- {
		j := intn(i + 1)
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// Reports whether the session has been idle longer than ttl. A zero ttl never expires.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastActive) > ttl
}

type GuessResult struct {
	Correct    bool
	Attempts   int
	Similarity float64
}

// Counts an attempt and compares it case-insensitively against the target. On a correct guess the caller removes the session.
func (s *Session) Guess(text string, now time.Time) GuessResult {
	s.Attempts++
	s.LastActive = now
	guess := strings.ToLower(strings.TrimSpace(text))
	if guess == s.Word {
		return GuessResult{Correct: true, Attempts: s.Attempts, Similarity: 1}
	}
	return GuessResult{Attempts: s.Attempts, Similarity: Similarity(guess, s.Word)}
}

// Fraction of positions where guess and target share a letter, over the longer length.
func Similarity(guess, target string) float64 {
	g, t := []rune(guess), []rune(target)
	longest := len(g)
	if len(t) > longest {
		longest = len(t)
	}
	if longest == 0 {
		return 0
	}
	same := 0
	for i := 0; i < len(g) && i < len(t); i++ {
		if g[i] == t[i] {
			same++
		}
	}
	return float64(same) / float64(longest)
}

// Returns the next hint, in order: length, first letter, category, letter set, then masked-word forms.
func (s *Session) Hint(now time.Time) (string, error) {
	if s.HintsUsed >= s.HintBudget {
		return "", ErrHintsExhausted
	}
	s.HintsUsed++
	s.LastActive = now
	return s.hintText(s.HintsUsed), nil
}

func (s *Session) HintsLeft() int {
	if s.HintsUsed >= s.HintBudget {
		return 0
	}
	return s.HintBudget - s.HintsUsed
}

func (s *Session) hintText(n int) string {
	r := []rune(s.Word)
	switch n {
	case 1:
		return fmt.Sprintf("The word has %d letters", len(r))
	case 2:
		return fmt.Sprintf("It starts with '%s'", string(r[0]))
	case 3:
		if s.Category == "" {
			return "Category: general"
		}
		return fmt.Sprintf("Category: %s", s.Category)
	case 4:
		return fmt.Sprintf("Letters: %s", letterSet(s.Word))
	}
	return fmt.Sprintf("Pattern: %s", Mask(s.Word))
}

// First and last letters kept, the rest replaced with underscores.
func Mask(word string) string {
	r := []rune(word)
	if len(r) <= 2 {
		return word
	}
	return string(r[0]) + strings.Repeat("_", len(r)-2) + string(r[len(r)-1])
}

func letterSet(word string) string {
	seen := make(map[rune]bool)
	var letters []string
	for _, c := range word {
		if !seen[c] {
			seen[c] = true
			letters = append(letters, string(c))
		}
	}
	sort.Strings(letters)
	return strings.Join(letters, ", ")
}

func StartMessage(s *Session) string {
	return fmt.Sprintf("🧩 *New Word Game Started!*\n\nScrambled: %s\nHint: %s\n\nType the correct word in chat!", s.Scrambled, s.Clue)
}

func CorrectMessage(s *Session) string {
	return fmt.Sprintf("🎉 Correct! The word was *%s*\nSolved in %d attempts!", s.Word, s.Attempts)
}

func MissMessage(s *Session, res GuessResult) string {
	var warmth string
	switch {
	case res.Similarity > 0.7:
		warmth = "Very close! "
	case res.Similarity > 0.4:
		warmth = "Getting warmer. "
	default:
		warmth = "Not quite. "
	}
	return fmt.Sprintf("❌ %sTry again!\nHint: %s", warmth, s.Clue)
}
