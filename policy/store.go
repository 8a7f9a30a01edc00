// Process-wide feature toggles and moderation policy: link rules, banned words, greeting templates and custom responses.
//
// A single Store is shared by every room. Reads take a read lock so the moderation path never blocks on another reader;
// admin commands take the write lock.
package policy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/groupmod/groupmod/domains"
)

var (
	ErrUnknownFeature = errors.New("unknown feature")
	ErrInvalidMode    = errors.New("invalid link mode")
	ErrUnknownOption  = errors.New("unknown link option")
	ErrBadPattern     = errors.New("invalid response pattern")
	ErrNoReplies      = errors.New("response needs at least one reply")
	ErrEmptyWord      = errors.New("word bank entry has no word")
)

// Advanced link options, as named by admin commands.
const (
	OptionBlockShorteners = "block_shorteners"
	OptionBlockObfuscated = "block_obfuscated"
	OptionAllowSubdomains = "allow_subdomains"
)

var LinkOptions = []string{OptionBlockShorteners, OptionBlockObfuscated, OptionAllowSubdomains}

func isKnown(feature string) bool {
	return slices.Contains(Features, feature)
}

type Store struct {
	lk sync.RWMutex

	features map[string]bool

	mode            domains.Mode
	allowed         *List
	blocked         *List
	blockShorteners bool
	blockObfuscated bool
	allowSubdomains bool

	banned    *List
	welcome   string
	goodbye   string
	responses []*Response
}

func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := domains.ParseMode(cfg.Links.Mode)
	s := &Store{
		features:        make(map[string]bool, len(Features)),
		mode:            mode,
		allowed:         NewList(),
		blocked:         NewList(),
		blockShorteners: cfg.Links.BlockShorteners,
		blockObfuscated: cfg.Links.BlockObfuscated,
		allowSubdomains: cfg.Links.AllowSubdomains,
		banned:          NewList(cfg.BannedWords...),
		welcome:         cfg.Welcome,
		goodbye:         cfg.Goodbye,
	}
	for _, f := range Features {
		s.features[f] = cfg.Features[f]
	}
	for _, d := range cfg.Links.Allowed {
		s.allowed.Add(domains.Clean(d))
	}
	for _, d := range cfg.Links.Blocked {
		s.blocked.Add(domains.Clean(d))
	}
	for _, rc := range cfg.Responses {
		r, err := NewResponse(rc.Pattern, rc.Replies)
		if err != nil {
			return nil, err
		}
		s.responses = append(s.responses, r)
	}
	return s, nil
}

func (s *Store) IsKnown(feature string) bool {
	return isKnown(normalize(feature))
}

// Unknown features read as disabled.
func (s *Store) Enabled(feature string) bool {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.features[feature]
}

func (s *Store) SetFeature(feature string, on bool) error {
	feature = normalize(feature)
	if !isKnown(feature) {
		return fmt.Errorf("%w: %s", ErrUnknownFeature, feature)
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	s.features[feature] = on
	return nil
}

func (s *Store) FeatureStates() []FeatureState {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]FeatureState, 0, len(Features))
	for _, f := range Features {
		out = append(out, FeatureState{Name: f, Enabled: s.features[f]})
	}
	return out
}

// Copy of the current link policy, safe to evaluate without holding the store lock.
func (s *Store) LinkPolicy() domains.Policy {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return domains.Policy{
		Mode:            s.mode,
		Allowed:         s.allowed.Items(),
		Blocked:         s.blocked.Items(),
		BlockShorteners: s.blockShorteners,
		BlockObfuscated: s.blockObfuscated,
		AllowSubdomains: s.allowSubdomains,
	}
}

func (s *Store) SetMode(raw string) (domains.Mode, error) {
	m, err := domains.ParseMode(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, raw)
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	s.mode = m
	return m, nil
}

func (s *Store) SetLinkOption(name string, on bool) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	switch normalize(name) {
	case OptionBlockShorteners:
		s.blockShorteners = on
	case OptionBlockObfuscated:
		s.blockObfuscated = on
	case OptionAllowSubdomains:
		s.allowSubdomains = on
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return nil
}

func (s *Store) edit(l *List, v string, add bool) bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	if add {
		return l.Add(v)
	}
	return l.Remove(v)
}

// Domain list edits take an already cleaned domain and report whether the list changed.
func (s *Store) BlockDomain(d string) bool    { return s.edit(s.blocked, d, true) }
func (s *Store) UnblockDomain(d string) bool  { return s.edit(s.blocked, d, false) }
func (s *Store) AllowDomain(d string) bool    { return s.edit(s.allowed, d, true) }
func (s *Store) DisallowDomain(d string) bool { return s.edit(s.allowed, d, false) }
func (s *Store) BanWord(w string) bool        { return s.edit(s.banned, w, true) }
func (s *Store) UnbanWord(w string) bool      { return s.edit(s.banned, w, false) }

func (s *Store) BannedWords() []string {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.banned.Items()
}

// First banned word contained (case-insensitively) in text.
func (s *Store) MatchBanned(text string) (string, bool) {
	lower := strings.ToLower(text)
	s.lk.RLock()
	defer s.lk.RUnlock()
	for _, w := range s.banned.items {
		if strings.Contains(lower, w) {
			return w, true
		}
	}
	return "", false
}

func (s *Store) Welcome() string {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.welcome
}

func (s *Store) SetWelcome(t string) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.welcome = t
}

func (s *Store) Goodbye() string {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.goodbye
}

func (s *Store) SetGoodbye(t string) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.goodbye = t
}

// Fills {name}, {username} and {chat}. An empty username renders as "user".
func Render(template, name, username, chat string) string {
	if username == "" {
		username = "user"
	}
	return strings.NewReplacer("{name}", name, "{username}", username, "{chat}", chat).Replace(template)
}
