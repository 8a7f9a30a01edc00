package policy

import (
	"fmt"
	"regexp"
	"slices"
)

// Custom auto-response: a case-insensitive pattern and the replies to pick from when it matches.
type Response struct {
	Pattern string
	Replies []string
	re      *regexp.Regexp
}

func NewResponse(pattern string, replies []string) (*Response, error) {
	if len(replies) == 0 {
		return nil, ErrNoReplies
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPattern, err)
	}
	return &Response{Pattern: pattern, Replies: slices.Clone(replies), re: re}, nil
}

func (r *Response) Match(text string) bool {
	return r.re.MatchString(text)
}

// Appends a response, or replaces the replies of an existing one with the same pattern (keeping its position).
// Returns true if the pattern was new.
func (s *Store) AddResponse(pattern string, replies []string) (bool, error) {
	r, err := NewResponse(pattern, replies)
	if err != nil {
		return false, err
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	for i, existing := range s.responses {
		if existing.Pattern == pattern {
			s.responses[i] = r
			return false, nil
		}
	}
	s.responses = append(s.responses, r)
	return true, nil
}

func (s *Store) RemoveResponse(pattern string) bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	i := slices.IndexFunc(s.responses, func(r *Response) bool { return r.Pattern == pattern })
	if i < 0 {
		return false
	}
	s.responses = slices.Delete(s.responses, i, i+1)
	return true
}

func (s *Store) Responses() []ResponseConfig {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]ResponseConfig, 0, len(s.responses))
	for _, r := range s.responses {
		out = append(out, ResponseConfig{Pattern: r.Pattern, Replies: slices.Clone(r.Replies)})
	}
	return out
}

// Replies of the first response (in insertion order) whose pattern matches text.
func (s *Store) MatchResponse(text string) ([]string, bool) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	for _, r := range s.responses {
		if r.Match(text) {
			return slices.Clone(r.Replies), true
		}
	}
	return nil, false
}
