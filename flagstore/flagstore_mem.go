package flagstore

import (
	"context"
	"slices"
	"sync"
)

type MemFlagStore struct {
	lk   sync.Mutex
	Data map[string][]string
}

var _ FlagStore = (*MemFlagStore)(nil)

func NewMemFlagStore() *MemFlagStore {
	return &MemFlagStore{
		Data: make(map[string][]string),
	}
}

// Flags are returned in the order they were first added.
func (s *MemFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.Data[key]
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(v), nil
}

func (s *MemFlagStore) Add(ctx context.Context, key string, flags []string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	v := s.Data[key]
	for _, f := range flags {
		if !slices.Contains(v, f) {
			v = append(v, f)
		}
	}
	s.Data[key] = v
	return nil
}

// does not error if flags not in set
func (s *MemFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.Data[key]
	if !ok {
		return nil
	}
	v = slices.DeleteFunc(v, func(f string) bool { return slices.Contains(flags, f) })
	if len(v) == 0 {
		delete(s.Data, key)
		return nil
	}
	s.Data[key] = v
	return nil
}
