package queue

import "github.com/samber/lo"

// Store is the ordered item collection. It is not safe for concurrent use;
// the Manager serializes access.
type Store struct {
	items []*Item
}

func (s *Store) Append(items ...*Item) {
	s.items = append(s.items, items...)
}

func (s *Store) Get(id string) (*Item, bool) {
	item, _, ok := lo.FindIndexOf(s.items, func(it *Item) bool { return it.ID == id })
	return item, ok
}

// Remove deletes id, keeping the relative order of the rest.
func (s *Store) Remove(id string) (*Item, bool) {
	item, idx, ok := lo.FindIndexOf(s.items, func(it *Item) bool { return it.ID == id })
	if !ok {
		return nil, false
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	return item, true
}

// Clear empties the store and returns what it held.
func (s *Store) Clear() []*Item {
	out := s.items
	s.items = nil
	return out
}

func (s *Store) Len() int { return len(s.items) }

// IDs returns item IDs in queue order, optionally filtered by status.
func (s *Store) IDs(statuses ...Status) []string {
	matching := s.items
	if len(statuses) > 0 {
		matching = lo.Filter(s.items, func(it *Item, _ int) bool {
			return lo.Contains(statuses, it.State.Status())
		})
	}
	return lo.Map(matching, func(it *Item, _ int) string { return it.ID })
}

func (s *Store) Views() []ItemView {
	return lo.Map(s.items, func(it *Item, _ int) ItemView { return it.view() })
}

// Counts tallies items per status; every status is present.
func (s *Store) Counts() map[Status]int {
	counts := lo.CountValuesBy(s.items, func(it *Item) Status { return it.State.Status() })
	for _, st := range allStatuses {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts
}
