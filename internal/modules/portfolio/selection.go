package portfolio

import "github.com/aristath/folio/internal/domain"

// Selection tracks the currently selected portfolio.
// It holds a copy of the stored record and is kept in step with the Store
// through StoreHooks, so it never lags behind a committed write.
type Selection struct {
	current *domain.Portfolio
	version uint64
}

// Get returns the selected portfolio, if any
func (s *Selection) Get() (domain.Portfolio, bool) {
	if s.current == nil {
		return domain.Portfolio{}, false
	}
	return *s.current, true
}

// ID returns the id of the selected portfolio, or ""
func (s *Selection) ID() string {
	if s.current == nil {
		return ""
	}
	return s.current.ID
}

func (s *Selection) set(p domain.Portfolio) {
	s.current = &p
	s.version++
}

// clear resets the selection and reports whether anything was selected
func (s *Selection) clear() bool {
	if s.current == nil {
		return false
	}
	s.current = nil
	s.version++
	return true
}

// refresh replaces the selected copy when p is the selected portfolio
func (s *Selection) refresh(p domain.Portfolio) {
	if s.current != nil && s.current.ID == p.ID && *s.current != p {
		s.set(p)
	}
}

// invalidate clears the selection when it points at id
func (s *Selection) invalidate(id string) {
	if s.current != nil && s.current.ID == id {
		s.clear()
	}
}

type selectionSnapshot struct {
	current *domain.Portfolio
	version uint64
}

func (s *Selection) snapshot() selectionSnapshot {
	return selectionSnapshot{current: s.current, version: s.version}
}

func (s *Selection) restore(snap selectionSnapshot) {
	s.current = snap.current
	s.version = snap.version
}
