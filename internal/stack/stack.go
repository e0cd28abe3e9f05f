// Package stack maintains the front-to-back stacking order and the focused window.
//
// Focus is an explicit field and is never implied by the top of the stack.
package stack

import (
	"fmt"
	"slices"

	"github.com/ItsNotGoodName/composer/internal/window"
)

type Stack struct {
	order   []window.ID
	parents map[window.ID]window.ID
	focus   window.ID
}

func New() *Stack {
	return &Stack{
		parents: make(map[window.ID]window.ID),
	}
}

// Insert stacks a newly mapped window. A window without a parent goes to the front
// and takes focus. A child goes immediately above its parent and takes focus only
// if the parent had it.
func (s *Stack) Insert(id, parent window.ID) error {
	if id == window.None {
		return fmt.Errorf("stack insert: %w: zero id", window.ErrInvalidState)
	}
	if s.Contains(id) {
		return fmt.Errorf("stack insert %d: %w", id, window.ErrDuplicateID)
	}

	if parent == window.None {
		s.order = slices.Insert(s.order, 0, id)
		s.focus = id
		return nil
	}

	idx := s.Index(parent)
	if idx == -1 {
		return fmt.Errorf("stack insert %d: parent %d: %w", id, parent, window.ErrNotFound)
	}

	s.order = slices.Insert(s.order, idx, id)
	s.parents[id] = parent
	if s.focus == parent {
		s.focus = id
	}

	return nil
}

// Remove unstacks a window. If it had focus, focus moves to the new top of the stack.
func (s *Stack) Remove(id window.ID) error {
	idx := s.Index(id)
	if idx == -1 {
		return fmt.Errorf("stack remove %d: %w", id, window.ErrNotFound)
	}

	s.order = slices.Delete(s.order, idx, idx+1)
	delete(s.parents, id)
	for child, parent := range s.parents {
		if parent == id {
			delete(s.parents, child)
		}
	}

	if s.focus == id {
		s.focus = window.None
		if len(s.order) > 0 {
			s.focus = s.order[0]
		}
	}

	return nil
}

// Raise moves id and its descendants to the front, keeping the descendants above it.
// Focus is not changed.
func (s *Stack) Raise(id window.ID) error {
	if !s.Contains(id) {
		return fmt.Errorf("raise %d: %w", id, window.ErrNotFound)
	}

	var group, rest []window.ID
	for _, w := range s.order {
		if w == id || s.descends(w, id) {
			group = append(group, w)
		} else {
			rest = append(rest, w)
		}
	}

	s.order = append(group, rest...)
	return nil
}

func (s *Stack) descends(w, ancestor window.ID) bool {
	for seen := 0; seen <= len(s.parents); seen++ {
		p, ok := s.parents[w]
		if !ok {
			return false
		}
		if p == ancestor {
			return true
		}
		w = p
	}
	return false
}

func (s *Stack) Focus(id window.ID) error {
	if !s.Contains(id) {
		return fmt.Errorf("focus %d: %w", id, window.ErrNotFound)
	}
	s.focus = id
	return nil
}

func (s *Stack) Unfocus() {
	s.focus = window.None
}

// Focused returns the focused window or window.None.
func (s *Stack) Focused() window.ID {
	return s.focus
}

// Order returns a copy of the stacking order, front first.
func (s *Stack) Order() []window.ID {
	return slices.Clone(s.order)
}

func (s *Stack) Index(id window.ID) int {
	return slices.Index(s.order, id)
}

func (s *Stack) Contains(id window.ID) bool {
	return s.Index(id) != -1
}

func (s *Stack) Parent(id window.ID) window.ID {
	return s.parents[id]
}

func (s *Stack) Len() int {
	return len(s.order)
}

// Top returns the front-most window for which keep returns true.
func (s *Stack) Top(keep func(id window.ID) bool) window.ID {
	for _, id := range s.order {
		if keep(id) {
			return id
		}
	}
	return window.None
}

func (s *Stack) Clone() *Stack {
	parents := make(map[window.ID]window.ID, len(s.parents))
	for k, v := range s.parents {
		parents[k] = v
	}
	return &Stack{
		order:   slices.Clone(s.order),
		parents: parents,
		focus:   s.focus,
	}
}

func (s *Stack) Reset(src *Stack) {
	c := src.Clone()
	s.order, s.parents, s.focus = c.order, c.parents, c.focus
}
