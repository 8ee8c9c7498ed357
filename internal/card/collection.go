package card

import (
	"errors"
	"fmt"
)

var (
	// ErrLastLayout is returned when deleting would empty the collection.
	ErrLastLayout = errors.New("cannot delete the last remaining layout")
	// ErrLayoutNotFound is returned when an id is not in the collection.
	ErrLayoutNotFound = errors.New("layout not found")
)

// Collection is the ordered set of layouts an operator edits, with one
// current selection. It never becomes empty: a collection starts with at
// least one layout and refuses to delete the last one.
//
// Persistence is the caller's concern; the collection only owns the
// in-memory ordering and selection rules.
type Collection struct {
	layouts []Layout
	current int
}

// NewCollection builds a collection around existing layouts, selecting the
// first. With no layouts it seeds a single default one.
func NewCollection(layouts []Layout) *Collection {
	if len(layouts) == 0 {
		layouts = []Layout{NewLayout("Novo Layout")}
	}
	return &Collection{layouts: layouts}
}

// Len returns the number of layouts.
func (c *Collection) Len() int { return len(c.layouts) }

// Layouts returns a copy of the ordered layouts.
func (c *Collection) Layouts() []Layout {
	out := make([]Layout, len(c.layouts))
	copy(out, c.layouts)
	return out
}

// CurrentIndex returns the selected index.
func (c *Collection) CurrentIndex() int { return c.current }

// Current returns the selected layout.
func (c *Collection) Current() Layout { return c.layouts[c.current] }

// Select sets the current index.
func (c *Collection) Select(index int) error {
	if index < 0 || index >= len(c.layouts) {
		return fmt.Errorf("select layout: index %d out of range", index)
	}
	c.current = index
	return nil
}

// Add appends a layout with default geometry and an auto-generated title
// ("Layout N") and selects it.
func (c *Collection) Add() Layout {
	layout := NewLayout(fmt.Sprintf("Layout %d", len(c.layouts)+1))
	c.layouts = append(c.layouts, layout)
	c.current = len(c.layouts) - 1
	return layout
}

// Duplicate deep-copies the current layout under a new id, appends
// " (Cópia)" to the title and selects the copy.
func (c *Collection) Duplicate() Layout {
	dup := c.Current().Clone()
	dup.Title = c.Current().Title + " (Cópia)"
	c.layouts = append(c.layouts, dup)
	c.current = len(c.layouts) - 1
	return dup
}

// Update overwrites the layout with the same id in place.
func (c *Collection) Update(layout Layout) error {
	for i := range c.layouts {
		if c.layouts[i].ID == layout.ID {
			c.layouts[i] = layout
			return nil
		}
	}
	return ErrLayoutNotFound
}

// Remove deletes a layout by id. Deleting the last remaining layout is
// refused with ErrLastLayout so the collection can never end up empty. When
// the removed layout was selected, selection stays at the same index clamped
// to the new last element.
func (c *Collection) Remove(id string) error {
	if len(c.layouts) <= 1 {
		return ErrLastLayout
	}

	index := -1
	for i := range c.layouts {
		if c.layouts[i].ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return ErrLayoutNotFound
	}

	c.layouts = append(c.layouts[:index], c.layouts[index+1:]...)

	switch {
	case c.current > index:
		c.current--
	case c.current >= len(c.layouts):
		c.current = len(c.layouts) - 1
	}
	return nil
}
