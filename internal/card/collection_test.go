package card

import (
	"errors"
	"testing"
)

func TestNewCollectionSeedsDefaultLayout(t *testing.T) {
	c := NewCollection(nil)
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
	if c.Current().Title != "Novo Layout" {
		t.Fatalf("title = %q", c.Current().Title)
	}
}

func TestAddNamesLayoutsBySize(t *testing.T) {
	c := NewCollection([]Layout{NewLayout("Padrão")})
	added := c.Add()
	if added.Title != "Layout 2" {
		t.Fatalf("title = %q", added.Title)
	}
	if c.CurrentIndex() != 1 {
		t.Fatalf("current = %d", c.CurrentIndex())
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestDuplicateAppendsCopySuffix(t *testing.T) {
	c := NewCollection([]Layout{NewLayout("Padrão")})
	dup := c.Duplicate()
	if dup.Title != "Padrão (Cópia)" {
		t.Fatalf("title = %q", dup.Title)
	}
	if dup.ID == c.Layouts()[0].ID {
		t.Fatal("duplicate reused id")
	}
	if c.Current().ID != dup.ID {
		t.Fatal("duplicate not selected")
	}
}

func TestRemoveRefusesLastLayout(t *testing.T) {
	c := NewCollection(nil)
	err := c.Remove(c.Current().ID)
	if !errors.Is(err, ErrLastLayout) {
		t.Fatalf("err = %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestRemoveUnknownID(t *testing.T) {
	c := NewCollection([]Layout{NewLayout("a"), NewLayout("b")})
	if err := c.Remove("nope"); !errors.Is(err, ErrLayoutNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoveAdjustsSelection(t *testing.T) {
	a, b, d := NewLayout("a"), NewLayout("b"), NewLayout("c")
	c := NewCollection([]Layout{a, b, d})

	// Removing before the selection shifts it left.
	if err := c.Select(2); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if c.CurrentIndex() != 1 || c.Current().ID != d.ID {
		t.Fatalf("index = %d, id = %s", c.CurrentIndex(), c.Current().ID)
	}

	// Removing the selected tail clamps to the new last element.
	if err := c.Remove(d.ID); err != nil {
		t.Fatal(err)
	}
	if c.CurrentIndex() != 0 || c.Current().ID != b.ID {
		t.Fatalf("index = %d, id = %s", c.CurrentIndex(), c.Current().ID)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	a := NewLayout("a")
	c := NewCollection([]Layout{a, NewLayout("b")})

	a.Title = "renomeado"
	if err := c.Update(a); err != nil {
		t.Fatal(err)
	}
	if c.Layouts()[0].Title != "renomeado" {
		t.Fatalf("title = %q", c.Layouts()[0].Title)
	}

	if err := c.Update(NewLayout("ghost")); !errors.Is(err, ErrLayoutNotFound) {
		t.Fatalf("err = %v", err)
	}
}
