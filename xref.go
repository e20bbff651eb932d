// seehuhn.de/go/pdfread - load the object graph of PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdfread

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// EntryKind describes where the value of an indirect object is stored.
type EntryKind int

const (
	// EntryPending is used for objects which have been referenced, but for
	// which no cross-reference entry has been seen yet.
	EntryPending EntryKind = iota

	// EntryOffset is used for objects stored at a byte offset in the file.
	EntryOffset

	// EntryInStream is used for objects stored inside an object stream.
	EntryInStream

	// EntryNull is used for objects which turned out not to exist.
	// The value of such objects is the null object.
	EntryNull

	// EntryInMemory is used for objects which have no location in the
	// file, because they were created or renumbered after loading.
	EntryInMemory
)

func (k EntryKind) String() string {
	switch k {
	case EntryPending:
		return "pending"
	case EntryOffset:
		return "offset"
	case EntryInStream:
		return "in-stream"
	case EntryNull:
		return "null"
	case EntryInMemory:
		return "in-memory"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// XRefEntry is the cross-reference information for one indirect object,
// together with the value of the object once it has been read.
type XRefEntry struct {
	Ref  Reference
	Kind EntryKind

	// Pos is the byte offset of the object in the file (for EntryOffset),
	// or the index of the object inside its container (for EntryInStream).
	Pos int64

	// Container is the object number of the object stream holding this
	// object (EntryInStream only).
	Container uint32

	// Value is the value of the object.  This is only meaningful if
	// Resolved is set.
	Value    Object
	Resolved bool
}

// XRefTable maps object identifiers to the corresponding cross-reference
// entries.  The table owns the values of all indirect objects; objects
// inside the graph refer to each other only via Reference values.
type XRefTable struct {
	entries map[Reference]*XRefEntry
	order   []Reference

	// claimed records the object numbers for which a cross-reference
	// section has provided an entry, including free entries.  The value is
	// the index of the section which claimed the number first.
	claimed map[uint32]int
	section int

	underConstruction bool
}

func newXRefTable() *XRefTable {
	return &XRefTable{
		entries: make(map[Reference]*XRefEntry),
		claimed: make(map[uint32]int),
	}
}

// Get returns the entry for the given reference.
func (t *XRefTable) Get(ref Reference) (*XRefEntry, bool) {
	e, ok := t.entries[ref]
	return e, ok
}

// Len returns the number of entries in the table.
func (t *XRefTable) Len() int {
	return len(t.entries)
}

// Refs returns the references of all entries, ordered by object number
// and generation.
func (t *XRefTable) Refs() []Reference {
	res := make([]Reference, 0, len(t.entries))
	for ref := range t.entries {
		res = append(res, ref)
	}
	slices.SortFunc(res, compareRefs)
	return res
}

// UnderConstruction reports whether the table still accepts placeholder
// entries.
func (t *XRefTable) UnderConstruction() bool {
	return t.underConstruction
}

func (t *XRefTable) insert(e *XRefEntry) {
	t.entries[e.Ref] = e
	t.order = append(t.order, e.Ref)
}

// beginSection must be called before the entries of a new cross-reference
// section are added.  Sections are read from newest to oldest.
func (t *XRefTable) beginSection() {
	t.section++
}

// claim marks the object number as defined by the current section.
// The return value is false if the number was already claimed.  If the
// claim was made by the same section, dup is set.
func (t *XRefTable) claim(num uint32) (ok, dup bool) {
	if sec, seen := t.claimed[num]; seen {
		return false, sec == t.section
	}
	t.claimed[num] = t.section
	return true, false
}

// addOffset records an object stored at the given file offset.
// Placeholders for the same object are upgraded in place.
func (t *XRefTable) addOffset(ref Reference, pos int64) {
	if e, ok := t.entries[ref]; ok {
		if e.Kind == EntryPending {
			e.Kind = EntryOffset
			e.Pos = pos
		}
		return
	}
	t.insert(&XRefEntry{Ref: ref, Kind: EntryOffset, Pos: pos})
}

// addInStream records an object stored inside an object stream.
func (t *XRefTable) addInStream(ref Reference, container uint32, index int64) {
	if e, ok := t.entries[ref]; ok {
		if e.Kind == EntryPending {
			e.Kind = EntryInStream
			e.Container = container
			e.Pos = index
		}
		return
	}
	t.insert(&XRefEntry{Ref: ref, Kind: EntryInStream, Container: container, Pos: index})
}

// lookup converts a reference found while parsing into the value to be
// stored in the object graph.  While the table is under construction,
// unknown references get a placeholder entry.  Afterwards, references to
// undefined objects are replaced by null.
func (t *XRefTable) lookup(ref Reference) Object {
	if e, ok := t.entries[ref]; ok {
		if e.Kind == EntryNull {
			return nil
		}
		return ref
	}
	if t.underConstruction {
		t.insert(&XRefEntry{Ref: ref, Kind: EntryPending})
		return ref
	}
	return nil
}

// alloc adds a new entry with an unused object number.
func (t *XRefTable) alloc() Reference {
	var maxNum uint32
	for ref := range t.entries {
		maxNum = max(maxNum, ref.Number())
	}
	ref := NewReference(maxNum+1, 0)
	t.insert(&XRefEntry{Ref: ref, Kind: EntryInMemory, Resolved: true})
	return ref
}

// setValue stores the value of an object.
func (t *XRefTable) setValue(ref Reference, obj Object) {
	e, ok := t.entries[ref]
	if !ok {
		e = &XRefEntry{Ref: ref, Kind: EntryPending}
		t.insert(e)
	}
	e.Value = obj
	e.Resolved = true
}

// finalize ends the construction phase.  Every entry without a value is
// turned into a null object.  The references of all such entries are
// returned.
func (t *XRefTable) finalize() []Reference {
	var nulls []Reference
	for _, ref := range t.order {
		e := t.entries[ref]
		if e.Resolved {
			continue
		}
		nulls = append(nulls, ref)
		e.Kind = EntryNull
		e.Value = nil
		e.Resolved = true
	}
	t.underConstruction = false
	return nulls
}

// isNull reports whether the reference points to the null object.
func (t *XRefTable) isNull(ref Reference) bool {
	e, ok := t.entries[ref]
	return !ok || e.Kind == EntryNull || e.Resolved && e.Value == nil
}

// remove deletes entries from the table.
func (t *XRefTable) remove(drop map[Reference]bool) {
	if len(drop) == 0 {
		return
	}
	order := t.order[:0]
	for _, ref := range t.order {
		if drop[ref] {
			delete(t.entries, ref)
			continue
		}
		order = append(order, ref)
	}
	t.order = order
}
