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
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"time"

	"golang.org/x/exp/slices"
	"seehuhn.de/go/xmp"
)

// prepareForModify updates a freshly loaded document so that it can be
// changed and written as a new file: the second part of the file ID is
// regenerated, the modification date is set, unreachable objects are
// removed and the remaining objects are renumbered.
func (r *reader) prepareForModify(doc *Document) error {
	now := r.opt.Now()

	doc.ID = newFileID(doc.ID, now, r.size)
	r.setModDate(doc, now)
	r.updateXMPModifyDate(doc, now)

	doc.compact()
	return nil
}

// newFileID keeps the first element of the file identifier and generates a
// new second element.
func newFileID(old [][]byte, now time.Time, size int64) [][]byte {
	h := md5.New()
	binary.Write(h, binary.BigEndian, now.UnixNano())
	binary.Write(h, binary.BigEndian, size)
	for _, part := range old {
		h.Write(part)
	}
	id := h.Sum(nil)

	var first []byte
	if len(old) > 0 {
		first = old[0]
	} else {
		first = id
	}
	return [][]byte{first, id}
}

// setModDate sets /ModDate in the document information dictionary.  If
// the file has no such dictionary, a new one is created.
func (r *reader) setModDate(doc *Document, now time.Time) {
	info := doc.Info()
	if info == nil {
		info = Dict{}
		ref := doc.xref.alloc()
		doc.xref.setValue(ref, info)
		doc.trailer.Dict["Info"] = ref
	}
	info["ModDate"] = Date(now)
}

// updateXMPModifyDate sets xmp:ModifyDate in the metadata stream of the
// document catalog.  The updated stream is stored without compression.
// Problems with the metadata are logged and otherwise ignored.
func (r *reader) updateXMPModifyDate(doc *Document, now time.Time) {
	root := doc.Root()
	if root == nil {
		return
	}
	stm, ok := doc.Resolve(root["Metadata"]).(*Stream)
	if !ok {
		return
	}

	data, err := doc.DecodeStream(stm)
	if err != nil {
		r.diag.debug("cannot decode XMP metadata: %v", err)
		return
	}
	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		r.diag.debug("cannot parse XMP metadata: %v", err)
		return
	}

	basic := &xmp.Basic{}
	packet.Get(basic)
	basic.ModifyDate = xmp.NewDate(now)
	packet.Set(basic)

	buf := &bytes.Buffer{}
	err = packet.Write(buf, nil)
	if err != nil {
		r.diag.debug("cannot write XMP metadata: %v", err)
		return
	}

	delete(stm.Dict, "Filter")
	delete(stm.Dict, "DecodeParms")
	stm.Dict["Length"] = Integer(buf.Len())
	stm.Data = buf.Bytes()
}

// compact removes all objects which cannot be reached from the trailer and
// renumbers the remaining objects, starting at 1.  The trailer is
// replaced by a new dictionary without a /Prev link.
func (d *Document) compact() {
	trailer := Dict{}
	for _, key := range []Name{"Root", "Info"} {
		if val, ok := d.trailer.Dict[key]; ok {
			trailer[key] = val
		}
	}

	reachable := d.reachable(trailer)
	slices.SortFunc(reachable, compareRefs)

	newRef := make(map[Reference]Reference, len(reachable))
	for i, ref := range reachable {
		newRef[ref] = NewReference(uint32(i+1), 0)
	}

	xref := newXRefTable()
	for _, ref := range reachable {
		val := renumber(d.Get(ref), newRef)
		xref.insert(&XRefEntry{
			Ref:      newRef[ref],
			Kind:     EntryInMemory,
			Value:    val,
			Resolved: true,
		})
	}
	renumber(trailer, newRef)

	if d.ID != nil {
		trailer["ID"] = Array{String(d.ID[0]), String(d.ID[1])}
	}
	trailer["Size"] = Integer(len(reachable) + 1)

	d.xref = xref
	d.trailer = &Trailer{Dict: trailer, Pos: -1}
}

// reachable returns all references which can be reached from obj.
func (d *Document) reachable(obj Object) []Reference {
	seen := make(map[Reference]bool)
	var res []Reference
	todo := []Object{obj}
	for len(todo) > 0 {
		obj := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		switch x := obj.(type) {
		case Reference:
			if seen[x] {
				continue
			}
			seen[x] = true
			if d.xref.isNull(x) {
				continue
			}
			res = append(res, x)
			todo = append(todo, d.Get(x))
		case Array:
			todo = append(todo, x...)
		case Dict:
			for _, val := range x {
				todo = append(todo, val)
			}
		case *Stream:
			todo = append(todo, x.Dict)
		}
	}
	return res
}

// renumber replaces all references inside obj, according to the given
// map.  Containers are modified in place.
func renumber(obj Object, newRef map[Reference]Reference) Object {
	switch x := obj.(type) {
	case Reference:
		if ref, ok := newRef[x]; ok {
			return ref
		}
		return nil
	case Array:
		for i, elem := range x {
			x[i] = renumber(elem, newRef)
		}
		return x
	case Dict:
		for key, elem := range x {
			val := renumber(elem, newRef)
			if val == nil {
				delete(x, key)
			} else {
				x[key] = val
			}
		}
		return x
	case *Stream:
		renumber(x.Dict, newRef)
		return x
	default:
		return obj
	}
}
