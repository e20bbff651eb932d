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

// Document is a PDF file which has been loaded into memory.  All indirect
// objects are read during loading, so that the methods of Document never
// access the file.
type Document struct {
	// Version is the PDF version used in this file.  This is specified in
	// the initial comment at the start of the file, and may be overridden by
	// the /Version entry in the document catalog.
	Version Version

	// The ID of the file.  This is either a slice of two byte slices (the
	// original ID of the file, and the ID of the current version), or nil if
	// the file does not specify an ID.
	ID [][]byte

	// Encrypted is set if the file was encrypted.  All objects are
	// decrypted during loading.
	Encrypted bool

	// Permissions lists the operations the user is allowed to perform.
	// For unencrypted files this is PermAll.
	Permissions Perm

	xref    *XRefTable
	trailer *Trailer
	log     Logger
}

// maxResolveSteps limits the length of reference chains followed by
// Resolve.
const maxResolveSteps = 16

// Trailer returns the trailer of the newest cross-reference section.
// Older sections can be reached via the Prev field.
func (d *Document) Trailer() *Trailer {
	return d.trailer
}

// Trailers returns the trailers of all cross-reference sections, oldest
// first.
func (d *Document) Trailers() []*Trailer {
	var res []*Trailer
	for t := d.trailer; t != nil; t = t.Prev {
		res = append(res, t)
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

// XRef returns the cross-reference table of the document.
func (d *Document) XRef() *XRefTable {
	return d.xref
}

// Get returns the value of an indirect object.  The result is nil for
// undefined objects and for objects with value null.
func (d *Document) Get(ref Reference) Object {
	e, ok := d.xref.Get(ref)
	if !ok {
		return nil
	}
	return e.Value
}

// Resolve follows references to indirect objects.  If obj is not a
// Reference, obj is returned unchanged.
func (d *Document) Resolve(obj Object) Object {
	for i := 0; i < maxResolveSteps; i++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj
		}
		obj = d.Get(ref)
	}
	return nil
}

// Root returns the document catalog.
func (d *Document) Root() Dict {
	root, _ := d.Resolve(d.trailer.Dict["Root"]).(Dict)
	return root
}

// Info returns the document information dictionary, or nil if the file
// has no such dictionary.
func (d *Document) Info() Dict {
	info, _ := d.Resolve(d.trailer.Dict["Info"]).(Dict)
	return info
}

// DecodeStream returns the data of a stream with all filters applied.
// Image filters (DCTDecode, JPXDecode and JBIG2Decode) are not applied.
func (d *Document) DecodeStream(s *Stream) ([]byte, error) {
	return decodeStream(s, d.Resolve)
}

// catalogVersion returns the value of /Version in the document catalog.
func (d *Document) catalogVersion() (Version, bool) {
	root := d.Root()
	if root == nil {
		return 0, false
	}
	name, ok := d.Resolve(root["Version"]).(Name)
	if !ok {
		return 0, false
	}
	v, err := ParseVersion(string(name))
	if err != nil {
		d.log.Debug("ignoring invalid catalog /Version %q", name)
		return 0, false
	}
	return v, true
}
