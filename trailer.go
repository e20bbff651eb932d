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
	"errors"
	"fmt"
	"io"
)

// Trailer is the trailer dictionary of one cross-reference section.  For
// files with incremental updates, the trailers form a chain from the newest
// section to the oldest one.
type Trailer struct {
	Dict Dict

	// Pos is the file offset of the cross-reference section.
	Pos int64

	// IsStream is set if the section is a cross-reference stream.  In this
	// case, Dict is the stream dictionary.
	IsStream bool

	// Prev is the trailer of the previous (older) section, or nil.
	Prev *Trailer
}

// trailerBuilder collects the sections of a file, newest first, and links
// them once the chain is complete.
type trailerBuilder struct {
	sections []*Trailer
}

func (b *trailerBuilder) add(t *Trailer) {
	b.sections = append(b.sections, t)
}

// finish links the sections and returns the newest trailer.
func (b *trailerBuilder) finish() *Trailer {
	if len(b.sections) == 0 {
		return nil
	}
	for i := 0; i+1 < len(b.sections); i++ {
		b.sections[i].Prev = b.sections[i+1]
	}
	return b.sections[0]
}

// startXRefSearch is the number of bytes at the end of the file which are
// searched for "startxref" first.
const startXRefSearch = 1024

// findStartXRef locates the "startxref" keyword and returns the offset of
// the newest cross-reference section.
func (r *reader) findStartXRef() (int64, error) {
	pos, err := r.lastOccurrence("startxref", max(r.size-startXRefSearch, 0))
	if err == errNoXRef && r.size > startXRefSearch {
		pos, err = r.lastOccurrence("startxref", 0)
	}
	if err != nil {
		return 0, r.diag.malformed(r.size, err)
	}

	r.lex.SetPosition(pos + int64(len("startxref")))
	sym, err := r.lex.scanNextToken(false)
	if err != nil {
		return 0, err
	}
	xrefPos := r.lex.tok.ival
	if sym != symInteger && sym != symLongInteger || xrefPos <= 0 || xrefPos >= r.size {
		return 0, r.diag.malformed(pos, errors.New("invalid startxref value"))
	}
	return xrefPos, nil
}

// lastOccurrence finds the last occurrence of pat in the file, searching
// backwards from the end of the file down to the offset limit.
func (r *reader) lastOccurrence(pat string, limit int64) (int64, error) {
	const chunkSize = 1024

	buf := make([]byte, chunkSize)
	k := int64(len(pat))
	pos := r.size
	for pos-limit >= k {
		start := max(pos-chunkSize, limit)
		n, err := r.r.ReadAt(buf[:pos-start], start)
		if err != nil && err != io.EOF {
			return 0, err
		}

		idx := bytes.LastIndex(buf[:n], []byte(pat))
		if idx >= 0 {
			return start + int64(idx), nil
		}
		if start == limit {
			break
		}
		pos = start + k - 1
	}
	return 0, errNoXRef
}

// readTrailerChain reads all cross-reference sections, starting at the
// newest one and following the /Prev links.
func (r *reader) readTrailerChain() (*Trailer, error) {
	pos, err := r.findStartXRef()
	if err != nil {
		return nil, err
	}

	b := &trailerBuilder{}
	seen := make(map[int64]bool)
	for {
		// avoid xref loops
		if seen[pos] {
			err = r.diag.warn(pos, "loop in /Prev chain")
			if err != nil {
				return nil, err
			}
			break
		}
		seen[pos] = true

		r.xref.beginSection()
		t, err := r.readXRefSection(pos)
		if err != nil {
			return nil, err
		}
		b.add(t)

		prev, ok := t.Dict["Prev"]
		if !ok {
			break
		}
		prevPos, ok := prev.(Integer)
		if !ok || prevPos <= 0 || int64(prevPos) >= r.size {
			err = r.diag.warn(pos, "invalid /Prev value %s", Format(prev))
			if err != nil {
				return nil, err
			}
			break
		}
		pos = int64(prevPos)
	}

	return b.finish(), nil
}

// readXRefSection reads the cross-reference section at the given offset.
func (r *reader) readXRefSection(pos int64) (*Trailer, error) {
	r.lex.SetPosition(pos)
	sym, err := r.lex.scanNextToken(false)
	if err != nil {
		return nil, err
	}

	var dict Dict
	isStream := false
	switch sym {
	case symXRef:
		dict, err = r.readXRefTable()
	case symInteger:
		isStream = true
		dict, err = r.readXRefStream(pos, false)
	default:
		err = r.diag.malformed(pos,
			fmt.Errorf("no cross-reference section at offset %d", pos))
	}
	if err != nil {
		return nil, err
	}
	return &Trailer{Dict: dict, Pos: pos, IsStream: isStream}, nil
}
