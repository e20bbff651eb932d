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
	"errors"
	"fmt"
)

// xrefLine is one entry of a classic cross-reference table.
type xrefLine struct {
	num   uint32
	gen   uint16
	pos   int64
	inUse bool

	// dropped is set if the entry points to a location where no object
	// can be found.
	dropped bool
}

// readXRefTable reads a classic cross-reference table, together with the
// following trailer dictionary.  The "xref" keyword must already be
// consumed.  If the trailer has an /XRefStm entry, the cross-reference
// stream is read as part of the same section.
func (r *reader) readXRefTable() (Dict, error) {
	lex := r.lex
	var subsections [][]xrefLine

subsectionLoop:
	for {
		sym, err := lex.scanNextToken(false)
		if err != nil {
			return nil, err
		}
		if sym == symTrailer {
			break
		}
		start := lex.tok.ival
		if sym != symInteger || start < 0 {
			return nil, r.diag.malformed(lex.tok.start, errors.New("malformed xref subsection header"))
		}
		sym, err = lex.scanNextToken(false)
		if err != nil {
			return nil, err
		}
		count := lex.tok.ival
		if sym != symInteger || count < 0 || start+count > 1<<32 {
			return nil, r.diag.malformed(lex.tok.start, errors.New("malformed xref subsection header"))
		}

		lines := make([]xrefLine, 0, min(count, 1<<16))
		for i := int64(0); i < count; i++ {
			line, ok, err := r.readXRefLine(uint32(start + i))
			if err != nil {
				return nil, err
			}
			if !ok {
				err = r.diag.warn(lex.tok.start,
					"xref subsection %d %d has only %d entries", start, count, i)
				if err != nil {
					return nil, err
				}
				subsections = append(subsections, lines)
				break subsectionLoop
			}
			lines = append(lines, line)
		}
		subsections = append(subsections, lines)
	}

	sym, err := lex.scanNextToken(true)
	if err != nil {
		return nil, err
	}
	if sym != symBeginDictionary {
		return nil, r.diag.malformed(lex.tok.start, errors.New("trailer dictionary not found"))
	}
	trailer, err := r.readDict(lex)
	if err != nil {
		return nil, err
	}

	for _, lines := range subsections {
		err = r.verifyXRefSubsection(lines)
		if err != nil {
			return nil, err
		}
	}

	// in-use entries of the table take precedence over /XRefStm, which
	// in turn takes precedence over the free entries of the table
	for _, lines := range subsections {
		for _, line := range lines {
			if !line.inUse || line.dropped {
				continue
			}
			ok, err := r.claimEntry(line.num, line.pos, false)
			if err != nil {
				return nil, err
			}
			if ok {
				r.xref.addOffset(NewReference(line.num, line.gen), line.pos)
			}
		}
	}

	if obj, ok := trailer["XRefStm"]; ok {
		pos, ok := obj.(Integer)
		if !ok || pos <= 0 || int64(pos) >= r.size {
			err = r.diag.warn(0, "invalid /XRefStm %s", Format(obj))
		} else {
			_, err = r.readXRefStream(int64(pos), true)
		}
		if err != nil {
			return nil, err
		}
	}

	for _, lines := range subsections {
		for _, line := range lines {
			if line.inUse {
				continue
			}
			r.xref.claim(line.num)
		}
	}

	return trailer, nil
}

// readXRefLine reads one "offset generation n|f" line.  The boolean
// result is false if the trailer keyword was found instead.
func (r *reader) readXRefLine(num uint32) (xrefLine, bool, error) {
	lex := r.lex
	line := xrefLine{num: num}

	sym, err := lex.scanNextToken(false)
	if err != nil {
		return line, false, err
	}
	if sym == symTrailer {
		return line, false, nil
	}
	if sym != symInteger && sym != symLongInteger || lex.tok.ival < 0 {
		return line, false, r.diag.malformed(lex.tok.start, errors.New("malformed xref entry"))
	}
	line.pos = lex.tok.ival

	sym, err = lex.scanNextToken(false)
	if err != nil {
		return line, false, err
	}
	if sym != symInteger || lex.tok.ival < 0 {
		return line, false, r.diag.malformed(lex.tok.start, errors.New("malformed xref entry"))
	}
	gen := lex.tok.ival

	sym, err = lex.scanNextToken(false)
	if err != nil {
		return line, false, err
	}
	flag := string(lex.tok.text)
	if sym != symKeyword || flag != "n" && flag != "f" {
		return line, false, r.diag.malformed(lex.tok.start,
			fmt.Errorf("malformed xref entry flag %q", flag))
	}
	line.inUse = flag == "n"

	if gen > 65535 {
		if line.inUse {
			return line, false, r.diag.malformed(lex.tok.start,
				fmt.Errorf("invalid generation number %d", gen))
		}
		// "0000000000 65536 f" is a common error in some PDF files
		gen = 65535
	}
	line.gen = uint16(gen)
	return line, true, nil
}

// verifyXRefSubsection checks that the in-use entries point to the
// objects they claim to describe.  Some PDF writers number the entries of
// a subsection one too high; this is detected and corrected for the
// whole subsection.  Any other mismatch is resolved by trusting the
// object header found in the file.
func (r *reader) verifyXRefSubsection(lines []xrefLine) error {
	if len(lines) == 0 {
		return nil
	}

	found := make([]Reference, len(lines))
	valid := make([]bool, len(lines))
	exact := 0
	shifted := 0
	for i, line := range lines {
		if !line.inUse {
			continue
		}
		ref, ok := r.peekObjectHeader(line.pos)
		if !ok {
			continue
		}
		found[i] = ref
		valid[i] = true
		switch {
		case ref.Number() == line.num && ref.Generation() == line.gen:
			exact++
		case ref.Number()+1 == line.num && ref.Generation() == line.gen:
			shifted++
		}
	}

	if exact == 0 && shifted > 0 && lines[0].num > 0 {
		err := r.diag.warn(lines[0].pos,
			"xref subsection starting at object %d is off by one", lines[0].num)
		if err != nil {
			return err
		}
		for i := range lines {
			lines[i].num--
		}
	}

	for i := range lines {
		line := &lines[i]
		if !line.inUse {
			continue
		}
		if !valid[i] {
			err := r.diag.warn(line.pos,
				"xref entry for object %d %d points to offset %d, which has no object",
				line.num, line.gen, line.pos)
			if err != nil {
				return err
			}
			line.dropped = true
			continue
		}
		ref := found[i]
		if ref.Number() != line.num || ref.Generation() != line.gen {
			err := r.diag.warn(line.pos,
				"xref entry for object %d %d points to object %s, using the latter",
				line.num, line.gen, ref)
			if err != nil {
				return err
			}
			line.num = ref.Number()
			line.gen = ref.Generation()
		}
	}
	return nil
}

// peekObjectHeader reads the "num gen obj" header at the given offset.
func (r *reader) peekObjectHeader(pos int64) (Reference, bool) {
	if pos <= 0 || pos >= r.size {
		return 0, false
	}
	r.lex.SetPosition(pos)
	warn := r.lex.warn
	r.lex.warn = nil
	ref, err := r.readObjectHeader(r.lex)
	r.lex.warn = warn
	return ref, err == nil
}

// claimEntry records that the current section defines the given object
// number.  The result is false if an earlier entry for the same number
// takes precedence.  Duplicates inside a section are reported.
func (r *reader) claimEntry(num uint32, pos int64, quietDup bool) (bool, error) {
	ok, dup := r.xref.claim(num)
	if ok {
		return true, nil
	}
	if dup && !quietDup {
		return false, r.diag.warn(pos, "duplicate xref entry for object %d ignored", num)
	}
	r.diag.debug("xref entry for object %d ignored, an earlier entry takes precedence", num)
	return false, nil
}
