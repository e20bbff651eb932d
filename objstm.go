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

	"golang.org/x/exp/slices"
)

// objStm is an opened object stream.
type objStm struct {
	num uint32
	pos int64 // file offset of the container, for diagnostics
	lex *lexer

	// offsets maps object numbers to the start of the object in the
	// decoded stream data.
	offsets map[uint32]int64

	// nums lists the object numbers in the order of the stream header.
	nums []uint32
}

// loadObjectStreams opens all object streams which are referenced from
// the cross-reference table.  If the /Length of an object stream is stored
// inside another object stream which is not yet open, the stream is
// deferred to the next round.  Loading fails with ErrNoConvergence if a
// round makes no progress.
func (r *reader) loadObjectStreams() error {
	r.inObjStmPhase = true
	defer func() { r.inObjStmPhase = false }()

	for round := 1; ; round++ {
		pending := r.pendingObjStms()
		if len(pending) == 0 {
			return nil
		}
		if r.opt.MaxObjStmRounds > 0 && round > r.opt.MaxObjStmRounds {
			return fmt.Errorf("%w: %d object streams left after %d rounds",
				ErrNoConvergence, len(pending), r.opt.MaxObjStmRounds)
		}

		progress := false
		var deferred []uint32
		for _, num := range pending {
			err := r.openObjStm(num)
			if errors.Is(err, errObjStmPending) {
				deferred = append(deferred, num)
				continue
			} else if err != nil {
				return err
			}
			progress = true
		}
		if !progress {
			return fmt.Errorf("%w: object streams %v", ErrNoConvergence, deferred)
		}
		if len(deferred) > 0 {
			r.diag.debug("object stream round %d: deferred %v", round, deferred)
		}
	}
}

// pendingObjStms returns the numbers of all object streams which contain
// unread objects and have not been opened yet, in increasing order.
func (r *reader) pendingObjStms() []uint32 {
	seen := make(map[uint32]bool)
	var res []uint32
	for _, ref := range r.xref.order {
		e := r.xref.entries[ref]
		if e.Kind != EntryInStream || e.Resolved {
			continue
		}
		num := e.Container
		if seen[num] || r.objStms[num] != nil || r.failedStms[num] {
			continue
		}
		seen[num] = true
		res = append(res, num)
	}
	slices.Sort(res)
	return res
}

// openObjStm reads the object stream with the given number and parses its
// header.  Problems which make the stream unusable are reported and the
// stream is marked as failed, so that the objects it contains become null.
func (r *reader) openObjStm(num uint32) error {
	ref := NewReference(num, 0)
	e, ok := r.xref.Get(ref)
	if !ok || e.Kind != EntryOffset {
		r.failedStms[num] = true
		return r.diag.warn(0, "object stream %d not found", num)
	}

	obj := e.Value
	if !e.Resolved {
		fileRef, val, err := r.readIndirect(e.Pos)
		if err != nil {
			return err
		}
		if fileRef != ref {
			r.failedStms[num] = true
			return r.diag.warn(e.Pos, "expected object stream %s, found %s", ref, fileRef)
		}
		val, err = r.decrypt(ref, val)
		if err != nil {
			return r.diag.malformed(e.Pos, err)
		}
		r.xref.setValue(ref, val)
		obj = val
	}

	stream, ok := obj.(*Stream)
	if !ok {
		r.failedStms[num] = true
		return r.diag.warn(e.Pos, "object stream %d is not a stream", num)
	}
	if tp, _ := stream.Dict["Type"].(Name); tp != "ObjStm" {
		err := r.diag.warn(e.Pos, "object stream %d has /Type %s", num, Format(stream.Dict["Type"]))
		if err != nil {
			return err
		}
	}

	data, err := decodeStream(stream, r.resolveLoaded)
	if err != nil {
		r.failedStms[num] = true
		return r.diag.warn(e.Pos, "cannot decode object stream %d: %v", num, err)
	}

	stm, err := r.parseObjStmHeader(num, e.Pos, stream.Dict, data)
	if stm == nil || err != nil {
		return err
	}
	r.objStms[num] = stm
	return nil
}

// parseObjStmHeader reads the N pairs of integers at the start of the
// decoded data of an object stream.
func (r *reader) parseObjStmHeader(num uint32, pos int64, dict Dict, data []byte) (*objStm, error) {
	N, ok := dict["N"].(Integer)
	if !ok || N < 0 || int64(N) > int64(len(data)) {
		r.failedStms[num] = true
		return nil, r.diag.warn(pos, "object stream %d: invalid /N %s", num, Format(dict["N"]))
	}
	first, ok := dict["First"].(Integer)
	if !ok || first < 0 || int64(first) > int64(len(data)) {
		r.failedStms[num] = true
		return nil, r.diag.warn(pos, "object stream %d: invalid /First %s", num, Format(dict["First"]))
	}
	if ext, ok := dict["Extends"]; ok {
		r.diag.debug("object stream %d extends %s", num, Format(ext))
	}

	lex := newLexer(bytes.NewReader(data), int64(len(data)))
	lex.warn = func(p int64, format string, args ...interface{}) error {
		return r.diag.warn(pos, "object stream %d, offset %d: %s",
			num, p, fmt.Sprintf(format, args...))
	}
	lex.fatal = func(p int64, err error) error {
		return r.diag.malformed(pos, fmt.Errorf("object stream %d, offset %d: %w", num, p, err))
	}

	stm := &objStm{
		num:     num,
		pos:     pos,
		lex:     lex,
		offsets: make(map[uint32]int64, N),
	}
	for i := 0; i < int(N); i++ {
		var vals [2]int64
		for j := range vals {
			sym, err := lex.scanNextToken(false)
			if err != nil {
				return nil, err
			}
			if sym != symInteger || lex.tok.ival < 0 {
				err := r.diag.warn(pos, "object stream %d: header has %d of %d entries", num, i, N)
				return stm, err
			}
			vals[j] = lex.tok.ival
		}
		if vals[0] > 0xFFFFFFFF {
			continue
		}
		objNum := uint32(vals[0])
		if _, dup := stm.offsets[objNum]; !dup {
			stm.offsets[objNum] = int64(first) + vals[1]
		}
		stm.nums = append(stm.nums, objNum)
	}
	return stm, nil
}

// readFromObjStm reads the object ref from an object stream.  The index
// from the cross-reference table is used if the object number is not
// listed in the stream header.
func (r *reader) readFromObjStm(stm *objStm, ref Reference, index int64) (Object, error) {
	pos, ok := stm.offsets[ref.Number()]
	if !ok {
		if index < 0 || index >= int64(len(stm.nums)) {
			return nil, fmt.Errorf("object %s not found in object stream %d", ref, stm.num)
		}
		pos = stm.offsets[stm.nums[index]]
	}
	if pos >= stm.lex.size {
		return nil, fmt.Errorf("object %s: offset %d outside object stream %d", ref, pos, stm.num)
	}
	stm.lex.SetPosition(pos)
	return r.readObjectBody(stm.lex, false)
}

// resolveLoaded looks up indirect objects which have already been read.
func (r *reader) resolveLoaded(obj Object) Object {
	ref, isRef := obj.(Reference)
	if !isRef {
		return obj
	}
	e, ok := r.xref.Get(ref)
	if !ok || !e.Resolved {
		return nil
	}
	return e.Value
}
