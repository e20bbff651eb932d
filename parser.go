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
	"io"
)

var (
	// errObjStmPending is returned when a stream length refers to an
	// object inside an object stream which has not been opened yet.
	errObjStmPending = errors.New("stream length stored in unopened object stream")

	errInvalidLength  = errors.New("invalid stream length")
	errNoObjectHeader = errors.New("object header not found")
)

// maxLengthDepth limits the nesting of indirect /Length lookups.
const maxLengthDepth = 4

// streamSearchWindow is the chunk size used when searching for the
// endstream keyword.
const streamSearchWindow = 1024

// readValue converts the current token of lex into an object.  Arrays and
// dictionaries are read recursively.  The boolean result is false, if the
// token cannot start an object.
func (r *reader) readValue(lex *lexer, sym symbol) (Object, bool, error) {
	tok := &lex.tok
	switch sym {
	case symNull:
		return nil, true, nil
	case symBoolean:
		return Bool(tok.bval), true, nil
	case symInteger, symLongInteger:
		return Integer(tok.ival), true, nil
	case symReal:
		return Real(tok.fval), true, nil
	case symString, symHexString:
		return String(tok.str), true, nil
	case symName:
		return Name(tok.str), true, nil
	case symObjRef:
		ref := NewReference(tok.num, tok.gen)
		return r.xref.lookup(ref), true, nil
	case symBeginArray:
		arr, err := r.readArray(lex)
		return arr, true, err
	case symBeginDictionary:
		dict, err := r.readDict(lex)
		return dict, true, err
	default:
		return nil, false, nil
	}
}

// parseObject reads objects until the stop symbol is found and returns the
// objects read.  The stop symbol itself is consumed.
func (r *reader) parseObject(lex *lexer, stop symbol) ([]Object, error) {
	var items []Object
	for {
		st := lex.save()
		sym, err := lex.scanNextToken(true)
		if err != nil {
			return nil, err
		}

		if sym == stop {
			return items, nil
		}

		obj, ok, err := r.readValue(lex, sym)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, obj)
			continue
		}

		switch sym {
		case symEOF, symEndObj, symBeginStream, symEndStream, symObj,
			symXRef, symTrailer, symStartXRef:
			// The container is not terminated.  Leave the token for the
			// caller and return what we have.
			lex.restore(st)
			err = r.warnAt(lex, st.tok.start, "missing %q before %q", stop, sym)
			return items, err
		default:
			err = r.warnAt(lex, lex.tok.start, "unexpected %q skipped", string(lex.tok.text))
			if err != nil {
				return nil, err
			}
		}
	}
}

// readArray reads an array.  The opening bracket must already be consumed.
func (r *reader) readArray(lex *lexer) (Array, error) {
	items, err := r.parseObject(lex, symEndArray)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Object{}
	}
	return Array(items), nil
}

// readDict reads a dictionary.  The opening "<<" must already be consumed.
// Entries with null values are omitted.
func (r *reader) readDict(lex *lexer) (Dict, error) {
	start := lex.tok.start
	items, err := r.parseObject(lex, symEndDictionary)
	if err != nil {
		return nil, err
	}

	dict := make(Dict, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		key, ok := items[i].(Name)
		if !ok {
			err := r.warnAt(lex, start, "dictionary key %s is not a name", Format(items[i]))
			if err != nil {
				return nil, err
			}
			i--
			continue
		}
		if i+1 >= len(items) {
			err := r.warnAt(lex, start, "no value for dictionary key /%s", key)
			if err != nil {
				return nil, err
			}
			break
		}
		if items[i+1] != nil {
			dict[key] = items[i+1]
		}
	}
	return dict, nil
}

// readObjectBody reads the value of an indirect object, starting at the
// current position of lex.  If allowStream is set and the value is a
// dictionary followed by the "stream" keyword, the stream data is read as
// well.
func (r *reader) readObjectBody(lex *lexer, allowStream bool) (Object, error) {
	sym, err := lex.scanNextToken(true)
	if err != nil {
		return nil, err
	}
	obj, ok, err := r.readValue(lex, sym)
	if err != nil {
		return nil, err
	}
	if !ok {
		if sym == symEndObj {
			// "n g obj endobj" is an empty object
			lex.SetPosition(lex.tok.start)
			return nil, r.warnAt(lex, lex.tok.start, "missing object value")
		}
		return nil, lex.malformed(lex.tok.start,
			fmt.Sprintf("unexpected %q at start of object", string(lex.tok.text)))
	}

	dict, isDict := obj.(Dict)
	if !isDict || !allowStream {
		return obj, nil
	}

	st := lex.save()
	sym, err = lex.scanNextToken(false)
	if err != nil {
		return nil, err
	}
	if sym != symBeginStream {
		lex.restore(st)
		return dict, nil
	}
	return r.readStream(lex, dict)
}

// readObjectHeader reads "num gen obj".
func (r *reader) readObjectHeader(lex *lexer) (Reference, error) {
	pos := lex.Position()
	var vals [2]int64
	for i := range vals {
		sym, err := lex.scanNextToken(false)
		if err != nil {
			return 0, err
		}
		if sym != symInteger || lex.tok.ival < 0 {
			return 0, r.diag.malformed(pos, errNoObjectHeader)
		}
		vals[i] = lex.tok.ival
	}
	sym, err := lex.scanNextToken(false)
	if err != nil {
		return 0, err
	}
	if sym != symObj || vals[1] > 65535 {
		return 0, r.diag.malformed(pos, errNoObjectHeader)
	}
	return NewReference(uint32(vals[0]), uint16(vals[1])), nil
}

// readIndirect reads the indirect object starting at the given file
// offset.  The reference found in the object header is returned together
// with the value.
func (r *reader) readIndirect(pos int64) (Reference, Object, error) {
	lex := r.lex
	lex.SetPosition(pos)
	ref, err := r.readObjectHeader(lex)
	if err != nil {
		return 0, nil, err
	}

	obj, err := r.readObjectBody(lex, true)
	if err != nil {
		return ref, nil, err
	}

	st := lex.save()
	sym, err := lex.scanNextToken(false)
	if err != nil {
		return ref, nil, err
	}
	if sym != symEndObj {
		lex.restore(st)
		err = r.warnAt(lex, st.tok.start, "missing endobj for object %s", ref)
		if err != nil {
			return ref, nil, err
		}
	}
	return ref, obj, nil
}

// readStream reads the data of a stream.  The "stream" keyword must
// already be consumed.  On success, /Length in the returned stream
// dictionary is a direct integer giving the number of data bytes.
func (r *reader) readStream(lex *lexer, dict Dict) (*Stream, error) {
	start, err := lex.findStreamStart()
	if err != nil {
		return nil, err
	}

	length, err := r.streamLength(dict)
	if errors.Is(err, errObjStmPending) {
		return nil, err
	}
	if err == nil && !r.endstreamFollows(lex, start, length) {
		err = fmt.Errorf("%w: %d", errInvalidLength, length)
	}
	if err != nil {
		length, err = r.repairStreamLength(lex, start, err)
		if err != nil {
			return nil, err
		}
	}

	data := make([]byte, length)
	n, err := lex.r.ReadAt(data, start)
	if int64(n) < length {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, r.diag.malformed(start, err)
	}

	lex.SetPosition(start + length)
	_, err = lex.scanNextToken(false) // endstream
	if err != nil {
		return nil, err
	}

	dict["Length"] = Integer(length)
	return &Stream{Dict: dict, Data: data}, nil
}

func (r *reader) repairStreamLength(lex *lexer, start int64, cause error) (int64, error) {
	err := r.warnAt(lex, start, "%v, searching for endstream", cause)
	if err != nil {
		return 0, err
	}
	return lex.determineStreamLength(start, streamSearchWindow)
}

// endstreamFollows checks whether the "endstream" keyword follows after
// length bytes of stream data.
func (r *reader) endstreamFollows(lex *lexer, start, length int64) bool {
	if length < 0 || start+length > lex.size {
		return false
	}
	st := lex.save()
	defer lex.restore(st)

	lex.SetPosition(start + length)
	sym, err := lex.scanNextToken(false)
	return err == nil && sym == symEndStream
}

// streamLength determines the value of /Length in a stream dictionary.
func (r *reader) streamLength(dict Dict) (int64, error) {
	switch x := dict["Length"].(type) {
	case Integer:
		return int64(x), nil
	case Reference:
		return r.resolveLength(x)
	case nil:
		return 0, fmt.Errorf("%w: missing /Length", errInvalidLength)
	default:
		return 0, fmt.Errorf("%w: /Length %s", errInvalidLength, Format(x))
	}
}

// resolveLength reads an indirect /Length value.  The file lexer state is
// saved and restored around the nested read, so that the caller can
// continue reading the enclosing stream.
func (r *reader) resolveLength(ref Reference) (int64, error) {
	e, ok := r.xref.Get(ref)
	if !ok {
		return 0, fmt.Errorf("%w: %s is undefined", errInvalidLength, ref)
	}
	if !e.Resolved {
		switch e.Kind {
		case EntryOffset:
			if r.level >= maxLengthDepth {
				return 0, fmt.Errorf("%w: nesting too deep", errInvalidLength)
			}
			r.level++
			st := r.lex.save()
			fileRef, obj, err := r.readIndirect(e.Pos)
			r.lex.restore(st)
			r.level--
			if errors.Is(err, errObjStmPending) {
				return 0, err
			} else if err != nil {
				return 0, fmt.Errorf("%w: %v", errInvalidLength, err)
			}
			if fileRef != ref {
				return 0, fmt.Errorf("%w: found %s instead of %s",
					errInvalidLength, fileRef, ref)
			}
			if _, isInt := obj.(Integer); isInt {
				r.xref.setValue(ref, obj)
			}
			return lengthValue(ref, obj)

		case EntryInStream:
			stm, open := r.objStms[e.Container]
			if !open {
				if r.inObjStmPhase && !r.failedStms[e.Container] {
					return 0, errObjStmPending
				}
				return 0, fmt.Errorf("%w: object stream %d not available",
					errInvalidLength, e.Container)
			}
			obj, err := r.readFromObjStm(stm, ref, e.Pos)
			if err != nil {
				return 0, fmt.Errorf("%w: %v", errInvalidLength, err)
			}
			r.xref.setValue(ref, obj)
			return lengthValue(ref, obj)
		}
	}
	return lengthValue(ref, e.Value)
}

func lengthValue(ref Reference, obj Object) (int64, error) {
	x, ok := obj.(Integer)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %s", errInvalidLength, ref, Format(obj))
	}
	return int64(x), nil
}

// warnAt reports a recoverable problem found by the given lexer.
func (r *reader) warnAt(lex *lexer, pos int64, format string, args ...interface{}) error {
	return lex.report(pos, format, args...)
}
