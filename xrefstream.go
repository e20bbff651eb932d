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

// xrefSubSection is one (start, count) pair from the /Index array of a
// cross-reference stream.
type xrefSubSection struct {
	Start, Size uint32
}

// readXRefStream reads the cross-reference stream at the given offset.
// If hybrid is set, the stream is referenced by the /XRefStm entry of a
// classic trailer and entries already defined by the table are skipped
// silently.
func (r *reader) readXRefStream(pos int64, hybrid bool) (Dict, error) {
	ref, obj, err := r.readIndirect(pos)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, r.diag.malformed(pos, errors.New("invalid xref stream"))
	}
	// the object number may have been reused by a newer section
	if e, ok := r.xref.Get(ref); !ok || e.Kind == EntryPending || e.Kind == EntryOffset && e.Pos == pos {
		r.special[ref] = true
		r.xref.setValue(ref, stream)
	}

	dict := stream.Dict
	if tp, _ := dict["Type"].(Name); tp != "XRef" {
		err = r.diag.warn(pos, "xref stream has /Type %s", Format(dict["Type"]))
		if err != nil {
			return nil, err
		}
	}

	w, ss, err := checkXRefStreamDict(dict)
	if err != nil {
		return nil, r.diag.malformed(pos, err)
	}
	data, err := decodeStream(stream, resolveDirect)
	if err != nil {
		return nil, r.diag.malformed(pos, fmt.Errorf("xref stream: %w", err))
	}

	err = r.decodeXRefStream(pos, data, w, ss, hybrid)
	if err != nil {
		return nil, err
	}
	return dict, nil
}

func checkXRefStreamDict(dict Dict) ([]int, []xrefSubSection, error) {
	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 || size > 1<<32 {
		return nil, nil, errors.New("invalid /Size in xref stream")
	}
	W, ok := dict["W"].(Array)
	if !ok || len(W) < 3 {
		return nil, nil, errors.New("invalid /W in xref stream")
	}
	var w []int
	for i, Wi := range W {
		wi, ok := Wi.(Integer)
		if !ok || wi < 0 || i < 3 && wi > 8 || wi > 64 {
			return nil, nil, errors.New("invalid /W in xref stream")
		}
		w = append(w, int(wi))
	}

	var ss []xrefSubSection
	switch index := dict["Index"].(type) {
	case nil:
		ss = append(ss, xrefSubSection{0, uint32(size)})
	case Array:
		if len(index)%2 != 0 {
			return nil, nil, errors.New("invalid /Index in xref stream")
		}
		for i := 0; i < len(index); i += 2 {
			start, ok1 := index[i].(Integer)
			n, ok2 := index[i+1].(Integer)
			if !ok1 || !ok2 || start < 0 || n < 0 || start+n > 1<<32 {
				return nil, nil, errors.New("invalid /Index in xref stream")
			}
			ss = append(ss, xrefSubSection{uint32(start), uint32(n)})
		}
	default:
		return nil, nil, errors.New("invalid /Index in xref stream")
	}
	return w, ss, nil
}

func (r *reader) decodeXRefStream(pos int64, data []byte, w []int, ss []xrefSubSection, hybrid bool) error {
	wTotal := 0
	for _, wi := range w {
		wTotal += wi
	}
	if wTotal == 0 {
		return r.diag.malformed(pos, errors.New("invalid /W in xref stream"))
	}

	w0 := w[0]
	w1 := w[1]
	w2 := w[2]
	for _, sec := range ss {
		for k := uint32(0); k < sec.Size; k++ {
			if len(data) < wTotal {
				return r.diag.warn(pos, "xref stream data too short")
			}
			buf := data[:wTotal]
			data = data[wTotal:]

			num := sec.Start + k
			tp := decodeInt(buf[:w0])
			if w0 == 0 {
				tp = 1
			}
			a := decodeInt(buf[w0 : w0+w1])
			b := decodeInt(buf[w0+w1 : w0+w1+w2])

			ok, err := r.claimEntry(num, pos, hybrid)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			switch tp {
			case 0:
				// free/deleted object
				// a = next free object
				// b = generation number to be used if the object is resurrected
			case 1:
				// used object, not compressed
				// a = byte offset of the object
				// b = generation number
				if b > 65535 {
					err = r.diag.warn(pos, "invalid generation %d for object %d", b, num)
					if err != nil {
						return err
					}
					continue
				}
				r.xref.addOffset(NewReference(num, uint16(b)), a)
			case 2:
				// used object, compressed
				// a = object number of the compressed stream (generation number 0)
				// b = index within the stream
				if a > 0xFFFFFFFF {
					err = r.diag.warn(pos, "invalid object stream %d for object %d", a, num)
					if err != nil {
						return err
					}
					continue
				}
				r.xref.addInStream(NewReference(num, 0), uint32(a), b)
			default:
				// other types are references to the null object
			}
		}
	}
	return nil
}

func decodeInt(buf []byte) (res int64) {
	for _, x := range buf {
		res = res<<8 | int64(x)
	}
	return res
}

// resolveDirect is used where indirect objects must not occur.
func resolveDirect(obj Object) Object {
	if _, isRef := obj.(Reference); isRef {
		return nil
	}
	return obj
}
