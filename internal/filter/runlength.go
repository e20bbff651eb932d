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
package filter

import (
	"bufio"
	"io"
)

// rlReader decodes data in RunLengthDecode format.
type rlReader struct {
	br      *bufio.Reader
	err     error
	literal bool
	count   int
	value   byte
}

func newRunLengthReader(r io.Reader) io.Reader {
	return &rlReader{br: bufio.NewReader(r)}
}

// Read implements the [io.Reader] interface.
func (r *rlReader) Read(p []byte) (n int, err error) {
	for len(p) > 0 && r.err == nil {
		if r.count > 0 {
			count := min(r.count, len(p))
			if r.literal {
				k, err := io.ReadFull(r.br, p[:count])
				n += k
				r.count -= k
				p = p[k:]
				if err == io.ErrUnexpectedEOF {
					err = io.EOF
				}
				r.err = err
			} else {
				for i := range count {
					p[i] = r.value
				}
				n += count
				r.count -= count
				p = p[count:]
			}
			continue
		}

		length, err := r.br.ReadByte()
		if err != nil {
			r.err = err
			break
		}
		switch {
		case length == 128: // end of data
			r.err = io.EOF
		case length < 128:
			r.count = int(length) + 1
			r.literal = true
		default:
			b, err := r.br.ReadByte()
			if err != nil {
				r.err = err
				break
			}
			r.count = 257 - int(length)
			r.literal = false
			r.value = b
		}
	}
	if n > 0 {
		return n, nil
	}
	return 0, r.err
}
