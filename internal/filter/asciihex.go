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
	"fmt"
	"io"
)

// hexReader decodes data in ASCIIHexDecode format.
type hexReader struct {
	r        *bufio.Reader
	err      error
	haveHigh bool
	high     byte
}

func newASCIIHexReader(r io.Reader) io.Reader {
	return &hexReader{r: bufio.NewReader(r)}
}

// Read implements the [io.Reader] interface.
func (r *hexReader) Read(p []byte) (n int, err error) {
	for n < len(p) && r.err == nil {
		c, err := r.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				// missing end-of-data marker
				n += r.flush(p[n:])
			}
			r.err = err
			break
		}

		var b byte
		switch {
		case c >= '0' && c <= '9':
			b = c - '0'
		case c >= 'A' && c <= 'F':
			b = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			b = c - 'a' + 10
		case c == 0 || c == 9 || c == 10 || c == 12 || c == 13 || c == 32:
			continue
		case c == '>':
			n += r.flush(p[n:])
			r.err = io.EOF
			continue
		default:
			r.err = fmt.Errorf("invalid character %q in ASCIIHex data", c)
			continue
		}

		if r.haveHigh {
			p[n] = r.high<<4 | b
			n++
			r.haveHigh = false
		} else {
			r.high = b
			r.haveHigh = true
		}
	}
	if n > 0 {
		return n, nil
	}
	return 0, r.err
}

// flush writes a pending high nibble, padded with a zero nibble.
func (r *hexReader) flush(p []byte) int {
	if !r.haveHigh {
		return 0
	}
	r.haveHigh = false
	p[0] = r.high << 4
	return 1
}
