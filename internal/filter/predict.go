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
	"errors"
	"fmt"
	"io"
)

const maxColumns = 1 << 20

// predictReader undoes the effect of a PNG or TIFF predictor.
type predictReader struct {
	r         io.Reader
	predictor int
	bpc       int
	bpp       int // bytes per pixel, at least 1
	png       bool

	prev    []byte
	row     []byte // tag byte (PNG only) followed by the row data
	pending []byte
	err     error
}

func newPredictReader(r io.Reader, p Params) (io.Reader, error) {
	if p.Predictor <= 1 {
		return r, nil
	}

	colors := p.Colors
	if colors == 0 {
		colors = 1
	}
	bpc := p.BitsPerComponent
	if bpc == 0 {
		bpc = 8
	}
	columns := p.Columns
	if columns == 0 {
		columns = 1
	}

	if colors < 1 || colors > 256 {
		return nil, fmt.Errorf("invalid Colors=%d", colors)
	}
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("invalid BitsPerComponent=%d", bpc)
	}
	if columns < 1 || columns > maxColumns {
		return nil, fmt.Errorf("invalid Columns=%d", columns)
	}

	bitsPerPixel := colors * bpc
	rowLen := (columns*bitsPerPixel + 7) / 8
	res := &predictReader{
		r:         r,
		predictor: p.Predictor,
		bpc:       bpc,
		bpp:       max((bitsPerPixel+7)/8, 1),
		prev:      make([]byte, rowLen),
	}

	switch {
	case p.Predictor == 2:
		if bpc != 8 && bpc != 16 {
			return nil, fmt.Errorf("%w: TIFF predictor with %d bits per component",
				ErrUnsupported, bpc)
		}
		res.row = make([]byte, rowLen)
	case p.Predictor >= 10 && p.Predictor <= 15:
		res.png = true
		res.row = make([]byte, rowLen+1)
	default:
		return nil, fmt.Errorf("invalid Predictor=%d", p.Predictor)
	}
	return res, nil
}

// Read implements the [io.Reader] interface.
func (r *predictReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		n, err := io.ReadFull(r.r, r.row)
		if err == io.EOF {
			r.err = io.EOF
			continue
		} else if err == io.ErrUnexpectedEOF {
			r.err = io.EOF
		} else if err != nil {
			r.err = err
			continue
		}

		var data []byte
		if r.png {
			if n < 2 {
				continue
			}
			data, err = r.decodePNGRow(r.row[0], r.row[1:n])
		} else {
			data, err = r.decodeTIFFRow(r.row[:n])
		}
		if err != nil {
			r.err = err
			continue
		}
		r.pending = data
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *predictReader) decodePNGRow(tag byte, cur []byte) ([]byte, error) {
	prev := r.prev
	bpp := r.bpp
	switch tag {
	case 0: // None
	case 1: // Sub
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case 2: // Up
		for i := range cur {
			cur[i] += prev[i]
		}
	case 3: // Average
		for i := range cur {
			var left int
			if i >= bpp {
				left = int(cur[i-bpp])
			}
			cur[i] += byte((left + int(prev[i])) / 2)
		}
	case 4: // Paeth
		for i := range cur {
			var a, c byte
			if i >= bpp {
				a = cur[i-bpp]
				c = prev[i-bpp]
			}
			cur[i] += paeth(a, prev[i], c)
		}
	default:
		return nil, errors.New("malformed PNG predictor data")
	}
	copy(r.prev, cur)
	return cur, nil
}

func (r *predictReader) decodeTIFFRow(cur []byte) ([]byte, error) {
	bpp := r.bpp
	if r.bpc == 8 {
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
		return cur, nil
	}

	// 16 bits per component
	for i := bpp; i+1 < len(cur); i += 2 {
		v := uint16(cur[i])<<8 | uint16(cur[i+1])
		left := uint16(cur[i-bpp])<<8 | uint16(cur[i-bpp+1])
		v += left
		cur[i] = byte(v >> 8)
		cur[i+1] = byte(v)
	}
	return cur, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
