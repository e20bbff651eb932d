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
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

func newCCITTReader(r io.Reader, p Params) (io.Reader, error) {
	var sf ccitt.SubFormat
	switch {
	case p.K < 0:
		sf = ccitt.Group4
	case p.K == 0:
		sf = ccitt.Group3
	default:
		return nil, fmt.Errorf("%w: CCITT mixed 1D/2D encoding (K=%d)",
			ErrUnsupported, p.K)
	}

	width := p.Columns
	if width == 0 {
		width = 1728
	}
	if width < 0 || width > maxColumns {
		return nil, fmt.Errorf("invalid Columns=%d", width)
	}
	height := p.Rows
	if height <= 0 {
		height = ccitt.AutoDetectHeight
	}

	opts := &ccitt.Options{
		Align:  p.EncodedByteAlign,
		Invert: p.BlackIs1,
	}
	return ccitt.NewReader(r, ccitt.MSB, sf, width, height, opts), nil
}
