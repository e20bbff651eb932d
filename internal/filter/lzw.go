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
	"compress/lzw"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// newLZWReader decodes LZWDecode data.  If earlyChange is set, the code
// width increases one code early, as in TIFF files.
func newLZWReader(r io.Reader, earlyChange bool) io.Reader {
	if earlyChange {
		return tifflzw.NewReader(r, tifflzw.MSB, 8)
	}
	return lzw.NewReader(r, lzw.MSB, 8)
}
