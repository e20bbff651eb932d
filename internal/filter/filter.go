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

// Package filter implements the decoding side of the standard PDF stream
// filters.
package filter

import (
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupported is returned for filters which are recognised but cannot be
// decoded by this package.
var ErrUnsupported = errors.New("unsupported filter")

// Params holds the decode parameters of a filter.  Fields which are not
// used by a filter are ignored.  A zero value selects the default.
type Params struct {
	// Predictor, Colors, BitsPerComponent and Columns describe the
	// predictor applied after FlateDecode and LZWDecode.
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int

	// EarlyChange is used by LZWDecode.  The PDF default is 1, so
	// EarlyChangeOff must be used to request code width changes without
	// early change.
	EarlyChange int

	// K, EncodedByteAlign, BlackIs1 and Rows are used by CCITTFaxDecode,
	// together with Columns.
	K                int
	EncodedByteAlign bool
	BlackIs1         bool
	Rows             int
}

// EarlyChangeOff is the value of Params.EarlyChange which corresponds to
// /EarlyChange 0 in the PDF file.
const EarlyChangeOff = -1

// NewReader returns a reader which decodes the data read from r using the
// named filter.
func NewReader(name string, r io.Reader, p Params) (io.Reader, error) {
	switch name {
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, err
		}
		return newPredictReader(zr, p)
	case "LZWDecode", "LZW":
		return newPredictReader(newLZWReader(r, p.EarlyChange != EarlyChangeOff), p)
	case "ASCIIHexDecode", "AHx":
		return newASCIIHexReader(r), nil
	case "ASCII85Decode", "A85":
		return newASCII85Reader(r)
	case "RunLengthDecode", "RL":
		return newRunLengthReader(r), nil
	case "CCITTFaxDecode", "CCF":
		return newCCITTReader(r, p)
	case "Crypt":
		// decryption is handled separately
		return r, nil
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
		return nil, fmt.Errorf("%w: %s (image data)", ErrUnsupported, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
}

// IsImageFilter reports whether the filter produces image data which is
// passed on to the caller undecoded.
func IsImageFilter(name string) bool {
	switch name {
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
		return true
	}
	return false
}
