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
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// decodeTextString checks whether s starts with a byte order mark and, if
// so, decodes s to UTF-8.
func decodeTextString(s String) (TextString, bool) {
	switch {
	case bytes.HasPrefix(s, bomUTF8):
		body := s[len(bomUTF8):]
		if !utf8.Valid(body) {
			return "", false
		}
		return TextString(body), true
	case bytes.HasPrefix(s, bomUTF16BE), bytes.HasPrefix(s, bomUTF16LE):
		if len(s)%2 != 0 {
			return "", false
		}
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(s)
		if err != nil {
			return "", false
		}
		return TextString(out), true
	default:
		return "", false
	}
}

// redecodeStrings replaces all strings inside obj which carry a byte order
// mark by the corresponding TextString.  Containers are modified in place.
// The number of replaced strings is returned.
func redecodeStrings(obj Object) (Object, int) {
	switch x := obj.(type) {
	case String:
		if ts, ok := decodeTextString(x); ok {
			return ts, 1
		}
		return x, 0
	case Array:
		total := 0
		for i, elem := range x {
			val, n := redecodeStrings(elem)
			x[i] = val
			total += n
		}
		return x, total
	case Dict:
		total := 0
		binaryContents := x["Type"] == Name("Sig") || x["Type"] == Name("DocTimeStamp")
		for key, elem := range x {
			if binaryContents && key == "Contents" {
				continue
			}
			val, n := redecodeStrings(elem)
			x[key] = val
			total += n
		}
		return x, total
	case *Stream:
		_, n := redecodeStrings(x.Dict)
		return x, n
	default:
		return obj, 0
	}
}

// pdfDocHigh lists the characters at positions 0x80 to 0x9F of
// PDFDocEncoding.
var pdfDocHigh = [32]rune{
	0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
	0x2039, 0x203A, 0x2212, 0x2030, 0x201E, 0x201C, 0x201D, 0x2018,
	0x2019, 0x201A, 0x2122, 0xFB01, 0xFB02, 0x0141, 0x0152, 0x0160,
	0x0178, 0x017D, 0x0131, 0x0142, 0x0153, 0x0161, 0x017E, 0xFFFD,
}

// pdfDocEncode converts a string to PDFDocEncoding.  The second return value
// is false if s contains characters which cannot be represented.
func pdfDocEncode(s string) ([]byte, bool) {
	res := make([]byte, 0, len(s))
outer:
	for _, r := range s {
		switch {
		case r < 0x80:
			res = append(res, byte(r))
			continue
		case r == 0x20AC:
			res = append(res, 0xA0)
			continue
		case r >= 0xA1 && r <= 0xFF && r != 0xAD:
			res = append(res, byte(r))
			continue
		}
		for i, c := range pdfDocHigh {
			if c == r && c != 0xFFFD {
				res = append(res, byte(0x80+i))
				continue outer
			}
		}
		return nil, false
	}
	return res, true
}
