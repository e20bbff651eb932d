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
	"cmp"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/exp/slices"
)

// Object represents an object in a PDF file.  The value nil represents
// the PDF null object.
type Object interface {
	PDF(w io.Writer) error
}

// Bool represents a boolean value in a PDF file.
type Bool bool

// Integer represents an integer constant in a PDF file.  Both the 32-bit
// integers and the long integers found in files map to this type.
type Integer int64

// Real represents an real number in a PDF file.
type Real float64

// String represents a raw string in a PDF file.
type String []byte

// TextString is a string which was stored in the file with a byte order
// mark and has been decoded to UTF-8.
type TextString string

// Name represents a name object in a PDF file.  The leading slash is not
// part of the value.
type Name string

// Array represent an array of objects in a PDF file.
type Array []Object

// Dict represent a Dictionary object in a PDF file.
type Dict map[Name]Object

// Stream represent a stream object in a PDF file.
// Data holds the stream payload as stored in the file, after
// decryption but before any filters have been applied.
type Stream struct {
	Dict
	Data []byte
}

// Reference represents a reference to an indirect object in a PDF file.
// The lowest 32 bits represent the object number, the next 16 bits the
// generation number.
type Reference uint64

// NewReference creates a new reference object.
func NewReference(number uint32, generation uint16) Reference {
	return Reference(uint64(number) | uint64(generation)<<32)
}

// Number returns the object number of the reference.
func (x Reference) Number() uint32 {
	return uint32(x)
}

// Generation returns the generation number of the reference.
func (x Reference) Generation() uint16 {
	return uint16(x >> 32)
}

func (x Reference) String() string {
	return fmt.Sprintf("%d %d R", x.Number(), x.Generation())
}

func compareRefs(a, b Reference) int {
	if c := cmp.Compare(a.Number(), b.Number()); c != 0 {
		return c
	}
	return cmp.Compare(a.Generation(), b.Generation())
}

// PDF implements the Object interface.
func (x Bool) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Integer) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Real) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x String) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.  The string is written as UTF-16BE
// with a byte order mark.
func (x TextString) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Name) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Array) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Dict) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x *Stream) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Reference) PDF(w io.Writer) error { return writeObject(w, x) }

// Format returns the PDF representation of an object, as used in diagnostic
// output.
func Format(x Object) string {
	buf := &bytes.Buffer{}
	appendObject(buf, x)
	return buf.String()
}

func writeObject(w io.Writer, obj Object) error {
	buf := &bytes.Buffer{}
	appendObject(buf, obj)
	_, err := w.Write(buf.Bytes())
	return err
}

func appendObject(buf *bytes.Buffer, obj Object) {
	switch x := obj.(type) {
	case nil:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(x)))
	case Integer:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case Real:
		s := strconv.FormatFloat(float64(x), 'f', -1, 64)
		buf.WriteString(s)
		if !strings.ContainsRune(s, '.') {
			buf.WriteString(".0")
		}
	case String:
		appendString(buf, x)
	case TextString:
		u := utf16.Encode([]rune(string(x)))
		raw := make([]byte, 0, 2+2*len(u))
		raw = append(raw, 0xFE, 0xFF)
		for _, c := range u {
			raw = append(raw, byte(c>>8), byte(c))
		}
		appendString(buf, raw)
	case Name:
		buf.WriteByte('/')
		for i := 0; i < len(x); i++ {
			c := x[i]
			if c <= ' ' || c > '~' || c == '#' || isDelimiter[c] {
				fmt.Fprintf(buf, "#%02X", c)
			} else {
				buf.WriteByte(c)
			}
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(' ')
			}
			appendObject(buf, elem)
		}
		buf.WriteByte(']')
	case Dict:
		if x == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteString("<<")
		for _, key := range sortedKeys(x) {
			if x[key] == nil {
				continue
			}
			buf.WriteByte('\n')
			appendObject(buf, key)
			buf.WriteByte(' ')
			appendObject(buf, x[key])
		}
		buf.WriteString("\n>>")
	case *Stream:
		if x == nil {
			buf.WriteString("null")
			return
		}
		appendObject(buf, x.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(x.Data)
		buf.WriteString("\nendstream")
	case Reference:
		buf.WriteString(x.String())
	default:
		_ = obj.PDF(buf)
	}
}

// appendString writes s as a literal string, or as a hex string if more
// than a third of the bytes would need an escape.
func appendString(buf *bytes.Buffer, s []byte) {
	escapes := 0
	for _, c := range s {
		if c < ' ' || c > '~' {
			escapes++
		}
	}
	if 3*escapes > len(s) {
		fmt.Fprintf(buf, "<%X>", s)
		return
	}

	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < ' ' || c > '~' {
				fmt.Fprintf(buf, `\%03o`, c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte(')')
}

func sortedKeys(d Dict) []Name {
	keys := make([]Name, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (x Array) String() string {
	return fmt.Sprintf("<Array, %d elements>", len(x))
}

func (x Dict) String() string {
	if tp, ok := x["Type"].(Name); ok {
		return fmt.Sprintf("<%s Dict, %d entries>", tp, len(x))
	}
	return fmt.Sprintf("<Dict, %d entries>", len(x))
}

func (x *Stream) String() string {
	desc := "Stream"
	if tp, ok := x.Dict["Type"].(Name); ok {
		desc = string(tp) + " Stream"
	}
	desc += fmt.Sprintf(", %d bytes", len(x.Data))
	switch f := x.Dict["Filter"].(type) {
	case Name:
		desc += ", " + string(f)
	case Array:
		for _, elem := range f {
			if name, ok := elem.(Name); ok {
				desc += ", " + string(name)
			}
		}
	}
	return "<" + desc + ">"
}
