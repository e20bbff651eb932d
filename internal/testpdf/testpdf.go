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
// Package testpdf assembles small PDF files for tests.  The builder keeps
// track of object offsets, so that correct cross-reference tables and
// streams can be written.
package testpdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Builder accumulates the bytes of a PDF file.
type Builder struct {
	buf     bytes.Buffer
	offsets map[int]int64
	gens    map[int]int
}

// New starts a new file with the given header version, e.g. "1.7".
func New(version string) *Builder {
	b := &Builder{
		offsets: make(map[int]int64),
		gens:    make(map[int]int),
	}
	b.buf.WriteString("%PDF-" + version + "\n%\xe2\xe3\xcf\xd3\n")
	return b
}

// Pos returns the current write position.
func (b *Builder) Pos() int64 {
	return int64(b.buf.Len())
}

// Raw appends s without any changes.
func (b *Builder) Raw(s string) {
	b.buf.WriteString(s)
}

// Offset returns the offset of the most recent object with the given
// number.
func (b *Builder) Offset(num int) int64 {
	return b.offsets[num]
}

// Object writes an indirect object and returns its offset.
func (b *Builder) Object(num, gen int, body string) int64 {
	pos := b.start(num, gen)
	fmt.Fprintf(&b.buf, "%d %d obj\n%s\nendobj\n", num, gen, body)
	return pos
}

// Stream writes a stream object.  The dictionary entries in dict are
// completed by /Length, unless dict contains a /Length entry already.
func (b *Builder) Stream(num, gen int, dict string, data []byte) int64 {
	pos := b.start(num, gen)
	if !strings.Contains(dict, "/Length") {
		dict += " /Length " + strconv.Itoa(len(data))
	}
	fmt.Fprintf(&b.buf, "%d %d obj\n<<%s>>\nstream\n", num, gen, dict)
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return pos
}

// Member is an object stored inside an object stream.
type Member struct {
	Num  int
	Body string
}

// ObjStmContent returns the decoded data of an object stream holding the
// given objects, together with the value for /First.
func ObjStmContent(members ...Member) ([]byte, int) {
	header := &bytes.Buffer{}
	body := &bytes.Buffer{}
	for _, m := range members {
		fmt.Fprintf(header, "%d %d ", m.Num, body.Len())
		body.WriteString(m.Body)
		body.WriteString("\n")
	}
	header.WriteString("\n")
	first := header.Len()
	return append(header.Bytes(), body.Bytes()...), first
}

// ObjStm writes an uncompressed object stream.  If length is empty, a
// direct /Length is used, otherwise length is used as the value of
// /Length (for example "20 0 R").
func (b *Builder) ObjStm(num int, length string, members ...Member) int64 {
	data, first := ObjStmContent(members...)
	dict := fmt.Sprintf(" /Type /ObjStm /N %d /First %d", len(members), first)
	if length != "" {
		dict += " /Length " + length
	}
	return b.Stream(num, 0, dict, data)
}

// Entry is one entry of a classic cross-reference table.
type Entry struct {
	Num  int
	Gen  int
	Pos  int64
	Free bool
}

// XRefTable writes a classic cross-reference table covering all objects
// written so far, followed by the trailer.  The trailer entries are
// completed by /Size.  The offset of the table is returned.
func (b *Builder) XRefTable(trailer string) int64 {
	maxNum := 0
	for num := range b.offsets {
		maxNum = max(maxNum, num)
	}
	entries := []Entry{{Num: 0, Gen: 65535, Free: true}}
	for num := 1; num <= maxNum; num++ {
		pos, ok := b.offsets[num]
		if ok {
			entries = append(entries, Entry{Num: num, Gen: b.gens[num], Pos: pos})
		} else {
			entries = append(entries, Entry{Num: num, Free: true})
		}
	}
	if !strings.Contains(trailer, "/Size") {
		trailer += " /Size " + strconv.Itoa(maxNum+1)
	}
	return b.XRefSection(entries, trailer)
}

// XRefSection writes a classic cross-reference table with the given
// entries, followed by the trailer.  Consecutive entries are grouped into
// subsections.
func (b *Builder) XRefSection(entries []Entry, trailer string) int64 {
	entries = append([]Entry(nil), entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Num < entries[j].Num })

	pos := b.Pos()
	b.buf.WriteString("xref\n")
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].Num == entries[j-1].Num+1 {
			j++
		}
		fmt.Fprintf(&b.buf, "%d %d\n", entries[i].Num, j-i)
		for _, e := range entries[i:j] {
			flag := 'n'
			if e.Free {
				flag = 'f'
			}
			fmt.Fprintf(&b.buf, "%010d %05d %c\r\n", e.Pos, e.Gen, flag)
		}
		i = j
	}
	fmt.Fprintf(&b.buf, "trailer\n<<%s>>\n", trailer)
	return pos
}

// StreamEntry is one entry of a cross-reference stream.
type StreamEntry struct {
	Num    int
	Type   int
	F2, F3 int64
}

// InUse returns the cross-reference stream entry for an object written
// earlier.
func (b *Builder) InUse(num int) StreamEntry {
	return StreamEntry{Num: num, Type: 1, F2: b.offsets[num], F3: int64(b.gens[num])}
}

// XRefStream writes a compressed cross-reference stream as object num.
// The offset of the stream object is returned.  The dictionary entries in
// extra are added to the stream dictionary.
func (b *Builder) XRefStream(num int, entries []StreamEntry, extra string) int64 {
	entries = append([]StreamEntry(nil), entries...)
	pos := b.Pos()
	entries = append(entries, StreamEntry{Num: num, Type: 1, F2: pos})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Num < entries[j].Num })

	raw := &bytes.Buffer{}
	var index []string
	size := 0
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].Num == entries[j-1].Num+1 {
			j++
		}
		index = append(index, fmt.Sprintf("%d %d", entries[i].Num, j-i))
		for _, e := range entries[i:j] {
			raw.WriteByte(byte(e.Type))
			raw.Write([]byte{byte(e.F2 >> 24), byte(e.F2 >> 16), byte(e.F2 >> 8), byte(e.F2)})
			raw.Write([]byte{byte(e.F3 >> 8), byte(e.F3)})
			size = max(size, e.Num+1)
		}
		i = j
	}

	data := &bytes.Buffer{}
	w := zlib.NewWriter(data)
	w.Write(raw.Bytes())
	w.Close()

	dict := fmt.Sprintf(" /Type /XRef /Size %d /W [1 4 2] /Index [%s] /Filter /FlateDecode%s",
		size, strings.Join(index, " "), extra)
	b.Stream(num, 0, dict, data.Bytes())
	return pos
}

// StartXRef writes the end of file marker, pointing to the
// cross-reference section at pos.
func (b *Builder) StartXRef(pos int64) {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", pos)
}

// Bytes returns the file contents.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// Reader returns a reader for the file contents.
func (b *Builder) Reader() *bytes.Reader {
	return bytes.NewReader(b.buf.Bytes())
}

func (b *Builder) start(num, gen int) int64 {
	pos := b.Pos()
	b.offsets[num] = pos
	b.gens[num] = gen
	return pos
}
