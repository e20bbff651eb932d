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
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// dumpContext is the number of bytes shown before and after the position
// in a neighborhood dump.
const dumpContext = 64

// Neighborhood shows the bytes of a file around the given offset.  If
// asHex is set, a hex dump is produced.  Otherwise, the text lines around
// the offset are shown, with a marker below the byte at pos.
func Neighborhood(r io.ReaderAt, size, pos int64, asHex bool) string {
	if pos < 0 || pos > size {
		return ""
	}
	start := max(pos-dumpContext, 0)
	end := min(pos+dumpContext, size)
	buf := make([]byte, end-start)
	n, err := r.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return ""
	}
	buf = buf[:n]

	line, col := lineColumn(r, pos)
	header := fmt.Sprintf("byte %d (line %d, column %d):\n", pos, line, col)
	if asHex {
		return header + hexDump(buf, start)
	}
	return header + textDump(buf, int(pos-start))
}

// neighborhood is used for the error messages of fatal problems.  Text is
// shown as text, binary data as a hex dump.
func neighborhood(r io.ReaderAt, size, pos int64) string {
	start := max(pos-dumpContext, 0)
	end := min(pos+dumpContext, size)
	if end <= start {
		return ""
	}
	buf := make([]byte, end-start)
	n, _ := r.ReadAt(buf, start)
	return Neighborhood(r, size, pos, !isText(buf[:n]))
}

// hexDump formats data like "hexdump -C", using file offsets as addresses.
func hexDump(data []byte, start int64) string {
	lines := strings.Split(strings.TrimRight(hex.Dump(data), "\n"), "\n")
	for i, line := range lines {
		// replace the relative offset by the file offset
		if len(line) >= 8 {
			lines[i] = fmt.Sprintf("%08x", start+int64(i*16)) + line[8:]
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// textDump shows the lines of text around offset idx in data.
func textDump(data []byte, idx int) string {
	lineStart := bytes.LastIndexAny(data[:idx], "\r\n") + 1
	lineEnd := len(data)
	if k := bytes.IndexAny(data[idx:], "\r\n"); k >= 0 {
		lineEnd = idx + k
	}

	b := &strings.Builder{}
	if lineStart > 0 {
		prev := bytes.TrimRight(data[:lineStart], "\r\n")
		if k := bytes.LastIndexAny(prev, "\r\n"); k >= 0 {
			prev = prev[k+1:]
		}
		b.WriteString(printable(prev))
		b.WriteByte('\n')
	}
	b.WriteString(printable(data[lineStart:lineEnd]))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", idx-lineStart))
	b.WriteString("^\n")
	return b.String()
}

// lineColumn computes the 1-based line and column of a file offset.
// CR, LF and CRLF all count as one line break.
func lineColumn(r io.ReaderAt, pos int64) (int, int) {
	line, col := 1, 1
	buf := make([]byte, 4096)
	var prev byte
	for off := int64(0); off < pos; {
		n, err := r.ReadAt(buf[:min(int64(len(buf)), pos-off)], off)
		for _, c := range buf[:n] {
			switch {
			case c == '\n' && prev == '\r':
				// second half of CRLF
			case c == '\n' || c == '\r':
				line++
				col = 1
			default:
				col++
			}
			prev = c
		}
		off += int64(n)
		if err != nil || n == 0 {
			break
		}
	}
	return line, col
}

func isText(data []byte) bool {
	bad := 0
	for _, c := range data {
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' || c >= 0x7F {
			bad++
		}
	}
	return bad*10 <= len(data)
}

func printable(data []byte) string {
	b := make([]byte, len(data))
	for i, c := range data {
		if c < 0x20 || c >= 0x7F {
			c = '.'
		}
		b[i] = c
	}
	return string(b)
}
