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
	"strings"
	"testing"
)

func TestNeighborhoodText(t *testing.T) {
	data := "first line\nsecond line\r\nthird line\n"
	pos := int64(strings.Index(data, "line\r"))
	got := Neighborhood(strings.NewReader(data), int64(len(data)), pos, false)

	want := "byte 18 (line 2, column 8):\n" +
		"first line\n" +
		"second line\n" +
		"       ^\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestNeighborhoodHex(t *testing.T) {
	data := strings.Repeat("x", 100) + "\x00\x01\x02"
	got := Neighborhood(strings.NewReader(data), int64(len(data)), 100, true)

	if !strings.HasPrefix(got, "byte 100 (line 1, column 101):\n") {
		t.Errorf("wrong header in %q", got)
	}
	// the dump starts 64 bytes before the offset
	if !strings.Contains(got, "\n00000024  78 78") {
		t.Errorf("file offsets missing in %q", got)
	}
	if !strings.Contains(got, "00 01 02") {
		t.Errorf("data missing in %q", got)
	}
}

func TestNeighborhoodAuto(t *testing.T) {
	binary := string([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	got := neighborhood(strings.NewReader(binary), 10, 5)
	if !strings.Contains(got, "00000000  00 01 02") {
		t.Errorf("binary data not shown as hex: %q", got)
	}

	text := "1 0 obj\n<< /A 1 >>\nendobj\n"
	got = neighborhood(strings.NewReader(text), int64(len(text)), 8)
	if !strings.Contains(got, "<< /A 1 >>\n^\n") {
		t.Errorf("text not shown as text: %q", got)
	}
}

func TestNeighborhoodOutOfRange(t *testing.T) {
	data := "abc"
	if got := Neighborhood(strings.NewReader(data), 3, 10, false); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestLineColumn(t *testing.T) {
	data := "a\rb\r\nc\nd"
	cases := []struct {
		pos       int64
		line, col int
	}{
		{0, 1, 1},
		{2, 2, 1},
		{5, 3, 1},
		{7, 4, 1},
		{8, 4, 2},
	}
	for _, test := range cases {
		line, col := lineColumn(strings.NewReader(data), test.pos)
		if line != test.line || col != test.col {
			t.Errorf("%d: got %d:%d, want %d:%d", test.pos, line, col, test.line, test.col)
		}
	}
}
