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
	"time"
)

func TestVersionRoundTrip(t *testing.T) {
	for v := V1_0; v <= V2_0; v++ {
		s, err := v.ToString()
		if err != nil {
			t.Fatal(err)
		}
		v2, err := ParseVersion(s)
		if err != nil || v2 != v {
			t.Errorf("%s: got %s, %v", s, v2, err)
		}
	}
	if _, err := ParseVersion("1.8"); err == nil {
		t.Error("1.8 accepted")
	}
	if s := Version(0).String(); !strings.HasPrefix(s, "pdfread.Version(") {
		t.Errorf("wrong string %q", s)
	}
}

func TestFindHeader(t *testing.T) {
	cases := []struct {
		in      string
		pos     int64
		version string
	}{
		{"%PDF-1.7\n", 0, "1.7"},
		{"junk\n%PDF-1.4\r\n", 5, "1.4"},
		{"%PDF-2.0", 0, "2.0"},
		{"%PDF-1.", 0, "1."},
	}
	for _, test := range cases {
		pos, version, err := findHeader(strings.NewReader(test.in), int64(len(test.in)))
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if pos != test.pos || version != test.version {
			t.Errorf("%q: got %d %q", test.in, pos, version)
		}
	}

	in := strings.Repeat(" ", headerSearchSize) + "%PDF-1.7\n"
	_, _, err := findHeader(strings.NewReader(in), int64(len(in)))
	if !IsMalformed(err) {
		t.Errorf("header after search window: got %v", err)
	}
}

func TestDate(t *testing.T) {
	loc := time.FixedZone("", -(5*60+30)*60)
	tm := time.Date(2026, 10, 19, 8, 15, 42, 0, loc)

	s := Date(tm)
	if want := "D:20261019081542-05'30"; string(s) != want {
		t.Errorf("got %q, want %q", s, want)
	}

	back, ok := ParseDate(string(s))
	if !ok || !back.Equal(tm) {
		t.Errorf("ParseDate(%q) = %s, %t", s, back, ok)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"D:20260102030405Z", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"D:20260102030405+01'00'", time.Date(2026, 1, 2, 2, 4, 5, 0, time.UTC)},
		{"20260102", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"D:202601020304", time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
	}
	for _, test := range cases {
		got, ok := ParseDate(test.in)
		if !ok || !got.Equal(test.want) {
			t.Errorf("%q: got %s, %t", test.in, got, ok)
		}
	}
	if _, ok := ParseDate("yesterday"); ok {
		t.Error("invalid date accepted")
	}
}
