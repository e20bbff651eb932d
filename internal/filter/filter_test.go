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
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func decode(t *testing.T, name string, in []byte, p Params) []byte {
	t.Helper()
	r, err := NewReader(name, bytes.NewReader(in), p)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestASCIIHex(t *testing.T) {
	cases := []struct {
		in  string
		out []byte
	}{
		{"", []byte{}},
		{">", []byte{}},
		{"48656c6c6f>", []byte("Hello")},
		{"48 65\n6C 6c\t6F >", []byte("Hello")},
		{"414>", []byte{0x41, 0x40}},
		{"414", []byte{0x41, 0x40}},
		{"41>42", []byte{0x41}},
	}
	for _, c := range cases {
		got := decode(t, "ASCIIHexDecode", []byte(c.in), Params{})
		if d := cmp.Diff(c.out, got); d != "" {
			t.Errorf("%q: %s", c.in, d)
		}
	}
}

func TestASCIIHexInvalid(t *testing.T) {
	r, err := NewReader("AHx", bytes.NewReader([]byte("41x>")), Params{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = io.ReadAll(r)
	if err == nil {
		t.Error("invalid character not detected")
	}
}

func TestRunLength(t *testing.T) {
	in := []byte{2, 'a', 'b', 'c', 254, 'x', 128, 'z'}
	got := decode(t, "RunLengthDecode", in, Params{})
	want := []byte("abcxxx")
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
}

func TestASCII85(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"87cURD]j7BEbo7~>", "Hello world"},
		{"<~87cURD]j7BEbo7~>", "Hello world"},
		{"87cUR\nD]j7B Ebo7~>", "Hello world"},
		{"z~>", "\x00\x00\x00\x00"},
		{"zzz~>", string(make([]byte, 12))},
		{"zz87cURD]j7BEbo7~>", string(make([]byte, 8)) + "Hello world"},
		{"~>", ""},
	}
	for _, c := range cases {
		got := decode(t, "ASCII85Decode", []byte(c.in), Params{})
		if string(got) != c.out {
			t.Errorf("%q: got %q, want %q", c.in, got, c.out)
		}
	}
}

func TestFlate(t *testing.T) {
	want := bytes.Repeat([]byte("flate data "), 100)
	buf := &bytes.Buffer{}
	w := zlib.NewWriter(buf)
	w.Write(want)
	w.Close()

	got := decode(t, "FlateDecode", buf.Bytes(), Params{})
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
}

func TestLZWWithoutEarlyChange(t *testing.T) {
	want := bytes.Repeat([]byte("-----A---B"), 40)
	buf := &bytes.Buffer{}
	w := lzw.NewWriter(buf, lzw.MSB, 8)
	w.Write(want)
	w.Close()

	got := decode(t, "LZWDecode", buf.Bytes(), Params{EarlyChange: EarlyChangeOff})
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
}

func TestPNGPredictor(t *testing.T) {
	// two rows of three bytes, encoded with "Sub" and "Up"
	in := []byte{
		1, 10, 1, 1,
		2, 1, 1, 1,
	}
	p := Params{Predictor: 12, Columns: 3}
	got := decode(t, "FlateDecode", deflate(in), p)
	want := []byte{10, 11, 12, 11, 12, 13}
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
}

func TestPNGPredictorAveragePaeth(t *testing.T) {
	in := []byte{
		0, 10, 20,
		3, 5, 5,
		4, 1, 1,
	}
	p := Params{Predictor: 15, Columns: 2}
	got := decode(t, "FlateDecode", deflate(in), p)
	// row 2: 5+(0+10)/2 = 10, 5+(10+20)/2 = 20
	// row 3: 1+paeth(0,10,0) = 11, 1+paeth(11,20,10) = 21
	want := []byte{10, 20, 10, 20, 11, 21}
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
}

func TestTIFFPredictor(t *testing.T) {
	in := []byte{1, 1, 1, 2, 2, 2}
	p := Params{Predictor: 2, Colors: 1, Columns: 3}
	got := decode(t, "FlateDecode", deflate(in), p)
	want := []byte{1, 2, 3, 2, 4, 6}
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
}

func TestInvalidPredictor(t *testing.T) {
	_, err := NewReader("FlateDecode", bytes.NewReader(deflate(nil)), Params{Predictor: 7})
	if err == nil {
		t.Error("invalid predictor not detected")
	}
}

func TestUnsupported(t *testing.T) {
	for _, name := range []string{"DCTDecode", "JBIG2Decode", "Foo"} {
		_, err := NewReader(name, bytes.NewReader(nil), Params{})
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: got %v", name, err)
		}
	}
	_, err := NewReader("CCITTFaxDecode", bytes.NewReader(nil), Params{K: 1})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("CCITT K>0: got %v", err)
	}
	if !IsImageFilter("DCTDecode") || IsImageFilter("FlateDecode") {
		t.Error("IsImageFilter is wrong")
	}
}

func deflate(data []byte) []byte {
	buf := &bytes.Buffer{}
	w := zlib.NewWriter(buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}
