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
	"io"
	"strconv"
	"strings"
	"time"
)

// Version represents a version of PDF standard.
type Version int

// PDF versions supported by this library.
const (
	_ Version = iota
	V1_0
	V1_1
	V1_2
	V1_3
	V1_4
	V1_5
	V1_6
	V1_7
	V2_0
)

var versionNames = [...]string{
	V1_0: "1.0", V1_1: "1.1", V1_2: "1.2", V1_3: "1.3", V1_4: "1.4",
	V1_5: "1.5", V1_6: "1.6", V1_7: "1.7", V2_0: "2.0",
}

// ParseVersion parses a PDF version string like "1.7".
func ParseVersion(verString string) (Version, error) {
	for v := V1_0; v <= V2_0; v++ {
		if versionNames[v] == verString {
			return v, nil
		}
	}
	return 0, errVersion
}

// ToString returns the string representation of ver, e.g. "1.7".
// An error is returned for values outside the range V1_0 to V2_0.
func (ver Version) ToString() (string, error) {
	if ver < V1_0 || ver > V2_0 {
		return "", errVersion
	}
	return versionNames[ver], nil
}

func (ver Version) String() string {
	if s, err := ver.ToString(); err == nil {
		return s
	}
	return "pdfread.Version(" + strconv.Itoa(int(ver)) + ")"
}

// headerSearchSize is the number of bytes at the start of a file which
// are searched for the "%PDF-" marker.
const headerSearchSize = 1024

// findHeader locates the "%PDF-x.y" marker near the start of the file.
// It returns the offset of the marker and the version string found.
func findHeader(r io.ReaderAt, size int64) (int64, string, error) {
	n := min(size, headerSearchSize)
	buf := make([]byte, n)
	k, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return 0, "", err
	}
	buf = buf[:k]

	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 {
		return 0, "", &MalformedFileError{Err: errNoPDF}
	}
	rest := buf[idx+5:]
	end := 0
	for end < len(rest) && end < 3 && (rest[end] == '.' || rest[end] >= '0' && rest[end] <= '9') {
		end++
	}
	return int64(idx), string(rest[:end]), nil
}

// Date creates a PDF String object encoding the given date and time.
func Date(t time.Time) String {
	s := t.Format("D:20060102150405-0700")
	k := len(s) - 2
	s = s[:k] + "'" + s[k:]
	return String(s)
}

// ParseDate interprets a PDF date string.  A zero time and false is returned
// if the string cannot be parsed.
func ParseDate(s string) (time.Time, bool) {
	s = strings.ReplaceAll(s, "'", "")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20") {
		s = "D:" + s
	}

	formats := []string{
		"D:20060102150405-0700",
		"D:20060102150405-07",
		"D:20060102150405Z0000",
		"D:20060102150405Z",
		"D:20060102150405",
		"D:200601021504",
		"D:20060102",
	}
	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
