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
	"errors"
	"fmt"
	"strconv"
)

var (
	errVersion   = errors.New("unsupported PDF version")
	errNoPDF     = errors.New("PDF header not found")
	errNoXRef    = errors.New("startxref not found")
	errEncrypted = errors.New("unsupported encryption method")

	// ErrNoConvergence is returned when object streams cannot be opened
	// because the /Length values of their containers depend on each other.
	ErrNoConvergence = errors.New("object streams could not be opened (circular /Length references)")
)

// MalformedFileError indicates that the PDF file could not be parsed.
type MalformedFileError struct {
	Pos int64
	Err error

	// Neighborhood, if set, shows the bytes of the file around Pos.
	Neighborhood string
}

func (err *MalformedFileError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos > 0 {
		tail = " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return "not a valid PDF file" + middle + tail
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// AuthenticationError indicates that no valid password was supplied for an
// encrypted file.
type AuthenticationError struct {
	ID [][]byte

	// Owner is set if the owner password was required, because the file
	// was opened for modification.
	Owner bool
}

func (err *AuthenticationError) Error() string {
	if err.Owner {
		return "owner password required for modifying the document"
	}
	return "authentication failed for document ID " + fmt.Sprintf("%x", err.ID)
}

// IsMalformed reports whether err is (or wraps) a MalformedFileError.
func IsMalformed(err error) bool {
	var target *MalformedFileError
	return errors.As(err, &target)
}
