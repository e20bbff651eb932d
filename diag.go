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

	"github.com/unidoc/unidoc/common"
)

// Logger receives the diagnostics produced while a file is loaded.
// The method set is a subset of the logger interface in
// github.com/unidoc/unidoc/common, so a common.Logger can be used directly.
type Logger interface {
	Warning(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// commonLogger forwards to the package level logger of
// github.com/unidoc/unidoc/common.  The logger is looked up on every call, so
// that common.SetLogger takes effect for readers which are already open.
type commonLogger struct{}

func (commonLogger) Warning(format string, args ...interface{}) {
	common.Log.Warning(format, args...)
}

func (commonLogger) Debug(format string, args ...interface{}) {
	common.Log.Debug(format, args...)
}

// ErrorHandling determines how problems in malformed files are treated.
type ErrorHandling int

const (
	// ErrorHandlingReport logs problems as warnings and continues.
	ErrorHandlingReport ErrorHandling = iota

	// ErrorHandlingRecover logs problems at debug level and continues.
	ErrorHandlingRecover

	// ErrorHandlingStop turns every recoverable problem into an error.
	ErrorHandlingStop
)

func (e ErrorHandling) String() string {
	switch e {
	case ErrorHandlingReport:
		return "report"
	case ErrorHandlingRecover:
		return "recover"
	case ErrorHandlingStop:
		return "stop"
	default:
		return fmt.Sprintf("ErrorHandling(%d)", int(e))
	}
}

// diagnostics dispatches recoverable problems according to an ErrorHandling
// mode.
type diagnostics struct {
	mode ErrorHandling
	log  Logger

	// neighborhood, if set, is used to annotate fatal errors.
	neighborhood func(pos int64) string
}

// warn reports a recoverable problem at byte offset pos.  An error is only
// returned if the mode is ErrorHandlingStop.
func (d *diagnostics) warn(pos int64, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	switch d.mode {
	case ErrorHandlingStop:
		err := &MalformedFileError{Pos: pos, Err: errors.New(msg)}
		if d.neighborhood != nil {
			err.Neighborhood = d.neighborhood(pos)
		}
		return err
	case ErrorHandlingRecover:
		d.log.Debug("%s (at byte %d)", msg, pos)
	default:
		d.log.Warning("%s (at byte %d)", msg, pos)
	}
	return nil
}

// debug logs informational messages which never affect loading.
func (d *diagnostics) debug(format string, args ...interface{}) {
	d.log.Debug(format, args...)
}

// malformed constructs a fatal error for the given position.
func (d *diagnostics) malformed(pos int64, err error) error {
	res := &MalformedFileError{Pos: pos, Err: err}
	if d.neighborhood != nil {
		res.Neighborhood = d.neighborhood(pos)
	}
	return res
}
