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
	"os"
	"time"

	"github.com/pkg/errors"
)

// OpenMode selects how a document is going to be used.
type OpenMode int

const (
	// ModeImport opens a document for reading only.
	ModeImport OpenMode = iota

	// ModeModify opens a document so that it can be changed and written
	// again.  This requires owner access for encrypted files.  After
	// loading, unreachable objects are removed and the remaining objects
	// are renumbered.
	ModeModify
)

func (m OpenMode) String() string {
	if m == ModeModify {
		return "modify"
	}
	return "import"
}

// ReadPwdFunc describes a function which can be used to query the user for a
// password for the document with the given ID.  The first call for each
// authentication attempt has try == 0.  If the returned password was wrong,
// the function is called again, repeatedly, with sequentially increasing
// values of try.  If the ReadPwdFunc return the empty string, the
// authentication attempt is aborted and an AuthenticationError is reported to
// the caller.
type ReadPwdFunc func(ID []byte, try int) string

// ReaderOptions provides additional information for opening a PDF file.
// A nil *ReaderOptions is equivalent to the zero value.
type ReaderOptions struct {
	// Password is tried first for encrypted files.  The empty string
	// (the default) opens files which have no user password.
	Password string

	// ReadPassword, if set, is used to ask for a password when Password
	// is not valid.
	ReadPassword ReadPwdFunc

	Mode OpenMode

	// ErrorHandling determines how problems in malformed files are
	// treated.  The default is ErrorHandlingReport.
	ErrorHandling ErrorHandling

	// Logger receives warnings and debug messages.  If this is nil, the
	// logger from github.com/unidoc/unidoc/common is used.
	Logger Logger

	// NewSecurityHandler creates the security handler for encrypted
	// files.  The default is NewStandardSecurityHandler.
	NewSecurityHandler NewSecurityHandlerFunc

	// MaxObjStmRounds, if positive, limits the number of rounds used to
	// open object streams.
	MaxObjStmRounds int

	// Now returns the current time, used for the modification date in
	// ModeModify.  The default is time.Now.
	Now func() time.Time
}

// reader holds the state while a file is loaded.
type reader struct {
	r    io.ReaderAt
	size int64
	lex  *lexer
	opt  ReaderOptions
	diag *diagnostics

	version Version
	id      [][]byte
	xref    *XRefTable
	trailer *Trailer

	// special lists objects which are never encrypted, namely the
	// /Encrypt dictionary and cross-reference streams.
	special map[Reference]bool
	sec     SecurityHandler

	objStms       map[uint32]*objStm
	failedStms    map[uint32]bool
	inObjStmPhase bool

	// level is the nesting depth of indirect /Length lookups.
	level int
}

// Open loads the named PDF file.  The file is closed before Open returns.
func Open(fname string, opt *ReaderOptions) (*Document, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return Load(fd, opt)
}

// Load reads a PDF file and returns the document with all indirect objects
// resolved.  All data is read into memory, data is not used after Load
// returns.
func Load(data io.ReadSeeker, opt *ReaderOptions) (*Document, error) {
	if opt == nil {
		opt = &ReaderOptions{}
	}

	size, err := data.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "input is not seekable")
	}
	ra, ok := data.(io.ReaderAt)
	if !ok {
		ra = &seekReaderAt{rs: data}
	}

	r := newReader(ra, size, opt)
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func newReader(ra io.ReaderAt, size int64, opt *ReaderOptions) *reader {
	r := &reader{
		r:          ra,
		size:       size,
		opt:        *opt,
		xref:       newXRefTable(),
		special:    make(map[Reference]bool),
		objStms:    make(map[uint32]*objStm),
		failedStms: make(map[uint32]bool),
	}
	if r.opt.Logger == nil {
		r.opt.Logger = commonLogger{}
	}
	if r.opt.NewSecurityHandler == nil {
		r.opt.NewSecurityHandler = NewStandardSecurityHandler
	}
	if r.opt.Now == nil {
		r.opt.Now = time.Now
	}
	r.diag = &diagnostics{
		mode: r.opt.ErrorHandling,
		log:  r.opt.Logger,
	}
	r.setInput(ra, size)
	return r
}

// setInput selects the bytes which make up the PDF file.
func (r *reader) setInput(ra io.ReaderAt, size int64) {
	r.r = ra
	r.size = size
	r.lex = newLexer(ra, size)
	r.lex.warn = r.diag.warn
	r.lex.fatal = r.diag.malformed
	r.diag.neighborhood = func(pos int64) string {
		return neighborhood(ra, size, pos)
	}
}

func (r *reader) load() (*Document, error) {
	// step 1: header
	err := r.readHeader()
	if err != nil {
		return nil, err
	}

	// step 2
	r.xref.underConstruction = true

	// step 3
	r.trailer, err = r.readTrailerChain()
	if err != nil {
		return nil, errors.Wrap(err, "reading cross-reference information")
	}
	r.id = trailerID(r.trailer.Dict)

	// steps 4 and 5
	if encObj, ok := r.trailer.Dict["Encrypt"]; ok {
		enc, err := r.readEncryptDict(encObj)
		if err != nil {
			return nil, errors.Wrap(err, "reading /Encrypt")
		}
		err = r.authenticate(enc)
		if err != nil {
			return nil, err
		}
	}

	// step 6
	err = r.loadObjectStreams()
	if err != nil {
		return nil, errors.Wrap(err, "opening object streams")
	}

	// step 7
	err = r.readAllObjects()
	if err != nil {
		return nil, errors.Wrap(err, "reading objects")
	}

	// step 8
	var perm Perm = PermAll
	if r.sec != nil {
		perm = r.sec.Permissions()
		r.sec.ResetAfterSave()
	}

	// step 9
	r.finalize()

	// step 10
	r.redecodeAllStrings()

	doc := &Document{
		Version:     r.version,
		ID:          r.id,
		Encrypted:   r.sec != nil,
		Permissions: perm,
		xref:        r.xref,
		trailer:     r.trailer,
		log:         r.opt.Logger,
	}
	if v, ok := doc.catalogVersion(); ok && v > doc.Version {
		doc.Version = v
	}

	// step 11
	if r.opt.Mode == ModeModify {
		err = r.prepareForModify(doc)
		if err != nil {
			return nil, errors.Wrap(err, "preparing document for modification")
		}
	}

	return doc, nil
}

// readHeader finds the "%PDF-x.y" marker.  If the marker is not at the
// start of the file, all file offsets are taken relative to the marker.
func (r *reader) readHeader() error {
	pos, verString, err := findHeader(r.r, r.size)
	if err != nil {
		return err
	}
	version, err := ParseVersion(verString)
	if err != nil {
		return r.diag.malformed(pos, errors.Wrapf(err, "version %q", verString))
	}
	r.version = version

	if pos > 0 {
		err = r.diag.warn(pos, "%d bytes of garbage before the PDF header", pos)
		if err != nil {
			return err
		}
		r.setInput(io.NewSectionReader(r.r, pos, r.size-pos), r.size-pos)
	}
	return nil
}

// readEncryptDict reads the /Encrypt dictionary.  This dictionary is never
// encrypted itself.
func (r *reader) readEncryptDict(obj Object) (Dict, error) {
	ref, isRef := obj.(Reference)
	if !isRef {
		enc, ok := obj.(Dict)
		if !ok {
			return nil, &MalformedFileError{
				Err: errors.Errorf("invalid /Encrypt %s", Format(obj)),
			}
		}
		return enc, nil
	}

	r.special[ref] = true
	e, ok := r.xref.Get(ref)
	if !ok || e.Kind != EntryOffset {
		return nil, &MalformedFileError{Err: errors.Errorf("/Encrypt %s not found", ref)}
	}
	fileRef, val, err := r.readIndirect(e.Pos)
	if err != nil {
		return nil, err
	}
	if fileRef != ref {
		return nil, r.diag.malformed(e.Pos,
			errors.Errorf("expected object %s, found %s", ref, fileRef))
	}
	enc, ok := val.(Dict)
	if !ok {
		return nil, r.diag.malformed(e.Pos, errors.New("/Encrypt is not a dictionary"))
	}
	r.xref.setValue(ref, enc)
	return enc, nil
}

// authenticate creates the security handler and checks the password.
func (r *reader) authenticate(enc Dict) error {
	sec, err := r.opt.NewSecurityHandler(enc, r.id)
	if err != nil {
		return err
	}

	needOwner := r.opt.Mode == ModeModify
	level, err := sec.ValidatePassword(r.opt.Password)
	if err != nil {
		return err
	}
	var firstID []byte
	if len(r.id) > 0 {
		firstID = r.id[0]
	}
	for try := 0; level == PasswordInvalid || needOwner && level != PasswordOwner; try++ {
		authErr := &AuthenticationError{
			ID:    r.id,
			Owner: level != PasswordInvalid,
		}
		if r.opt.ReadPassword == nil {
			return authErr
		}
		passwd := r.opt.ReadPassword(firstID, try)
		if passwd == "" {
			return authErr
		}
		level, err = sec.ValidatePassword(passwd)
		if err != nil {
			return err
		}
	}
	r.diag.debug("authenticated with %s password", level)

	r.sec = sec
	return nil
}

// trailerID extracts the file identifier from a trailer dictionary.
func trailerID(trailer Dict) [][]byte {
	arr, ok := trailer["ID"].(Array)
	if !ok || len(arr) < 2 {
		return nil
	}
	var res [][]byte
	for _, elem := range arr[:2] {
		s, ok := elem.(String)
		if !ok {
			return nil
		}
		res = append(res, bytes.Clone(s))
	}
	return res
}

// seekReaderAt implements io.ReaderAt for inputs which can only seek.
type seekReaderAt struct {
	rs io.ReadSeeker
}

func (s *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	_, err := s.rs.Seek(off, io.SeekStart)
	if err != nil {
		return 0, err
	}
	n, err := io.ReadFull(s.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// decrypt decrypts an object read from the file.
func (r *reader) decrypt(ref Reference, obj Object) (Object, error) {
	if r.sec == nil || r.special[ref] {
		return obj, nil
	}
	return r.sec.Decrypt(ref, obj)
}

// readAllObjects reads every object which has not been read yet.  Objects
// which cannot be found are left unresolved and become null when the
// table is finalized.
func (r *reader) readAllObjects() error {
	// The loop condition is re-evaluated, since reading objects can add
	// placeholders to the table.
	for i := 0; i < len(r.xref.order); i++ {
		ref := r.xref.order[i]
		e := r.xref.entries[ref]
		if e.Resolved {
			continue
		}

		switch e.Kind {
		case EntryOffset:
			fileRef, obj, err := r.readIndirect(e.Pos)
			if errors.Is(err, errNoObjectHeader) {
				err = r.diag.warn(e.Pos, "object %s not found at offset %d", ref, e.Pos)
				if err != nil {
					return err
				}
				continue
			} else if err != nil {
				return err
			}
			if fileRef != ref {
				err = r.diag.warn(e.Pos, "expected object %s, found %s", ref, fileRef)
				if err != nil {
					return err
				}
				continue
			}
			obj, err = r.decrypt(ref, obj)
			if err != nil {
				return r.diag.malformed(e.Pos, errors.Wrapf(err, "decrypting object %s", ref))
			}
			r.xref.setValue(ref, obj)

		case EntryInStream:
			stm := r.objStms[e.Container]
			if stm == nil {
				err := r.diag.warn(0, "object %s: object stream %d not available", ref, e.Container)
				if err != nil {
					return err
				}
				continue
			}
			obj, err := r.readFromObjStm(stm, ref, e.Pos)
			if err != nil {
				err = r.diag.warn(stm.pos, "%v", err)
				if err != nil {
					return err
				}
				continue
			}
			r.xref.setValue(ref, obj)
		}
	}
	return nil
}

// finalize ends the construction phase of the cross-reference table.
// References to objects which could not be read are replaced by null,
// inside all objects and in the trailer dictionaries.
func (r *reader) finalize() {
	nulls := r.xref.finalize()
	if len(nulls) > 0 {
		r.diag.debug("%d references resolved to null", len(nulls))
	}

	for _, ref := range r.xref.order {
		e := r.xref.entries[ref]
		e.Value = r.dropNullRefs(e.Value)
	}
	for t := r.trailer; t != nil; t = t.Prev {
		r.dropNullRefs(t.Dict)
	}
}

// dropNullRefs replaces references to null objects by nil.  Containers are
// modified in place.
func (r *reader) dropNullRefs(obj Object) Object {
	switch x := obj.(type) {
	case Reference:
		if r.xref.isNull(x) {
			return nil
		}
		return x
	case Array:
		for i, elem := range x {
			x[i] = r.dropNullRefs(elem)
		}
		return x
	case Dict:
		for key, elem := range x {
			val := r.dropNullRefs(elem)
			if val == nil {
				delete(x, key)
			} else {
				x[key] = val
			}
		}
		return x
	case *Stream:
		r.dropNullRefs(x.Dict)
		return x
	default:
		return obj
	}
}

// redecodeAllStrings converts strings with a byte order mark into text
// strings.  The /Encrypt dictionary, cross-reference streams and the file
// identifier are left unchanged.
func (r *reader) redecodeAllStrings() {
	total := 0
	for _, ref := range r.xref.order {
		if r.special[ref] {
			continue
		}
		e := r.xref.entries[ref]
		val, n := redecodeStrings(e.Value)
		e.Value = val
		total += n
	}
	for t := r.trailer; t != nil; t = t.Prev {
		for key, val := range t.Dict {
			if key == "ID" || key == "Encrypt" {
				continue
			}
			newVal, n := redecodeStrings(val)
			t.Dict[key] = newVal
			total += n
		}
	}
	if total > 0 {
		r.diag.debug("%d strings decoded as Unicode text", total)
	}
}
