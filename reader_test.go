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
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/xmp"

	"seehuhn.de/go/pdfread/internal/testpdf"
)

// testLogger records all messages.
type testLogger struct {
	warnings []string
	debug    []string
}

func (l *testLogger) Warning(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *testLogger) Debug(format string, args ...interface{}) {
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

func (l *testLogger) hasWarning(substr string) bool {
	for _, msg := range l.warnings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// loadTest loads a PDF file from memory.  Unless opt sets a logger, all
// messages are recorded in the returned logger.
func loadTest(t *testing.T, data []byte, opt *ReaderOptions) (*Document, *testLogger) {
	t.Helper()
	if opt == nil {
		opt = &ReaderOptions{}
	}
	log := &testLogger{}
	if opt.Logger == nil {
		opt.Logger = log
	}
	doc, err := Load(bytes.NewReader(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	return doc, log
}

// minimalFile returns a file with a catalog and an empty page tree.  The
// cross-reference table is not yet written.
func minimalFile(version string, catalogExtra string) *testpdf.Builder {
	b := testpdf.New(version)
	b.Object(1, 0, "<< /Type /Catalog /Pages 2 0 R"+catalogExtra+" >>")
	b.Object(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	return b
}

func finish(b *testpdf.Builder, trailer string) []byte {
	pos := b.XRefTable(trailer)
	b.StartXRef(pos)
	return b.Bytes()
}

func TestLoadMinimal(t *testing.T) {
	data := finish(minimalFile("1.7", ""), " /Root 1 0 R")

	doc, log := loadTest(t, data, &ReaderOptions{ErrorHandling: ErrorHandlingStop})
	if len(log.warnings) > 0 {
		t.Errorf("unexpected warnings: %q", log.warnings)
	}
	if doc.Version != V1_7 {
		t.Errorf("wrong version %s", doc.Version)
	}
	if doc.Encrypted {
		t.Error("document marked as encrypted")
	}
	if doc.Permissions != PermAll {
		t.Errorf("wrong permissions %d", doc.Permissions)
	}

	want := Dict{
		"Type":  Name("Catalog"),
		"Pages": NewReference(2, 0),
	}
	if d := cmp.Diff(want, doc.Root()); d != "" {
		t.Errorf("wrong catalog (-want +got):\n%s", d)
	}

	refs := doc.XRef().Refs()
	wantRefs := []Reference{NewReference(1, 0), NewReference(2, 0)}
	if d := cmp.Diff(wantRefs, refs); d != "" {
		t.Errorf("wrong xref entries (-want +got):\n%s", d)
	}
	if doc.XRef().UnderConstruction() {
		t.Error("xref table still under construction")
	}
	for _, ref := range refs {
		e, _ := doc.XRef().Get(ref)
		if e.Kind != EntryOffset || !e.Resolved {
			t.Errorf("%s: kind=%s resolved=%t", ref, e.Kind, e.Resolved)
		}
	}
}

func TestLoadWithoutReaderAt(t *testing.T) {
	data := finish(minimalFile("1.4", ""), " /Root 1 0 R")

	// hide the ReadAt method
	in := struct{ io.ReadSeeker }{bytes.NewReader(data)}
	doc, err := Load(in, &ReaderOptions{ErrorHandling: ErrorHandlingStop})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Root()["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %s", Format(doc.Root()))
	}
}

func TestUndefinedReferences(t *testing.T) {
	b := minimalFile("1.7", " /Foo 99 0 R /Arr [1 99 0 R] /Keep 2 0 R")
	data := finish(b, " /Root 1 0 R")

	doc, _ := loadTest(t, data, nil)

	root := doc.Root()
	if _, ok := root["Foo"]; ok {
		t.Error("reference to undefined object was kept")
	}
	want := Array{Integer(1), nil}
	if d := cmp.Diff(want, root["Arr"]); d != "" {
		t.Errorf("wrong array (-want +got):\n%s", d)
	}
	if root["Keep"] != NewReference(2, 0) {
		t.Errorf("valid reference changed to %s", Format(root["Keep"]))
	}

	e, ok := doc.XRef().Get(NewReference(99, 0))
	if !ok {
		t.Fatal("placeholder entry missing")
	}
	if e.Kind != EntryNull || e.Value != nil || !e.Resolved {
		t.Errorf("placeholder not finalized: %+v", e)
	}
	if doc.Get(NewReference(99, 0)) != nil {
		t.Error("undefined object is not null")
	}
}

func TestVersion(t *testing.T) {
	cases := []struct {
		header  string
		catalog string
		want    Version
	}{
		{"1.4", "", V1_4},
		{"1.4", " /Version /1.7", V1_7},
		{"1.7", " /Version /1.4", V1_7},
		{"1.7", " /Version /2.0", V2_0},
		{"1.5", " /Version /9.9", V1_5},
	}
	for _, test := range cases {
		data := finish(minimalFile(test.header, test.catalog), " /Root 1 0 R")
		doc, _ := loadTest(t, data, nil)
		if doc.Version != test.want {
			t.Errorf("%s/%q: got %s, want %s", test.header, test.catalog, doc.Version, test.want)
		}
	}
}

func TestInvalidHeader(t *testing.T) {
	cases := []string{
		"",
		"hello world\n",
		"%PDF-3.0\n1 0 obj\nnull\nendobj\n",
	}
	for _, in := range cases {
		_, err := Load(strings.NewReader(in), &ReaderOptions{Logger: &testLogger{}})
		if !IsMalformed(err) {
			t.Errorf("%q: expected MalformedFileError, got %v", in, err)
		}
	}
}

func TestGarbageBeforeHeader(t *testing.T) {
	body := finish(minimalFile("1.6", ""), " /Root 1 0 R")
	data := append([]byte("GARBAGE GARBAGE\r\n"), body...)

	doc, log := loadTest(t, data, nil)
	if doc.Version != V1_6 {
		t.Errorf("wrong version %s", doc.Version)
	}
	if doc.Root()["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %s", Format(doc.Root()))
	}
	if !log.hasWarning("garbage") {
		t.Errorf("missing warning, got %q", log.warnings)
	}

	_, err := Load(bytes.NewReader(data), &ReaderOptions{
		ErrorHandling: ErrorHandlingStop,
		Logger:        &testLogger{},
	})
	if !IsMalformed(err) {
		t.Errorf("expected MalformedFileError in stop mode, got %v", err)
	}
}

func TestStreamLengthRepair(t *testing.T) {
	b := minimalFile("1.7", " /Data 3 0 R")
	b.Stream(3, 0, " /Length 100", []byte("hello"))
	data := finish(b, " /Root 1 0 R")

	doc, log := loadTest(t, data, nil)
	stm, ok := doc.Get(NewReference(3, 0)).(*Stream)
	if !ok {
		t.Fatalf("object 3 is %s", Format(doc.Get(NewReference(3, 0))))
	}
	if string(stm.Data) != "hello" {
		t.Errorf("wrong stream data %q", stm.Data)
	}
	if stm.Dict["Length"] != Integer(5) {
		t.Errorf("wrong /Length %s", Format(stm.Dict["Length"]))
	}
	if len(log.warnings) == 0 {
		t.Error("missing warning")
	}
}

// TestFatalErrorNeighborhood checks that fatal errors show the bytes
// around the problem.
func TestFatalErrorNeighborhood(t *testing.T) {
	cases := []struct {
		name, body, show string
	}{
		{"number", "[1.2.3]", "1.2.3"},
		{"object start", "] % stray", "stray"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := minimalFile("1.4", " /X 3 0 R")
			b.Object(3, 0, c.body)
			data := finish(b, " /Root 1 0 R")

			_, err := Load(bytes.NewReader(data), &ReaderOptions{Logger: &testLogger{}})
			var malformed *MalformedFileError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedFileError, got %v", err)
			}
			if malformed.Neighborhood == "" {
				t.Fatalf("%v: no neighbourhood", err)
			}
			if !strings.Contains(malformed.Neighborhood, c.show) {
				t.Errorf("neighbourhood does not show %q:\n%s", c.show, malformed.Neighborhood)
			}
		})
	}
}

func TestErrorHandlingModes(t *testing.T) {
	b := minimalFile("1.7", " /Data 3 0 R")
	b.Stream(3, 0, " /Length 100", []byte("hello"))
	data := finish(b, " /Root 1 0 R")

	// recover: problems are logged at debug level
	log := &testLogger{}
	_, err := Load(bytes.NewReader(data), &ReaderOptions{
		ErrorHandling: ErrorHandlingRecover,
		Logger:        log,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(log.warnings) != 0 {
		t.Errorf("unexpected warnings %q", log.warnings)
	}
	if len(log.debug) == 0 {
		t.Error("missing debug message")
	}

	// stop: problems are fatal
	_, err = Load(bytes.NewReader(data), &ReaderOptions{
		ErrorHandling: ErrorHandlingStop,
		Logger:        &testLogger{},
	})
	var malformed *MalformedFileError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedFileError, got %v", err)
	}
	if malformed.Neighborhood == "" {
		t.Error("error has no neighborhood")
	}
}

func TestIndirectLength(t *testing.T) {
	b := minimalFile("1.7", " /Data 3 0 R")
	b.Stream(3, 0, " /Length 4 0 R", []byte("hello, world"))
	b.Object(4, 0, "12")
	data := finish(b, " /Root 1 0 R")

	doc, log := loadTest(t, data, &ReaderOptions{ErrorHandling: ErrorHandlingStop})
	if len(log.warnings) > 0 {
		t.Errorf("unexpected warnings: %q", log.warnings)
	}
	stm := doc.Get(NewReference(3, 0)).(*Stream)
	if string(stm.Data) != "hello, world" {
		t.Errorf("wrong stream data %q", stm.Data)
	}
	if stm.Dict["Length"] != Integer(12) {
		t.Errorf("/Length not replaced: %s", Format(stm.Dict["Length"]))
	}
	if doc.Get(NewReference(4, 0)) != Integer(12) {
		t.Errorf("wrong length object %s", Format(doc.Get(NewReference(4, 0))))
	}
}

func TestTextStrings(t *testing.T) {
	b := minimalFile("1.7", "")
	b.Object(3, 0, "<< /Title <FEFF00480069> /Author (plain) /Subject <EFBBBF4869> >>")
	data := finish(b, " /Root 1 0 R /Info 3 0 R /ID [<FEFF0041> <FEFF0042>]")

	doc, _ := loadTest(t, data, nil)
	want := Dict{
		"Title":   TextString("Hi"),
		"Author":  String("plain"),
		"Subject": TextString("Hi"),
	}
	if d := cmp.Diff(want, doc.Info()); d != "" {
		t.Errorf("wrong info dict (-want +got):\n%s", d)
	}

	// the file identifier is binary data
	wantID := [][]byte{{0xFE, 0xFF, 0x00, 0x41}, {0xFE, 0xFF, 0x00, 0x42}}
	if d := cmp.Diff(wantID, doc.ID); d != "" {
		t.Errorf("wrong ID (-want +got):\n%s", d)
	}
	if _, ok := doc.Trailer().Dict["ID"].(Array)[0].(String); !ok {
		t.Error("trailer /ID was re-decoded")
	}
}

func TestModifyMode(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)

	xmpPacket := xmp.NewPacket()
	err := xmpPacket.Set(&xmp.Basic{CreateDate: xmp.NewDate(now.Add(-time.Hour))})
	if err != nil {
		t.Fatal(err)
	}
	xmpData := &bytes.Buffer{}
	err = xmpPacket.Write(xmpData, nil)
	if err != nil {
		t.Fatal(err)
	}

	b := minimalFile("1.7", " /Metadata 7 0 R")
	b.Object(3, 0, "(unreachable)")
	b.Object(5, 0, "<< /Title (T) /Producer 99 0 R >>")
	b.Stream(7, 0, " /Type /Metadata /Subtype /XML", xmpData.Bytes())
	data := finish(b, " /Root 1 0 R /Info 5 0 R /ID [<0102> <0304>]")

	doc, _ := loadTest(t, data, &ReaderOptions{
		Mode: ModeModify,
		Now:  func() time.Time { return now },
	})

	wantRefs := []Reference{NewReference(1, 0), NewReference(2, 0), NewReference(3, 0), NewReference(4, 0)}
	if d := cmp.Diff(wantRefs, doc.XRef().Refs()); d != "" {
		t.Errorf("wrong objects after compaction (-want +got):\n%s", d)
	}
	for _, ref := range wantRefs {
		e, _ := doc.XRef().Get(ref)
		if e.Kind != EntryInMemory {
			t.Errorf("%s: wrong kind %s", ref, e.Kind)
		}
	}

	trailer := doc.Trailer()
	if trailer.Prev != nil {
		t.Error("modified document has a /Prev link")
	}
	if trailer.Dict["Size"] != Integer(5) {
		t.Errorf("wrong /Size %s", Format(trailer.Dict["Size"]))
	}
	if trailer.Dict["Root"] != NewReference(1, 0) {
		t.Errorf("wrong /Root %s", Format(trailer.Dict["Root"]))
	}
	// objects 1, 2, 5, 7 are renumbered to 1, 2, 3, 4
	if trailer.Dict["Info"] != NewReference(3, 0) {
		t.Errorf("wrong /Info %s", Format(trailer.Dict["Info"]))
	}
	if doc.Root()["Metadata"] != NewReference(4, 0) {
		t.Errorf("wrong /Metadata %s", Format(doc.Root()["Metadata"]))
	}

	info := doc.Info()
	if d := cmp.Diff(String("T"), info["Title"]); d != "" {
		t.Errorf("wrong /Title (-want +got):\n%s", d)
	}
	if d := cmp.Diff(Date(now), info["ModDate"]); d != "" {
		t.Errorf("wrong /ModDate (-want +got):\n%s", d)
	}
	if _, ok := info["Producer"]; ok {
		t.Error("null reference kept in /Info")
	}

	if len(doc.ID) != 2 || !bytes.Equal(doc.ID[0], []byte{1, 2}) {
		t.Errorf("wrong ID %x", doc.ID)
	} else if bytes.Equal(doc.ID[1], []byte{3, 4}) || len(doc.ID[1]) != 16 {
		t.Errorf("second ID element not regenerated: %x", doc.ID[1])
	}

	stm := doc.Get(NewReference(4, 0)).(*Stream)
	packet, err := xmp.Read(bytes.NewReader(stm.Data))
	if err != nil {
		t.Fatal(err)
	}
	basic := &xmp.Basic{}
	packet.Get(basic)
	if !basic.ModifyDate.V.Equal(now) {
		t.Errorf("wrong xmp:ModifyDate %s", basic.ModifyDate.V)
	}
}

func TestModifyModeCreatesInfo(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	data := finish(minimalFile("1.7", ""), " /Root 1 0 R")

	doc, _ := loadTest(t, data, &ReaderOptions{
		Mode: ModeModify,
		Now:  func() time.Time { return now },
	})

	info := doc.Info()
	if info == nil {
		t.Fatal("no /Info dictionary")
	}
	if d := cmp.Diff(Date(now), info["ModDate"]); d != "" {
		t.Errorf("wrong /ModDate (-want +got):\n%s", d)
	}
	if doc.XRef().Len() != 3 {
		t.Errorf("wrong number of objects %d", doc.XRef().Len())
	}
	if len(doc.ID) != 2 || !bytes.Equal(doc.ID[0], doc.ID[1]) {
		t.Errorf("wrong new ID %x", doc.ID)
	}
}

func TestResolve(t *testing.T) {
	b := minimalFile("1.7", " /A 3 0 R")
	b.Object(3, 0, "4 0 R")
	b.Object(4, 0, "(end)")
	data := finish(b, " /Root 1 0 R")

	doc, _ := loadTest(t, data, nil)
	got := doc.Resolve(doc.Root()["A"])
	if d := cmp.Diff(String("end"), got); d != "" {
		t.Errorf("wrong value (-want +got):\n%s", d)
	}
	if doc.Resolve(Integer(7)) != Integer(7) {
		t.Error("direct object changed by Resolve")
	}
}
