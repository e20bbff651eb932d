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
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdfread/internal/testpdf"
)

func TestXRefOffByOne(t *testing.T) {
	b := testpdf.New("1.4")
	p1 := b.Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	p2 := b.Object(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	pos := b.XRefSection([]testpdf.Entry{
		{Num: 0, Gen: 65535, Free: true},
		{Num: 2, Pos: p1},
		{Num: 3, Pos: p2},
	}, " /Root 1 0 R /Size 4")
	b.StartXRef(pos)

	doc, log := loadTest(t, b.Bytes(), nil)
	if !log.hasWarning("off by one") {
		t.Errorf("missing warning, got %q", log.warnings)
	}
	if doc.Root()["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %s", Format(doc.Root()))
	}
	for num, pos := range map[uint32]int64{1: p1, 2: p2} {
		e, ok := doc.XRef().Get(NewReference(num, 0))
		if !ok || e.Kind != EntryOffset || e.Pos != pos {
			t.Errorf("object %d: got %+v", num, e)
		}
	}
	if _, ok := doc.XRef().Get(NewReference(3, 0)); ok {
		t.Error("object 3 should not exist")
	}
}

func TestXRefTrustObjectHeader(t *testing.T) {
	b := testpdf.New("1.4")
	p1 := b.Object(1, 0, "<< /Type /Catalog /Pages 7 0 R >>")
	p7 := b.Object(7, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	pos := b.XRefSection([]testpdf.Entry{
		{Num: 0, Gen: 65535, Free: true},
		{Num: 1, Pos: p1},
		{Num: 2, Pos: p7},
	}, " /Root 1 0 R /Size 3")
	b.StartXRef(pos)

	doc, log := loadTest(t, b.Bytes(), nil)
	if len(log.warnings) != 1 {
		t.Errorf("expected one warning, got %q", log.warnings)
	}
	pages, ok := doc.Resolve(doc.Root()["Pages"]).(Dict)
	if !ok || pages["Type"] != Name("Pages") {
		t.Errorf("page tree not found, got %s", Format(pages))
	}
	e, _ := doc.XRef().Get(NewReference(7, 0))
	if e.Kind != EntryOffset || e.Pos != p7 {
		t.Errorf("wrong entry for object 7: %+v", e)
	}
}

func TestXRefMissingObject(t *testing.T) {
	b := testpdf.New("1.4")
	p1 := b.Object(1, 0, "<< /Type /Catalog /Extra 2 0 R >>")
	pos := b.XRefSection([]testpdf.Entry{
		{Num: 0, Gen: 65535, Free: true},
		{Num: 1, Pos: p1},
		{Num: 2, Pos: p1 + 2}, // points into the middle of object 1
	}, " /Root 1 0 R /Size 3")
	b.StartXRef(pos)

	doc, log := loadTest(t, b.Bytes(), nil)
	if !log.hasWarning("has no object") {
		t.Errorf("missing warning, got %q", log.warnings)
	}
	if _, ok := doc.Root()["Extra"]; ok {
		t.Error("reference to missing object was kept")
	}
	e, _ := doc.XRef().Get(NewReference(2, 0))
	if e.Kind != EntryNull {
		t.Errorf("object 2 is %s", e.Kind)
	}

	_, err := Load(b.Reader(), &ReaderOptions{ErrorHandling: ErrorHandlingStop, Logger: &testLogger{}})
	if !IsMalformed(err) {
		t.Errorf("stop mode: expected MalformedFileError, got %v", err)
	}
}

func TestXRefDuplicateEntry(t *testing.T) {
	b := testpdf.New("1.4")
	p1 := b.Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	p2 := b.Object(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	pos := b.Pos()
	b.Raw("xref\n0 3\n")
	b.Raw("0000000000 65535 f\r\n")
	b.Raw(fmt.Sprintf("%010d 00000 n\r\n", p1))
	b.Raw(fmt.Sprintf("%010d 00000 n\r\n", p2))
	b.Raw("1 1\n")
	b.Raw(fmt.Sprintf("%010d 00000 n\r\n", p1))
	b.Raw("trailer\n<< /Root 1 0 R /Size 3 >>\n")
	b.StartXRef(pos)

	doc, log := loadTest(t, b.Bytes(), nil)
	if !log.hasWarning("duplicate") {
		t.Errorf("missing warning, got %q", log.warnings)
	}
	if doc.XRef().Len() != 2 {
		t.Errorf("wrong number of objects %d", doc.XRef().Len())
	}
}

func TestXRefFreeGeneration(t *testing.T) {
	// "65536 f" is written by some broken PDF writers
	b := minimalFile("1.4", "")
	pos := b.Pos()
	b.Raw("xref\n0 3\n")
	b.Raw("0000000000 65536 f\r\n")
	b.Raw(fmt.Sprintf("%010d 00000 n\r\n", b.Offset(1)))
	b.Raw(fmt.Sprintf("%010d 00000 n\r\n", b.Offset(2)))
	b.Raw("trailer\n<< /Root 1 0 R /Size 3 >>\n")
	b.StartXRef(pos)

	doc, _ := loadTest(t, b.Bytes(), &ReaderOptions{ErrorHandling: ErrorHandlingStop})
	if doc.XRef().Len() != 2 {
		t.Errorf("wrong number of objects %d", doc.XRef().Len())
	}
}

func TestXRefShortSubsection(t *testing.T) {
	b := minimalFile("1.4", "")
	pos := b.Pos()
	b.Raw("xref\n0 5\n")
	b.Raw("0000000000 65535 f\r\n")
	b.Raw(fmt.Sprintf("%010d 00000 n\r\n", b.Offset(1)))
	b.Raw(fmt.Sprintf("%010d 00000 n\r\n", b.Offset(2)))
	b.Raw("trailer\n<< /Root 1 0 R /Size 3 >>\n")
	b.StartXRef(pos)

	doc, log := loadTest(t, b.Bytes(), nil)
	if !log.hasWarning("only 3 entries") {
		t.Errorf("missing warning, got %q", log.warnings)
	}
	if doc.Root()["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %s", Format(doc.Root()))
	}
}

func TestXRefStreamFile(t *testing.T) {
	b := minimalFile("1.5", " /Extra 5 0 R")
	b.ObjStm(3, "", testpdf.Member{Num: 5, Body: "<< /Hidden true >>"}, testpdf.Member{Num: 6, Body: "(six)"})
	pos := b.XRefStream(4, []testpdf.StreamEntry{
		{Num: 0, Type: 0, F3: 65535},
		b.InUse(1),
		b.InUse(2),
		b.InUse(3),
		{Num: 5, Type: 2, F2: 3, F3: 0},
		{Num: 6, Type: 2, F2: 3, F3: 1},
	}, " /Root 1 0 R")
	b.StartXRef(pos)

	doc, log := loadTest(t, b.Bytes(), &ReaderOptions{ErrorHandling: ErrorHandlingStop})
	if len(log.warnings) > 0 {
		t.Errorf("unexpected warnings %q", log.warnings)
	}
	if !doc.Trailer().IsStream || doc.Trailer().Pos != pos {
		t.Errorf("wrong trailer %+v", doc.Trailer())
	}

	extra := doc.Resolve(doc.Root()["Extra"])
	if d := cmp.Diff(Dict{"Hidden": Bool(true)}, extra); d != "" {
		t.Errorf("wrong object 5 (-want +got):\n%s", d)
	}
	if d := cmp.Diff(String("six"), doc.Get(NewReference(6, 0))); d != "" {
		t.Errorf("wrong object 6 (-want +got):\n%s", d)
	}

	e, _ := doc.XRef().Get(NewReference(5, 0))
	if e.Kind != EntryInStream || e.Container != 3 || e.Pos != 0 {
		t.Errorf("wrong entry for object 5: %+v", e)
	}

	// the xref stream itself is kept, unchanged
	xs, ok := doc.Get(NewReference(4, 0)).(*Stream)
	if !ok || xs.Dict["Type"] != Name("XRef") {
		t.Errorf("xref stream missing, got %s", Format(doc.Get(NewReference(4, 0))))
	}
}

func TestHybridFile(t *testing.T) {
	b := minimalFile("1.5", " /Extra 5 0 R")
	b.ObjStm(6, "", testpdf.Member{Num: 5, Body: "<< /Hidden true >>"})
	xs := b.XRefStream(7, []testpdf.StreamEntry{
		{Num: 2, Type: 1, F2: 9999}, // overridden by the table
		{Num: 5, Type: 2, F2: 6},
	}, "")
	pos := b.XRefSection([]testpdf.Entry{
		{Num: 0, Gen: 65535, Free: true},
		{Num: 1, Pos: b.Offset(1)},
		{Num: 2, Pos: b.Offset(2)},
		{Num: 6, Pos: b.Offset(6)},
	}, fmt.Sprintf(" /Root 1 0 R /Size 8 /XRefStm %d", xs))
	b.StartXRef(pos)

	doc, log := loadTest(t, b.Bytes(), &ReaderOptions{ErrorHandling: ErrorHandlingStop})
	if len(log.warnings) > 0 {
		t.Errorf("unexpected warnings %q", log.warnings)
	}
	if doc.Trailer().IsStream {
		t.Error("hybrid file reported as xref stream")
	}
	extra := doc.Resolve(doc.Root()["Extra"])
	if d := cmp.Diff(Dict{"Hidden": Bool(true)}, extra); d != "" {
		t.Errorf("wrong object 5 (-want +got):\n%s", d)
	}
	e, _ := doc.XRef().Get(NewReference(2, 0))
	if e.Kind != EntryOffset || e.Pos != b.Offset(2) {
		t.Errorf("wrong entry for object 2: %+v", e)
	}
}

func TestXRefStreamPrecedence(t *testing.T) {
	// a free entry in a newer section hides an older in-use entry
	b := minimalFile("1.5", " /Gone 3 0 R")
	b.Object(3, 0, "(old)")
	pos1 := b.XRefTable(" /Root 1 0 R")
	b.StartXRef(pos1)

	pos2 := b.XRefStream(4, []testpdf.StreamEntry{
		{Num: 3, Type: 0, F3: 1},
	}, fmt.Sprintf(" /Root 1 0 R /Prev %d", pos1))
	b.StartXRef(pos2)

	doc, _ := loadTest(t, b.Bytes(), nil)
	if _, ok := doc.Root()["Gone"]; ok {
		t.Error("deleted object is still referenced")
	}
	if doc.Get(NewReference(3, 0)) != nil {
		t.Error("deleted object is not null")
	}
}

func TestXRefTableAPI(t *testing.T) {
	tab := newXRefTable()
	tab.underConstruction = true

	a := NewReference(3, 0)
	if got := tab.lookup(a); got != a {
		t.Errorf("lookup returned %s", Format(got))
	}
	tab.addOffset(a, 100)
	tab.addInStream(NewReference(1, 0), 10, 2)
	tab.addOffset(a, 200) // ignored, the entry is no longer pending

	e, _ := tab.Get(a)
	if e.Kind != EntryOffset || e.Pos != 100 {
		t.Errorf("wrong entry %+v", e)
	}

	want := []Reference{NewReference(1, 0), a}
	if d := cmp.Diff(want, tab.Refs()); d != "" {
		t.Errorf("wrong refs (-want +got):\n%s", d)
	}

	tab.setValue(a, Integer(1))
	nulls := tab.finalize()
	if d := cmp.Diff([]Reference{NewReference(1, 0)}, nulls); d != "" {
		t.Errorf("wrong null objects (-want +got):\n%s", d)
	}
	if !tab.isNull(NewReference(1, 0)) || tab.isNull(a) {
		t.Error("wrong null status")
	}
	if got := tab.lookup(NewReference(9, 0)); got != nil {
		t.Errorf("lookup after finalize returned %s", Format(got))
	}

	ref := tab.alloc()
	if ref != NewReference(4, 0) {
		t.Errorf("alloc returned %s", ref)
	}
}

func TestEntryKindString(t *testing.T) {
	for k := EntryPending; k <= EntryInMemory; k++ {
		if s := k.String(); s == "" || s[0] == 'E' {
			t.Errorf("missing name for kind %d", int(k))
		}
	}
}
