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

// Pdf-xref loads a PDF file and shows its cross-reference information.
//
// Usage:
//
//	pdf-xref [options] file.pdf
//
// By default, the file version, the chain of cross-reference sections and
// all cross-reference entries are listed.  With -obj, the value of a
// single object is shown instead.  With -hex, the bytes of the file around
// the given offset are shown as a hex dump.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/unidoc/unidoc/common"
	"golang.org/x/term"

	"seehuhn.de/go/pdfread"
)

func main() {
	passwd := flag.String("p", "", "password for encrypted files")
	modify := flag.Bool("modify", false, "open the file in modify mode")
	verbose := flag.Bool("v", false, "show debug messages")
	strict := flag.Bool("strict", false, "treat all problems as errors")
	objNum := flag.Int("obj", -1, "show the object with this number")
	hexPos := flag.Int64("hex", -1, "show a hex dump around this file offset")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] file.pdf\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	fname := flag.Arg(0)

	level := common.LogLevelWarning
	if *verbose {
		level = common.LogLevelDebug
	}
	common.SetLogger(common.NewConsoleLogger(level))

	if *hexPos >= 0 {
		err := showHex(fname, *hexPos)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	opt := &pdfread.ReaderOptions{
		Password:     *passwd,
		ReadPassword: askPassword,
	}
	if *modify {
		opt.Mode = pdfread.ModeModify
	}
	if *strict {
		opt.ErrorHandling = pdfread.ErrorHandlingStop
	}

	doc, err := pdfread.Open(fname, opt)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var malformed *pdfread.MalformedFileError
		if errors.As(err, &malformed) && malformed.Neighborhood != "" {
			fmt.Fprint(os.Stderr, malformed.Neighborhood)
		}
		os.Exit(1)
	}

	if *objNum >= 0 {
		err = showObject(doc, uint32(*objNum))
	} else {
		showXRef(doc)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func askPassword(_ []byte, try int) string {
	if try > 0 {
		fmt.Fprintln(os.Stderr, "wrong password")
	}
	fmt.Fprint(os.Stderr, "password: ")
	passwd, err := term.ReadPassword(syscall.Stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(passwd)
}

func showXRef(doc *pdfread.Document) {
	fmt.Println("version:", doc.Version)
	if doc.ID != nil {
		fmt.Printf("ID: <%x> <%x>\n", doc.ID[0], doc.ID[1])
	}
	if doc.Encrypted {
		fmt.Printf("encrypted, permissions %07b\n", doc.Permissions)
	}

	fmt.Println()
	for i, t := range doc.Trailers() {
		kind := "table"
		if t.IsStream {
			kind = "stream"
		}
		fmt.Printf("section %d: xref %s at %d\n", i+1, kind, t.Pos)
		fmt.Println("  " + pdfread.Format(t.Dict))
	}

	fmt.Println()
	xref := doc.XRef()
	for _, ref := range xref.Refs() {
		e, _ := xref.Get(ref)
		var where string
		switch e.Kind {
		case pdfread.EntryOffset:
			where = fmt.Sprintf("offset %d", e.Pos)
		case pdfread.EntryInStream:
			where = fmt.Sprintf("stream %d, index %d", e.Container, e.Pos)
		default:
			where = e.Kind.String()
		}
		fmt.Printf("%-12s %-24s %s\n", ref, where, summary(e.Value))
	}
}

func showObject(doc *pdfread.Document, num uint32) error {
	found := false
	for _, ref := range doc.XRef().Refs() {
		if ref.Number() != num {
			continue
		}
		found = true
		obj := doc.Get(ref)
		stm, isStream := obj.(*pdfread.Stream)
		if !isStream {
			fmt.Println(ref, "=", pdfread.Format(obj))
			continue
		}
		fmt.Println(ref, "=", pdfread.Format(stm.Dict), "stream")
		data, err := doc.DecodeStream(stm)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
	}
	if !found {
		return fmt.Errorf("object %d not found", num)
	}
	return nil
}

func showHex(fname string, pos int64) error {
	fd, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer fd.Close()
	fi, err := fd.Stat()
	if err != nil {
		return err
	}
	dump := pdfread.Neighborhood(fd, fi.Size(), pos, true)
	if dump == "" {
		return fmt.Errorf("offset %d outside file", pos)
	}
	fmt.Print(dump)
	return nil
}

// summary shortens the textual representation of an object to one line.
func summary(obj pdfread.Object) string {
	s := pdfread.Format(obj)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
