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
// Package pdfread loads the object graph of PDF files.
//
// A file is read in one go: the cross-reference sections are decoded, the
// object streams are opened, and every indirect object is read and, if
// the file is encrypted, decrypted.  The result is a Document which holds
// all objects in memory:
//
//	doc, err := pdfread.Open("in.pdf", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	root := doc.Root()
//	pages := doc.Resolve(root["Pages"])
//	... use the objects ...
//
// Objects refer to each other via Reference values, which can be looked
// up using Document.Get or Document.Resolve.  References to objects which
// do not exist in the file are replaced by null (nil) during loading.
//
// The following types implement the native PDF object types.
// All of these implement the [Object] interface:
//
//	Array
//	Bool
//	Dict
//	Integer
//	Name
//	Real
//	Reference
//	Stream
//	String
//	TextString
//
// Many PDF files found in the wild are slightly malformed.  The loader
// repairs common problems, for example wrong stream lengths or
// cross-reference tables with shifted object numbers.  How these problems
// are reported is controlled by ReaderOptions.ErrorHandling.
package pdfread
