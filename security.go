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

import "fmt"

// PasswordLevel is the access level granted by a password.
type PasswordLevel int

const (
	// PasswordInvalid means that the password was not accepted.
	PasswordInvalid PasswordLevel = iota

	// PasswordUser grants access to the document contents.
	PasswordUser

	// PasswordOwner grants full access, including the right to change the
	// document.
	PasswordOwner
)

func (l PasswordLevel) String() string {
	switch l {
	case PasswordInvalid:
		return "invalid"
	case PasswordUser:
		return "user"
	case PasswordOwner:
		return "owner"
	default:
		return fmt.Sprintf("PasswordLevel(%d)", int(l))
	}
}

// SecurityHandler decrypts the objects of an encrypted file.
type SecurityHandler interface {
	// ValidatePassword checks a password and, if it is valid, prepares the
	// handler for decryption.
	ValidatePassword(passwd string) (PasswordLevel, error)

	// Decrypt decrypts all strings and stream data contained in obj, which
	// is the value of the indirect object ref.  The returned object
	// replaces obj.
	Decrypt(ref Reference, obj Object) (Object, error)

	// ResetAfterSave forgets all key material.  After this has been
	// called, Decrypt must not be used.
	ResetAfterSave()

	// Permissions returns the operations permitted with user access.
	Permissions() Perm
}

// NewSecurityHandlerFunc creates a security handler from the /Encrypt
// dictionary and the /ID array of a file.
type NewSecurityHandlerFunc func(encrypt Dict, id [][]byte) (SecurityHandler, error)

// Perm describes which operations are permitted when accessing the document
// with User access (but not Owner access).  The user can always view the
// document.
//
// This library just reports the permissions as specified in the PDF file.
// It is up to the caller to enforce the permissions.
type Perm int

const (
	// PermCopy allows to extract text and graphics.
	PermCopy Perm = 1 << iota

	// PermPrintDegraded allows printing of a low-level representation of the
	// appearance, possibly of degraded quality.
	PermPrintDegraded

	// PermPrint allows printing a representation from which a faithful digital
	// copy of the PDF content could be generated.  This implies
	// PermPrintDegraded.
	PermPrint

	// PermForms allows to fill in form fields, including signature fields.
	PermForms

	// PermAnnotate allows to add or modify text annotations. This implies
	// PermForms.
	PermAnnotate

	// PermAssemble allows to insert, rotate, or delete pages and to create
	// bookmarks or thumbnail images.
	PermAssemble

	// PermModify allows to modify the document.  This implies PermAssemble.
	PermModify

	permNext

	// PermAll gives the user all permissions, making User access equivalent to
	// Owner access.
	PermAll = permNext - 1
)
