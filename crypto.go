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
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"github.com/xdg-go/stringprep"
)

var (
	errCorrupted        = errors.New("corrupted ciphertext")
	errInvalidPassword  = errors.New("invalid password")
	errNotAuthenticated = errors.New("security handler has no valid key")
)

// The stdSecHandler authenticates the user via a pair of passwords.
// The "user password" is used to access the contents of the document, the
// "owner password" can be used to control additional permissions, e.g.
// permission to print the document.
//
// This represents the PDF standard security handler, which is specified in
// section 7.6.3 of PDF 32000-1:2008.  Only decryption is implemented.
type stdSecHandler struct {
	// R specified the revision of the standard security handler used.
	R int

	// ID is the original PDF document ID, i.e. the first element of the ID
	// array in the trailer dictionary.
	ID []byte

	O, U      []byte
	OE, UE    []byte
	Perms     []byte
	P         uint32
	keyBytes  int
	key       []byte
	ownerAuth bool

	// unencryptedMetaData specifies whether document-level XMP metadata
	// streams are encrypted.
	//
	// We use the negation of /EncryptMetadata from ISO 32000, so that
	// the Go default value (unencryptedMetaData==false) corresponds to the
	// PDF default value (/EncryptMetadata true).
	unencryptedMetaData bool

	strF *cryptFilter // strings
	stmF *cryptFilter // streams
}

// NewStandardSecurityHandler creates the standard security handler for the
// given /Encrypt dictionary.  This is the default for
// ReaderOptions.NewSecurityHandler.
func NewStandardSecurityHandler(enc Dict, id [][]byte) (SecurityHandler, error) {
	if len(id) < 1 {
		return nil, &MalformedFileError{Err: errors.New("found Encrypt but no ID")}
	}

	filter, _ := enc["Filter"].(Name)
	if filter != "Standard" {
		return nil, fmt.Errorf("%w: Filter=%s", errEncrypted, filter)
	}

	V, ok := enc["V"].(Integer)
	if !ok {
		return nil, &MalformedFileError{Err: errors.New("missing Encrypt.V")}
	}

	sec := &stdSecHandler{ID: id[0]}
	switch V {
	case 1:
		cf := &cryptFilter{Cipher: cipherRC4, Length: 40}
		sec.stmF = cf
		sec.strF = cf
		sec.keyBytes = 5
	case 2, 3:
		cf := &cryptFilter{Cipher: cipherRC4, Length: 40}
		if obj, ok := enc["Length"].(Integer); ok {
			cf.Length = int(obj)
			if cf.Length < 40 || cf.Length > 128 || cf.Length%8 != 0 {
				return nil, &MalformedFileError{
					Err: fmt.Errorf("invalid Length=%d", cf.Length),
				}
			}
		}
		sec.stmF = cf
		sec.strF = cf
		sec.keyBytes = cf.Length / 8
	case 4, 5:
		CF, _ := enc["CF"].(Dict)
		if obj, ok := enc["StmF"].(Name); ok {
			cf, err := getCryptFilter(obj, CF)
			if err != nil {
				return nil, fmt.Errorf("StmF: %w", err)
			}
			sec.stmF = cf
		}
		if obj, ok := enc["StrF"].(Name); ok {
			cf, err := getCryptFilter(obj, CF)
			if err != nil {
				return nil, fmt.Errorf("StrF: %w", err)
			}
			sec.strF = cf
		}
		if V == 4 {
			sec.keyBytes = 16
		} else {
			sec.keyBytes = 32
		}
	default:
		return nil, fmt.Errorf("%w: V=%d", errEncrypted, V)
	}

	R, ok := enc["R"].(Integer)
	if !ok || R < 2 || R == 5 || R > 6 {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.R")}
	}
	sec.R = int(R)
	ouLength := 32
	if R == 6 {
		ouLength = 48
	}

	O, ok := enc["O"].(String)
	if !ok || len(O) < ouLength {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.O")}
	}
	sec.O = []byte(O[:ouLength])

	U, ok := enc["U"].(String)
	if !ok || len(U) < ouLength {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.U")}
	}
	sec.U = []byte(U[:ouLength])

	P, ok := enc["P"].(Integer)
	if !ok {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.P")}
	}
	sec.P = uint32(P)

	if obj, ok := enc["EncryptMetadata"].(Bool); ok && V >= 4 {
		sec.unencryptedMetaData = !bool(obj)
	}

	if R == 6 {
		OE, ok := enc["OE"].(String)
		if !ok || len(OE) != 32 {
			return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.OE")}
		}
		sec.OE = []byte(OE)

		UE, ok := enc["UE"].(String)
		if !ok || len(UE) != 32 {
			return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.UE")}
		}
		sec.UE = []byte(UE)

		Perms, ok := enc["Perms"].(String)
		if !ok || len(Perms) != 16 {
			return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.Perms")}
		}
		sec.Perms = []byte(Perms)
	}

	return sec, nil
}

// ValidatePassword implements the SecurityHandler interface.
func (sec *stdSecHandler) ValidatePassword(passwd string) (PasswordLevel, error) {
	if sec.R < 6 {
		padded, err := padPassword(passwd)
		if err != nil {
			return PasswordInvalid, nil
		}
		if sec.authenticateOwner(padded) == nil {
			return PasswordOwner, nil
		}
		if sec.authenticateUser(padded) == nil {
			return PasswordUser, nil
		}
		return PasswordInvalid, nil
	}

	prepared, err := saslPassword(passwd)
	if err != nil {
		return PasswordInvalid, nil
	}
	if sec.authenticateOwner6(prepared) == nil {
		return PasswordOwner, nil
	}
	if sec.authenticateUser6(prepared) == nil {
		return PasswordUser, nil
	}
	return PasswordInvalid, nil
}

// ResetAfterSave implements the SecurityHandler interface.
func (sec *stdSecHandler) ResetAfterSave() {
	sec.key = nil
	sec.ownerAuth = false
}

// Permissions implements the SecurityHandler interface.
func (sec *stdSecHandler) Permissions() Perm {
	return permFromP(sec.R, sec.P)
}

// Decrypt implements the SecurityHandler interface.
func (sec *stdSecHandler) Decrypt(ref Reference, obj Object) (Object, error) {
	if sec.key == nil {
		return nil, errNotAuthenticated
	}
	return sec.decryptObject(ref, obj)
}

func (sec *stdSecHandler) decryptObject(ref Reference, obj Object) (Object, error) {
	switch x := obj.(type) {
	case String:
		buf, err := sec.decryptBytes(sec.strF, ref, []byte(x))
		if err != nil {
			return nil, err
		}
		return String(buf), nil
	case Array:
		for i, elem := range x {
			val, err := sec.decryptObject(ref, elem)
			if err != nil {
				return nil, err
			}
			x[i] = val
		}
		return x, nil
	case Dict:
		for key, elem := range x {
			val, err := sec.decryptObject(ref, elem)
			if err != nil {
				return nil, err
			}
			x[key] = val
		}
		return x, nil
	case *Stream:
		_, err := sec.decryptObject(ref, x.Dict)
		if err != nil {
			return nil, err
		}
		if !sec.streamIsEncrypted(x.Dict) {
			return x, nil
		}
		buf, err := sec.decryptBytes(sec.stmF, ref, x.Data)
		if err != nil {
			return nil, err
		}
		x.Data = buf
		return x, nil
	default:
		return obj, nil
	}
}

func (sec *stdSecHandler) streamIsEncrypted(dict Dict) bool {
	switch dict["Type"] {
	case Name("XRef"):
		return false
	case Name("Metadata"):
		if sec.unencryptedMetaData {
			return false
		}
	}

	// a /Crypt filter with the /Identity crypt filter disables encryption
	var filters []Object
	var parms []Object
	switch f := dict["Filter"].(type) {
	case Name:
		filters = []Object{f}
		parms = []Object{dict["DecodeParms"]}
	case Array:
		filters = f
		parms, _ = dict["DecodeParms"].(Array)
	}
	for i, f := range filters {
		if f != Name("Crypt") {
			continue
		}
		name := Name("Identity")
		if i < len(parms) {
			if p, ok := parms[i].(Dict); ok {
				if n, ok := p["Name"].(Name); ok {
					name = n
				}
			}
		}
		if name == "Identity" {
			return false
		}
	}
	return true
}

// decryptBytes decrypts the bytes in buf using Algorithm 1 of ISO 32000.
// This function modifies the contents of buf and may return buf.
func (sec *stdSecHandler) decryptBytes(cf *cryptFilter, ref Reference, buf []byte) ([]byte, error) {
	if cf == nil {
		return buf, nil
	}

	key := sec.keyForRef(cf, ref)
	switch cf.Cipher {
	case cipherAES:
		if len(buf) < 32 || len(buf)%16 != 0 {
			return nil, errCorrupted
		}
		iv := buf[:16]

		c, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}

		cbc := cipher.NewCBCDecrypter(c, iv)
		cbc.CryptBlocks(buf[16:], buf[16:])

		nPad := int(buf[len(buf)-1])
		if nPad < 1 || nPad > 16 {
			return nil, errCorrupted
		}
		return buf[16 : len(buf)-nPad], nil
	case cipherRC4:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		c.XORKeyStream(buf, buf)
		return buf, nil
	default:
		return nil, fmt.Errorf("unknown cipher %s", cf.Cipher)
	}
}

func (sec *stdSecHandler) keyForRef(cf *cryptFilter, ref Reference) []byte {
	if sec.R == 6 {
		return sec.key
	}

	h := md5.New()
	h.Write(sec.key)
	num := ref.Number()
	gen := ref.Generation()
	h.Write([]byte{
		byte(num), byte(num >> 8), byte(num >> 16),
		byte(gen), byte(gen >> 8)})
	if cf.Cipher == cipherAES {
		h.Write([]byte("sAlT"))
	}
	l := min(sec.keyBytes+5, 16)
	return h.Sum(nil)[:l]
}

// fileEncryptionKey implements Algorithm 2 of ISO 32000, used for
// revisions 2 to 4.  The argument is the password after padding.
func (sec *stdSecHandler) fileEncryptionKey(paddedUserPwd []byte) []byte {
	input := make([]byte, 0, 32+len(sec.O)+8+len(sec.ID))
	input = append(input, paddedUserPwd...)
	input = append(input, sec.O...)
	input = binary.LittleEndian.AppendUint32(input, sec.P)
	input = append(input, sec.ID...)
	if sec.R >= 4 && sec.unencryptedMetaData {
		input = append(input, 0xFF, 0xFF, 0xFF, 0xFF)
	}

	sum := md5.Sum(input)
	if sec.R >= 3 {
		for range 50 {
			sum = md5.Sum(sum[:sec.keyBytes])
		}
	}
	return sum[:sec.keyBytes]
}

// Algorithm 2.B: Computing a hash (revision 6 and later)
func slowHash(passwd, salt, U []byte) []byte {
	h := sha256.New()
	h.Write(passwd)
	h.Write(salt)
	h.Write(U)
	K := h.Sum(nil)

	K1 := make([]byte, 64*(len(passwd)+64+len(U)))

	// At least 64 rounds, then continue until the last byte of E is at
	// most (round number) - 32.
	for i := 0; i < 64 || K1[len(K1)-1] > byte(i-32); i++ {
		K1 = K1[:0]
		for j := 0; j < 64; j++ {
			K1 = append(K1, passwd...)
			K1 = append(K1, K...)
			K1 = append(K1, U...)
		}

		c, _ := aes.NewCipher(K[:16])
		cbc := cipher.NewCBCEncrypter(c, K[16:32])
		// The length of K1 is a multiple of 64, so this is safe.
		cbc.CryptBlocks(K1, K1)

		// Since (a*256)%3 = (a*255)%3+a%3 = a%3, we can just add all bytes.
		var rem int
		for _, b := range K1[:16] {
			rem += int(b)
		}
		rem %= 3

		var h hash.Hash
		switch rem {
		case 0:
			h = sha256.New()
		case 1:
			h = sha512.New384()
		case 2:
			h = sha512.New()
		}
		h.Write(K1)
		K = h.Sum(K[:0])
	}

	return K[:32]
}

// Algorithm 4/5: compute U.
func (sec *stdSecHandler) computeU(fileEncyptionKey []byte) []byte {
	U := make([]byte, 32)
	switch sec.R {
	case 2:
		c, _ := rc4.NewCipher(fileEncyptionKey)
		c.XORKeyStream(U, passwordPadding)
	default:
		h := md5.New()
		h.Write(passwordPadding)
		h.Write(sec.ID)
		U = h.Sum(U[:0])
		c, _ := rc4.NewCipher(fileEncyptionKey)
		c.XORKeyStream(U, U)

		tmpKey := make([]byte, len(fileEncyptionKey))
		for i := byte(1); i <= 19; i++ {
			for j := range tmpKey {
				tmpKey[j] = fileEncyptionKey[j] ^ i
			}
			c, _ = rc4.NewCipher(tmpKey)
			c.XORKeyStream(U, U)
		}
		// This gives the first 16 bytes of U, the remaining 16 bytes
		// are "arbitrary padding".
		U = append(U[:16],
			0, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0, 0, 0)
	}
	return U
}

// Algorithm 6: Authenticating the user password (Security handlers of revision 4 and earlier)
func (sec *stdSecHandler) authenticateUser(paddedUserPwd []byte) error {
	key := sec.fileEncryptionKey(paddedUserPwd)
	U := sec.computeU(key)
	n := 16
	if sec.R == 2 {
		n = 32
	}
	if !bytes.Equal(U[:n], sec.U[:n]) {
		return errInvalidPassword
	}
	sec.key = key
	return nil
}

// ownerKey computes the RC4 key used to encrypt the O value.
func (sec *stdSecHandler) ownerKey(paddedOwnerPwd []byte) []byte {
	h := md5.New()
	h.Write(paddedOwnerPwd)
	sum := h.Sum(nil)
	if sec.R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			// ISO 32000 does not mention the truncation, but this seems to be
			// required anyway.
			h.Write(sum[:sec.keyBytes])
			sum = h.Sum(sum[:0])
		}
	}
	return sum[:sec.keyBytes]
}

// Algorithm 7: Authenticating the owner password (Security handlers of revision 4 and earlier)
func (sec *stdSecHandler) authenticateOwner(paddedOwnerPwd []byte) error {
	key := sec.ownerKey(paddedOwnerPwd)

	buf := make([]byte, 32)
	copy(buf, sec.O)
	switch sec.R {
	case 2:
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(buf, buf)
	default:
		tmpKey := make([]byte, len(key))
		for i := 19; i >= 0; i-- {
			for j := range tmpKey {
				tmpKey[j] = key[j] ^ byte(i)
			}
			c, _ := rc4.NewCipher(tmpKey)
			c.XORKeyStream(buf, buf)
		}
	}

	err := sec.authenticateUser(buf)
	if err != nil {
		return err
	}
	sec.ownerAuth = true
	return nil
}

// Algorithm 11: Authenticating the user password (Security handlers of revision 6)
func (sec *stdSecHandler) authenticateUser6(passwd []byte) error {
	hash := slowHash(passwd, sec.U[32:40], nil)
	if !bytes.Equal(hash, sec.U[:32]) {
		return errInvalidPassword
	}

	key := slowHash(passwd, sec.U[40:48], nil) // user key salt
	c, _ := aes.NewCipher(key)
	cbc := cipher.NewCBCDecrypter(c, zeroIV)
	fileEncryptionKey := make([]byte, 32)
	cbc.CryptBlocks(fileEncryptionKey, sec.UE)

	err := sec.checkPerms(fileEncryptionKey)
	if err != nil {
		return err
	}

	sec.key = fileEncryptionKey
	return nil
}

// Algorithm 12: Authenticating the owner password (Security handlers of revision 6)
func (sec *stdSecHandler) authenticateOwner6(passwd []byte) error {
	hash := slowHash(passwd, sec.O[32:40], sec.U)
	if !bytes.Equal(hash, sec.O[:32]) {
		return errInvalidPassword
	}

	key := slowHash(passwd, sec.O[40:48], sec.U) // owner key salt
	c, _ := aes.NewCipher(key)
	cbc := cipher.NewCBCDecrypter(c, zeroIV)
	fileEncryptionKey := make([]byte, 32)
	cbc.CryptBlocks(fileEncryptionKey, sec.OE)

	err := sec.checkPerms(fileEncryptionKey)
	if err != nil {
		return err
	}

	sec.key = fileEncryptionKey
	sec.ownerAuth = true
	return nil
}

func (sec *stdSecHandler) checkPerms(fileEncryptionKey []byte) error {
	buf := make([]byte, 16)

	c, _ := aes.NewCipher(fileEncryptionKey)
	c.Decrypt(buf, sec.Perms)
	if !bytes.Equal(buf[9:12], []byte{'a', 'd', 'b'}) {
		return errInvalidPassword
	}
	perms := binary.LittleEndian.Uint32(buf[:4])
	if perms != sec.P {
		return errInvalidPassword
	}

	var emdCode byte
	if sec.unencryptedMetaData {
		emdCode = 'F'
	} else {
		emdCode = 'T'
	}
	if buf[8] != emdCode {
		return errInvalidPassword
	}

	return nil
}

// saslPassword prepares a password for revision 6.  At most 127 bytes
// of the UTF-8 encoding are used.
func saslPassword(passwd string) ([]byte, error) {
	prepped, err := stringprep.SASLprep.Prepare(passwd)
	if err != nil {
		return nil, errInvalidPassword
	}
	return []byte(prepped)[:min(len(prepped), 127)], nil
}

// padPassword converts a password for revisions 2 to 4 into the
// 32 byte form used by the key derivation.
func padPassword(passwd string) ([]byte, error) {
	enc, ok := pdfDocEncode(passwd)
	if !ok {
		return nil, errInvalidPassword
	}
	padded := make([]byte, 0, len(enc)+len(passwordPadding))
	padded = append(padded, enc...)
	padded = append(padded, passwordPadding...)
	return padded[:32], nil
}

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var zeroIV = make([]byte, aes.BlockSize)

// permFromP decodes the user access permissions in /P.  Bits are counted
// from 1, as in ISO 32000.
func permFromP(R int, P uint32) Perm {
	bit := func(n uint) bool { return P&(1<<(n-1)) != 0 }

	perm := PermAll
	switch {
	case !bit(3) && (R == 2 || !bit(12)):
		perm &^= PermPrint | PermPrintDegraded
	case R >= 3 && !bit(12):
		// degraded printing only
		perm &^= PermPrint
	}
	if !bit(4) {
		perm &^= PermModify
		if !bit(11) {
			perm &^= PermAssemble
		}
	}
	if !bit(5) {
		perm &^= PermCopy
	}
	if !bit(6) {
		perm &^= PermAnnotate
		if !bit(9) {
			perm &^= PermForms
		}
	}
	return perm
}

type cryptFilter struct {
	Cipher cipherType

	// Length is the key length in bits.
	Length int
}

func (cf *cryptFilter) String() string {
	return fmt.Sprintf("%s-%d", cf.Cipher, cf.Length)
}

func getCryptFilter(cryptFilterName Name, CF Dict) (*cryptFilter, error) {
	if cryptFilterName == "Identity" {
		return nil, nil
	}
	if CF == nil {
		return nil, errors.New("missing CF dictionary")
	}

	cfDict, ok := CF[cryptFilterName].(Dict)
	if !ok {
		return nil, errors.New("missing " + string(cryptFilterName) + " entry in CF dict")
	}

	res := &cryptFilter{}
	switch cfDict["CFM"] {
	case Name("V2"):
		res.Cipher = cipherRC4
		res.Length = 128
	case Name("AESV2"):
		res.Cipher = cipherAES
		res.Length = 128
	case Name("AESV3"):
		res.Cipher = cipherAES
		res.Length = 256
	case Name("None"):
		return nil, nil
	default:
		return nil, errors.New("unknown cipher")
	}
	return res, nil
}

// cipherType denotes the type of encryption used in (parts of) a PDF file.
type cipherType int

const (
	cipherUnknown cipherType = iota

	// cipherRC4 corresponds to the StdCF crypt filter with a CFM value of
	// V2.
	cipherRC4

	// cipherAES indicates that AES encryption in CBC mode is used.  This
	// corresponds to the StdCF crypt filter with a CFM value of AESV2 or
	// AESV3.
	cipherAES
)

func (c cipherType) String() string {
	switch c {
	case cipherUnknown:
		return "unknown"
	case cipherRC4:
		return "RC4"
	case cipherAES:
		return "AES"
	default:
		return fmt.Sprintf("cipher#%d", c)
	}
}
