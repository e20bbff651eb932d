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
	"io"
	"math"
	"strconv"
	"unicode/utf8"
)

// symbol is the kind of a lexical token.
type symbol int

const (
	symNone symbol = iota
	symComment
	symInteger
	symLongInteger
	symReal
	symString
	symHexString
	symName
	symBoolean
	symNull
	symKeyword
	symR
	symBeginArray
	symEndArray
	symBeginDictionary
	symEndDictionary
	symBeginStream
	symEndStream
	symObj
	symEndObj
	symXRef
	symTrailer
	symStartXRef
	symObjRef
	symEOF
)

var symbolNames = [...]string{
	symNone:            "none",
	symComment:         "comment",
	symInteger:         "integer",
	symLongInteger:     "long integer",
	symReal:            "real",
	symString:          "string",
	symHexString:       "hex string",
	symName:            "name",
	symBoolean:         "boolean",
	symNull:            "null",
	symKeyword:         "keyword",
	symR:               "R",
	symBeginArray:      "[",
	symEndArray:        "]",
	symBeginDictionary: "<<",
	symEndDictionary:   ">>",
	symBeginStream:     "stream",
	symEndStream:       "endstream",
	symObj:             "obj",
	symEndObj:          "endobj",
	symXRef:            "xref",
	symTrailer:         "trailer",
	symStartXRef:       "startxref",
	symObjRef:          "object reference",
	symEOF:             "EOF",
}

func (s symbol) String() string {
	if s >= 0 && int(s) < len(symbolNames) {
		return symbolNames[s]
	}
	return "symbol(" + strconv.Itoa(int(s)) + ")"
}

// keywords maps the reserved words of the PDF syntax to their token kinds.
// The table is never modified after initialization.
var keywords = map[string]symbol{
	"obj":       symObj,
	"endobj":    symEndObj,
	"null":      symNull,
	"true":      symBoolean,
	"false":     symBoolean,
	"R":         symR,
	"stream":    symBeginStream,
	"endstream": symEndStream,
	"xref":      symXRef,
	"trailer":   symTrailer,
	"startxref": symStartXRef,
}

const chEOF = -1

// token holds the current token of a lexer, together with its value.
type token struct {
	sym   symbol
	start int64
	text  []byte

	str  []byte  // symString, symHexString, symName
	ival int64   // symInteger, symLongInteger
	fval float64 // symReal
	bval bool    // symBoolean
	num  uint32  // symObjRef
	gen  uint16  // symObjRef
}

// lexerState captures everything needed to resume scanning at an earlier
// point.
type lexerState struct {
	pos int64
	tok token
}

// lexer splits the bytes of a PDF file into tokens.
// Every byte is treated as a character in the range 0-255.
type lexer struct {
	r    io.ReaderAt
	size int64

	buf    []byte
	bufPos int64
	ioErr  error

	pos       int64 // position of cur
	cur, next int

	tok token

	// warn is called for recoverable problems.  If it returns an error,
	// scanning is aborted.
	warn func(pos int64, format string, args ...interface{}) error

	// fatal, if set, turns unrecoverable problems into errors which
	// show the neighbourhood of pos.
	fatal func(pos int64, err error) error
}

const lexerBufSize = 4096

func newLexer(r io.ReaderAt, size int64) *lexer {
	l := &lexer{
		r:    r,
		size: size,
	}
	l.SetPosition(0)
	return l
}

func (l *lexer) report(pos int64, format string, args ...interface{}) error {
	if l.warn == nil {
		return nil
	}
	return l.warn(pos, format, args...)
}

// byteAt returns the byte at the given file position, or chEOF.
func (l *lexer) byteAt(pos int64) int {
	if pos < 0 || pos >= l.size {
		return chEOF
	}
	if pos < l.bufPos || pos >= l.bufPos+int64(len(l.buf)) {
		if cap(l.buf) < lexerBufSize {
			l.buf = make([]byte, lexerBufSize)
		}
		l.buf = l.buf[:cap(l.buf)]
		n, err := l.r.ReadAt(l.buf, pos)
		if err != nil && err != io.EOF {
			l.ioErr = err
		}
		l.buf = l.buf[:n]
		l.bufPos = pos
		if n == 0 {
			return chEOF
		}
	}
	return int(l.buf[pos-l.bufPos])
}

// Position returns the file offset of the current character.
func (l *lexer) Position() int64 {
	return l.pos
}

// SetPosition moves the lexer to the given file offset and refills the
// two-character lookahead.
func (l *lexer) SetPosition(pos int64) {
	l.pos = pos
	l.cur = l.byteAt(pos)
	l.next = l.byteAt(pos + 1)
}

func (l *lexer) advance() int {
	l.pos++
	l.cur = l.next
	l.next = l.byteAt(l.pos + 1)
	return l.cur
}

func (l *lexer) save() lexerState {
	st := lexerState{pos: l.pos, tok: l.tok}
	st.tok.text = append([]byte(nil), l.tok.text...)
	st.tok.str = append([]byte(nil), l.tok.str...)
	return st
}

func (l *lexer) restore(st lexerState) {
	l.SetPosition(st.pos)
	l.tok = st.tok
}

func (l *lexer) malformed(pos int64, msg string) error {
	if l.fatal != nil {
		return l.fatal(pos, errors.New(msg))
	}
	return &MalformedFileError{Pos: pos, Err: errors.New(msg)}
}

// skipWhiteSpace skips white space and comments.
func (l *lexer) skipWhiteSpace() {
	for {
		c := l.cur
		switch {
		case c == chEOF:
			return
		case isSpace[byte(c)]:
			l.advance()
		case c == '%':
			for c != chEOF && c != '\n' && c != '\r' {
				c = l.advance()
			}
		default:
			return
		}
	}
}

// scanNextToken reads the next token.  If testForObjRef is set, an integer
// which is followed by a generation number and the keyword "R" is returned
// as a single symObjRef token.
func (l *lexer) scanNextToken(testForObjRef bool) (symbol, error) {
	for {
		l.skipWhiteSpace()

		l.tok = token{start: l.pos, text: l.tok.text[:0]}
		c := l.cur
		var err error
		switch {
		case c == chEOF:
			l.tok.sym = symEOF
		case c == '/':
			err = l.scanName()
		case c >= '0' && c <= '9':
			err = l.scanNumber(testForObjRef)
		case c == '+' || c == '-':
			if isDigit(l.next) || l.next == '.' {
				err = l.scanNumber(testForObjRef)
			} else {
				err = l.skipStray()
				if err == nil {
					continue
				}
			}
		case c == '.':
			if isDigit(l.next) {
				err = l.scanNumber(testForObjRef)
			} else {
				err = l.skipStray()
				if err == nil {
					continue
				}
			}
		case c == '(':
			err = l.scanLiteralString()
		case c == '<':
			if l.next == '<' {
				l.advance()
				l.advance()
				l.tok.sym = symBeginDictionary
			} else {
				err = l.scanHexString()
			}
		case c == '>':
			if l.next == '>' {
				l.advance()
				l.advance()
				l.tok.sym = symEndDictionary
			} else {
				err = l.skipStray()
				if err == nil {
					continue
				}
			}
		case c == '[':
			l.advance()
			l.tok.sym = symBeginArray
		case c == ']':
			l.advance()
			l.tok.sym = symEndArray
		case isLetter(c):
			l.scanKeyword()
		default:
			err = l.skipStray()
			if err == nil {
				continue
			}
		}
		if err != nil {
			return symNone, err
		}
		if l.ioErr != nil {
			return symNone, l.ioErr
		}
		if len(l.tok.text) == 0 {
			l.tok.text = l.rawText(l.tok.start, l.pos)
		}
		return l.tok.sym, nil
	}
}

func (l *lexer) rawText(from, to int64) []byte {
	res := l.tok.text[:0]
	for p := from; p < to; p++ {
		res = append(res, byte(l.byteAt(p)))
	}
	return res
}

func (l *lexer) skipStray() error {
	pos := l.pos
	c := l.cur
	l.advance()
	return l.report(pos, "unexpected character %q skipped", rune(c))
}

func (l *lexer) scanKeyword() {
	for c := l.cur; c != chEOF && !isSpace[byte(c)] && !isDelimiter[byte(c)]; c = l.advance() {
		l.tok.text = append(l.tok.text, byte(c))
	}
	sym, ok := keywords[string(l.tok.text)]
	if !ok {
		sym = symKeyword
	}
	l.tok.sym = sym
	if sym == symBoolean {
		l.tok.bval = string(l.tok.text) == "true"
	}
}

// scanName reads a name token.  The leading slash is not included in the
// value.
func (l *lexer) scanName() error {
	l.advance() // skip "/"
	var val []byte
	highBits := false
	for c := l.cur; c != chEOF && !isSpace[byte(c)] && !isDelimiter[byte(c)]; c = l.cur {
		if c == '#' {
			h1, ok1 := hexValue(l.next)
			h2, ok2 := -1, false
			if ok1 {
				h2, ok2 = hexValue(l.byteAt(l.pos + 2))
			}
			if ok1 && ok2 {
				c = h1<<4 | h2
				l.advance()
				l.advance()
			} else {
				err := l.report(l.pos, "invalid escape sequence in name")
				if err != nil {
					return err
				}
			}
		}
		if c >= 0xC0 {
			highBits = true
		}
		val = append(val, byte(c))
		l.advance()
	}
	if highBits && !utf8.Valid(val) {
		err := l.report(l.tok.start, "name %q is not valid UTF-8", val)
		if err != nil {
			return err
		}
	}
	l.tok.sym = symName
	l.tok.str = val
	return nil
}

// scanNumber reads an integer or real number.  Numbers with a decimal point,
// with more than 18 digits, or with more than 10 fractional digits are
// returned as symReal.
func (l *lexer) scanNumber(testForObjRef bool) error {
	start := l.pos
	text := l.tok.text[:0]

	signed := false
	neg := false
	if l.cur == '+' || l.cur == '-' {
		signed = true
		neg = l.cur == '-'
		text = append(text, byte(l.cur))
		l.advance()
	}

	var mantissa int64
	digits := 0
	fracDigits := 0
	hasDot := false
	for {
		c := l.cur
		if isDigit(c) {
			if digits < 18 {
				mantissa = mantissa*10 + int64(c-'0')
			}
			digits++
			if hasDot {
				fracDigits++
			}
		} else if c == '.' {
			if hasDot {
				return l.malformed(l.pos, "more than one period in number")
			}
			hasDot = true
		} else {
			break
		}
		text = append(text, byte(c))
		l.advance()
	}
	l.tok.text = text

	if digits == 0 {
		l.tok.sym = symReal
		l.tok.fval = 0
		return l.report(start, "malformed number %q", text)
	}

	if hasDot || digits > 18 || fracDigits > 10 {
		l.tok.sym = symReal
		if digits > 18 || fracDigits > 10 {
			x, err := strconv.ParseFloat(string(text), 64)
			if err != nil {
				return l.malformed(start, "malformed number "+strconv.Quote(string(text)))
			}
			l.tok.fval = x
		} else {
			x := float64(mantissa) / math.Pow10(fracDigits)
			if neg {
				x = -x
			}
			l.tok.fval = x
		}
		return nil
	}

	val := mantissa
	if neg {
		val = -val
	}
	l.tok.ival = val
	if val >= math.MinInt32 && val <= math.MaxInt32 {
		l.tok.sym = symInteger
	} else {
		l.tok.sym = symLongInteger
	}

	if testForObjRef && !signed && digits <= 7 && l.cur != chEOF && isSpace[byte(l.cur)] {
		l.tryObjRef()
	}
	return nil
}

// tryObjRef checks whether the integer just read is the start of an object
// reference "num gen R".  If not, the lexer state is left unchanged.
func (l *lexer) tryObjRef() {
	st := l.save()

	for l.cur != chEOF && isSpace[byte(l.cur)] {
		l.advance()
	}
	var gen int
	genDigits := 0
	for isDigit(l.cur) {
		gen = gen*10 + l.cur - '0'
		genDigits++
		l.advance()
	}
	ok := genDigits > 0 && genDigits <= 5 && gen <= math.MaxUint16 &&
		l.cur != chEOF && isSpace[byte(l.cur)]
	if ok {
		for l.cur != chEOF && isSpace[byte(l.cur)] {
			l.advance()
		}
		ok = l.cur == 'R' &&
			(l.next == chEOF || isSpace[byte(l.next)] || isDelimiter[byte(l.next)])
	}
	if !ok {
		l.restore(st)
		return
	}
	l.advance() // skip "R"

	l.tok.sym = symObjRef
	l.tok.num = uint32(st.tok.ival)
	l.tok.gen = uint16(gen)
	l.tok.text = l.rawText(l.tok.start, l.pos)
}

// scanLiteralString reads a string enclosed in parentheses.
func (l *lexer) scanLiteralString() error {
	l.advance() // skip "("
	var res []byte
	depth := 0
	for {
		c := l.cur
		switch c {
		case chEOF:
			l.tok.sym = symString
			l.tok.str = res
			return l.report(l.tok.start, "unterminated string")
		case '(':
			depth++
		case ')':
			if depth == 0 {
				l.advance()
				l.tok.sym = symString
				l.tok.str = res
				return nil
			}
			depth--
		case '\r':
			// an unescaped end-of-line marker is read as a single LF
			if l.next == '\n' {
				l.advance()
			}
			c = '\n'
		case '\\':
			c = l.advance()
			switch c {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '(', ')', '\\', ' ':
				// literal
			case '\r':
				if l.next == '\n' {
					l.advance()
				}
				l.advance()
				continue
			case '\n':
				l.advance()
				continue
			case chEOF:
				continue
			default:
				if c >= '0' && c <= '7' {
					val := c - '0'
					for i := 0; i < 2 && l.next >= '0' && l.next <= '7'; i++ {
						val = val*8 + l.advance() - '0'
					}
					c = val & 0xFF
				} else {
					err := l.report(l.pos-1, "illegal escape sequence \\%c in string", rune(c))
					if err != nil {
						return err
					}
				}
			}
		}
		res = append(res, byte(c))
		l.advance()
	}
}

// scanHexString reads a string of the form <...>.
func (l *lexer) scanHexString() error {
	l.advance() // skip "<"
	var res []byte
	var hi int
	odd := false
	for {
		c := l.cur
		if c == '>' {
			l.advance()
			break
		}
		if c == chEOF {
			err := l.report(l.tok.start, "unterminated hex string")
			if err != nil {
				return err
			}
			break
		}
		if isSpace[byte(c)] {
			l.advance()
			continue
		}
		val, ok := hexValue(c)
		if !ok {
			err := l.report(l.pos, "illegal character %q in hex string", rune(c))
			if err != nil {
				return err
			}
			val = 0
		}
		if odd {
			res = append(res, byte(hi<<4|val))
		} else {
			hi = val
		}
		odd = !odd
		l.advance()
	}
	if odd {
		res = append(res, byte(hi<<4))
	}
	l.tok.sym = symHexString
	l.tok.str = res
	return nil
}

// findStreamStart is called after the "stream" keyword has been read.  It
// returns the offset of the first byte of stream data.
func (l *lexer) findStreamStart() (int64, error) {
	pos := l.pos
	blanks := false
	for l.cur == ' ' || l.cur == '\t' {
		blanks = true
		l.advance()
	}
	if blanks {
		err := l.report(pos, "white space after stream keyword")
		if err != nil {
			return 0, err
		}
	}
	switch l.cur {
	case '\n':
		l.advance()
	case '\r':
		if l.next == '\n' {
			l.advance()
			l.advance()
		} else {
			l.advance()
			err := l.report(pos, "stream keyword followed by CR without LF")
			if err != nil {
				return 0, err
			}
		}
	default:
		err := l.report(pos, "stream keyword not followed by end-of-line")
		if err != nil {
			return 0, err
		}
	}
	return l.pos, nil
}

var endstreamKeyword = []byte("endstream")

// determineStreamLength searches for the "endstream" keyword, starting at
// the given position, and returns the length of the stream data.  The search
// proceeds in chunks of the given size until the end of file is reached.
func (l *lexer) determineStreamLength(start int64, window int) (int64, error) {
	if window < 2*len(endstreamKeyword) {
		window = 2 * len(endstreamKeyword)
	}
	buf := make([]byte, window)
	k := int64(len(endstreamKeyword))
	for pos := start; pos < l.size; pos += int64(window) - k {
		n, err := l.r.ReadAt(buf, pos)
		if err != nil && err != io.EOF {
			return 0, err
		}
		idx := bytes.Index(buf[:n], endstreamKeyword)
		if idx >= 0 {
			end := pos + int64(idx)
			if end > start && l.byteAt(end-1) == '\n' {
				end--
				if end > start && l.byteAt(end-1) == '\r' {
					end--
				}
			} else if end > start && l.byteAt(end-1) == '\r' {
				end--
			}
			return end - start, nil
		}
		if n < len(buf) {
			break
		}
	}
	return 0, l.malformed(start, "endstream not found")
}

func isDigit(c int) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c int) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func hexValue(c int) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

var (
	isSpace = map[byte]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = map[byte]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
