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
	"fmt"
	"io"

	"seehuhn.de/go/pdfread/internal/filter"
)

// maxDecodedSize limits the size of decoded stream data.
const maxDecodedSize = 1 << 30

// FilterInfo describes one step of the /Filter chain of a stream.
type FilterInfo struct {
	Name  Name
	Parms Dict
}

// filters returns the filter chain of a stream dictionary.  The resolve
// function is used to look up indirect objects.
func filters(dict Dict, resolve func(Object) Object) ([]*FilterInfo, error) {
	parms := resolve(dict["DecodeParms"])
	if parms == nil {
		parms = resolve(dict["DP"])
	}

	var res []*FilterInfo
	switch f := resolve(dict["Filter"]).(type) {
	case nil:
		// no filters
	case Name:
		info := &FilterInfo{Name: f}
		if p, ok := resolve(parms).(Dict); ok {
			info.Parms = p
		}
		res = append(res, info)
	case Array:
		pa, _ := parms.(Array)
		for i, elem := range f {
			name, ok := resolve(elem).(Name)
			if !ok {
				return nil, fmt.Errorf("invalid filter name %s", Format(elem))
			}
			info := &FilterInfo{Name: name}
			if i < len(pa) {
				if p, ok := resolve(pa[i]).(Dict); ok {
					info.Parms = p
				}
			}
			res = append(res, info)
		}
	default:
		return nil, fmt.Errorf("invalid /Filter %s", Format(f))
	}
	return res, nil
}

// params converts a /DecodeParms dictionary into filter parameters.
func (fi *FilterInfo) params(resolve func(Object) Object) filter.Params {
	var p filter.Params
	getInt := func(key Name) (int, bool) {
		x, ok := resolve(fi.Parms[key]).(Integer)
		return int(x), ok
	}
	getBool := func(key Name) bool {
		x, _ := resolve(fi.Parms[key]).(Bool)
		return bool(x)
	}
	p.Predictor, _ = getInt("Predictor")
	p.Colors, _ = getInt("Colors")
	p.BitsPerComponent, _ = getInt("BitsPerComponent")
	p.Columns, _ = getInt("Columns")
	if ec, ok := getInt("EarlyChange"); ok && ec == 0 {
		p.EarlyChange = filter.EarlyChangeOff
	}
	p.K, _ = getInt("K")
	p.Rows, _ = getInt("Rows")
	p.EncodedByteAlign = getBool("EncodedByteAlign")
	p.BlackIs1 = getBool("BlackIs1")
	return p
}

// decodeStream applies the filter chain of a stream to its data.  Decoding
// stops before the first image filter, so that for example JPEG data is
// returned in its encoded form.
func decodeStream(s *Stream, resolve func(Object) Object) ([]byte, error) {
	ff, err := filters(s.Dict, resolve)
	if err != nil {
		return nil, err
	}

	var r io.Reader = bytes.NewReader(s.Data)
	for _, fi := range ff {
		name := string(fi.Name)
		if filter.IsImageFilter(name) {
			break
		}
		r, err = filter.NewReader(name, r, fi.params(resolve))
		if err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDecodedSize {
		return nil, fmt.Errorf("decoded stream exceeds %d bytes", maxDecodedSize)
	}
	return data, nil
}
