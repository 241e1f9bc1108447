/*
 dir.go

 GNU GENERAL PUBLIC LICENSE
 Version 3, 29 June 2007
 Copyright (C) 2024 Jack Ng <jack.ng.ca@gmail.com>

 This program is free software: you can redistribute it and/or modify
 it under the terms of the GNU General Public License as published by
 the Free Software Foundation, either version 3 of the License, or
 (at your option) any later version.

 This program is distributed in the hope that it will be useful,
 but WITHOUT ANY WARRANTY; without even the implied warranty of
 MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 GNU General Public License for more details.

 You should have received a copy of the GNU General Public License
 along with this program.  If not, see <https://www.gnu.org/licenses/> */

package fsclient

import (
	"strconv"
	"strings"
)

// Dirent is one name -> inum mapping inside a directory's content.
type Dirent struct {
	Name string
	Inum uint32
}

// encodeDir serializes entries as name, a NUL byte, the inum in decimal,
// concatenated with no further separator: the next entry's name starts
// immediately after the last decimal digit.
func encodeDir(entries []Dirent) []byte {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Name)
		b.WriteByte(0)
		b.WriteString(strconv.FormatUint(uint64(e.Inum), 10))
	}
	return []byte(b.String())
}

// decodeDir reads a name up to the next NUL, then parses as many
// following decimal digits as are there. It reverses encodeDir only
// when no entry after the first has a name starting with a decimal
// digit: such leading digits are read as part of the previous inum.
func decodeDir(data []byte) []Dirent {
	var entries []Dirent
	pos := 0
	for pos < len(data) {
		nul := pos
		for nul < len(data) && data[nul] != 0 {
			nul++
		}
		if nul >= len(data) {
			break
		}
		name := string(data[pos:nul])

		digitsStart := nul + 1
		digitsEnd := digitsStart
		for digitsEnd < len(data) && data[digitsEnd] >= '0' && data[digitsEnd] <= '9' {
			digitsEnd++
		}
		inum, _ := strconv.ParseUint(string(data[digitsStart:digitsEnd]), 10, 32)

		entries = append(entries, Dirent{Name: name, Inum: uint32(inum)})
		pos = digitsEnd
	}
	return entries
}
