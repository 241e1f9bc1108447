/*
 client_test.go

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDirRoundTrip(t *testing.T) {
	entries := []Dirent{{Name: "foo", Inum: 2}, {Name: "bar", Inum: 17}, {Name: "baz123", Inum: 8}}
	got := decodeDir(encodeDir(entries))
	assert.Equal(t, entries, got)
}

func TestCreateLookupUnlink(t *testing.T) {
	c := NewClient()

	inum, st := c.Create(1, "hello.txt")
	require.Equal(t, OK, st)

	found, got, st := c.Lookup(1, "hello.txt")
	require.Equal(t, OK, st)
	assert.True(t, found)
	assert.Equal(t, inum, got)

	require.Equal(t, OK, c.Unlink(1, "hello.txt"))

	found, _, st = c.Lookup(1, "hello.txt")
	require.Equal(t, OK, st)
	assert.False(t, found)
}

func TestCreateDuplicateNameIsExist(t *testing.T) {
	c := NewClient()
	_, st := c.Create(1, "dup")
	require.Equal(t, OK, st)

	_, st = c.Create(1, "dup")
	assert.Equal(t, EXIST, st)
}

func TestMkdirRmdirRequiresEmpty(t *testing.T) {
	c := NewClient()
	dir, st := c.Mkdir(1, "sub")
	require.Equal(t, OK, st)

	_, st = c.Create(dir, "child.txt")
	require.Equal(t, OK, st)

	assert.Equal(t, IOERR, c.Rmdir(1, "sub"), "rmdir on a non-empty directory must fail")

	require.Equal(t, OK, c.Unlink(dir, "child.txt"))
	assert.Equal(t, OK, c.Rmdir(1, "sub"))
}

func TestUnlinkRejectsDirectory(t *testing.T) {
	c := NewClient()
	c.Mkdir(1, "adir")
	assert.Equal(t, IOERR, c.Unlink(1, "adir"))
}

func TestRmdirRejectsFile(t *testing.T) {
	c := NewClient()
	c.Create(1, "afile")
	assert.Equal(t, IOERR, c.Rmdir(1, "afile"))
}

func TestWriteThenReadByteOffsets(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")

	n, st := c.Write(inum, 0, []byte("hello world"))
	require.Equal(t, OK, st)
	assert.Equal(t, 11, n)

	got, st := c.Read(inum, 5, 6)
	require.Equal(t, OK, st)
	assert.Equal(t, "world", string(got))
}

func TestWritePastEndZeroExtends(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")

	c.Write(inum, 0, []byte("ab"))
	n, st := c.Write(inum, 5, []byte("xy"))
	require.Equal(t, OK, st)
	assert.Equal(t, 2, n)

	got, st := c.Read(inum, 100, 0)
	require.Equal(t, OK, st)
	assert.Equal(t, []byte{'a', 'b', 0, 0, 0, 'x', 'y'}, got)
}

func TestWriteFromMidFileGrowsPastEnd(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")

	c.Write(inum, 0, []byte("hello world"))
	n, st := c.Write(inum, 3, []byte("LO THERE"))
	require.Equal(t, OK, st)
	assert.Equal(t, 8, n)

	got, st := c.Read(inum, 100, 0)
	require.Equal(t, OK, st)
	assert.Equal(t, "helLO THERE", string(got))
}

func TestWriteWithinFilePreservesTail(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")

	c.Write(inum, 0, []byte("hello world"))
	n, st := c.Write(inum, 2, []byte("XY"))
	require.Equal(t, OK, st)
	assert.Equal(t, 2, n)

	got, st := c.Read(inum, 100, 0)
	require.Equal(t, OK, st)
	assert.Equal(t, "heXYo world", string(got))
}

func TestWriteNegativeOffsetIsIOERR(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")

	_, st := c.Write(inum, -1, []byte("x"))
	assert.Equal(t, IOERR, st)
}

func TestReadOffsetBeyondSizeIsIOERR(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")
	c.Write(inum, 0, []byte("abc"))

	_, st := c.Read(inum, 10, 10)
	assert.Equal(t, IOERR, st)
}

func TestSetattrTruncateAndExtend(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")
	c.Write(inum, 0, []byte("hello world"))

	require.Equal(t, OK, c.Setattr(inum, 5))
	got, _ := c.Read(inum, 100, 0)
	assert.Equal(t, "hello", string(got))

	require.Equal(t, OK, c.Setattr(inum, 8))
	got, _ = c.Read(inum, 100, 0)
	assert.Equal(t, []byte{'h', 'e', 'l', 'l', 'o', 0, 0, 0}, got)
}

func TestSymlinkReadSlink(t *testing.T) {
	c := NewClient()
	_, st := c.Symlink(1, "/a/b/c", "link")
	require.Equal(t, OK, st)

	found, inum, st := c.Lookup(1, "link")
	require.Equal(t, OK, st)
	require.True(t, found)

	target, st := c.ReadSlink(inum)
	require.Equal(t, OK, st)
	assert.Equal(t, "/a/b/c", target)
}

func TestGetFileGetDirAttrs(t *testing.T) {
	c := NewClient()
	inum, _ := c.Create(1, "f")
	c.Write(inum, 0, []byte("1234567"))

	fi, st := c.GetFile(inum)
	require.Equal(t, OK, st)
	assert.Equal(t, uint32(7), fi.Size)

	di, st := c.GetDir(1)
	require.Equal(t, OK, st)
	assert.NotZero(t, di.Ctime)
}
