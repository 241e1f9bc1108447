/*
 client.go

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

// Package fsclient implements directory semantics (lookup, create,
// mkdir, unlink, rmdir, symlink) and byte-offset file read/write/setattr
// on top of an extent server and a lock server, with per-inode locking
// ordered parent-before-child to avoid deadlock.
package fsclient

import (
	"github.com/sirupsen/logrus"

	"github.com/yfs-core/yfs/extent"
	"github.com/yfs-core/yfs/inode"
	"github.com/yfs-core/yfs/lockserver"
)

type Status = extent.Status

const (
	OK     = extent.OK
	RPCERR = extent.RPCERR
	NOENT  = extent.NOENT
	IOERR  = extent.IOERR
	EXIST  = extent.EXIST
)

// FileInfo/DirInfo/SlinkInfo are the attribute views returned by GetFile,
// GetDir and GetSlink respectively.
type FileInfo struct {
	Size  uint32
	Atime uint32
	Mtime uint32
	Ctime uint32
}

type DirInfo struct {
	Atime uint32
	Mtime uint32
	Ctime uint32
}

type SlinkInfo = FileInfo

// Client is the filesystem-facing API: directory and file semantics
// layered on an extent server, synchronized by a lock server.
type Client struct {
	ext   *extent.Server
	locks *lockserver.Server
}

// NewClient wires a fresh extent server and lock server together and
// seeds inode 1 as the (already-allocated) empty root directory.
func NewClient() *Client {
	c := &Client{
		ext:   extent.NewServer(),
		locks: lockserver.NewServer(),
	}
	if st := c.ext.Put(1, nil); st != OK {
		logrus.Errorf("fs: error initializing root directory: %v", st)
	}
	return c
}

func (c *Client) acquire(inum uint32) { c.locks.Acquire(0, uint64(inum)) }
func (c *Client) release(inum uint32) { c.locks.Release(0, uint64(inum)) }

func (c *Client) isFile(inum uint32) bool {
	a, st := c.ext.GetAttr(inum)
	return st == OK && a.Type == inode.TFile
}

func (c *Client) isDir(inum uint32) bool {
	a, st := c.ext.GetAttr(inum)
	return st == OK && a.Type == inode.TDir
}

// GetFile reports a file's attributes.
func (c *Client) GetFile(ino uint32) (FileInfo, Status) {
	c.acquire(ino)
	defer c.release(ino)
	return c.getFile(ino)
}

func (c *Client) getFile(ino uint32) (FileInfo, Status) {
	a, st := c.ext.GetAttr(ino)
	if st != OK {
		return FileInfo{}, IOERR
	}
	return FileInfo{Size: a.Size, Atime: a.Atime, Mtime: a.Mtime, Ctime: a.Ctime}, OK
}

// GetDir reports a directory's attributes.
func (c *Client) GetDir(ino uint32) (DirInfo, Status) {
	c.acquire(ino)
	defer c.release(ino)

	a, st := c.ext.GetAttr(ino)
	if st != OK {
		return DirInfo{}, IOERR
	}
	return DirInfo{Atime: a.Atime, Mtime: a.Mtime, Ctime: a.Ctime}, OK
}

// GetSlink reports a symlink's attributes.
func (c *Client) GetSlink(ino uint32) (SlinkInfo, Status) {
	return c.GetFile(ino)
}

func (c *Client) readdir(dir uint32) ([]Dirent, Status) {
	content, st := c.ext.Get(dir)
	if st != OK {
		return nil, IOERR
	}
	return decodeDir(content), OK
}

func (c *Client) writedir(dir uint32, entries []Dirent) Status {
	if st := c.ext.Put(dir, encodeDir(entries)); st != OK {
		logrus.Errorf("fs: writedir: failed to write directory %d", dir)
		return IOERR
	}
	return OK
}

// Readdir lists a directory's entries.
func (c *Client) Readdir(dir uint32) ([]Dirent, Status) {
	c.acquire(dir)
	defer c.release(dir)
	return c.readdir(dir)
}

func (c *Client) lookup(parent uint32, name string) (bool, uint32, Status) {
	entries, st := c.readdir(parent)
	if st != OK {
		return false, 0, IOERR
	}
	for _, e := range entries {
		if e.Name == name {
			return true, e.Inum, OK
		}
	}
	return false, 0, OK
}

// Lookup scans parent's entries for name.
func (c *Client) Lookup(parent uint32, name string) (bool, uint32, Status) {
	c.acquire(parent)
	defer c.release(parent)
	return c.lookup(parent, name)
}

func (c *Client) hasDuplicate(parent uint32, name string) bool {
	found, _, st := c.lookup(parent, name)
	return st != OK || found
}

func (c *Client) addEntryAndSave(parent uint32, name string, inum uint32) bool {
	entries, st := c.readdir(parent)
	if st != OK {
		return false
	}
	entries = append(entries, Dirent{Name: name, Inum: inum})
	return c.writedir(parent, entries) == OK
}

func (c *Client) createTyped(parent uint32, name string, typ uint32) (uint32, Status) {
	if c.hasDuplicate(parent, name) {
		return 0, EXIST
	}
	inum, st := c.ext.Create(typ)
	if st != OK {
		logrus.Errorf("fs: create: failed to create extent for %q", name)
		return 0, IOERR
	}
	if !c.addEntryAndSave(parent, name, inum) {
		return 0, IOERR
	}
	return inum, OK
}

// Create makes a new regular file named name inside parent.
func (c *Client) Create(parent uint32, name string) (uint32, Status) {
	c.acquire(parent)
	defer c.release(parent)
	return c.createTyped(parent, name, inode.TFile)
}

// Mkdir makes a new, empty directory named name inside parent.
func (c *Client) Mkdir(parent uint32, name string) (uint32, Status) {
	c.acquire(parent)
	defer c.release(parent)
	return c.createTyped(parent, name, inode.TDir)
}

// Symlink creates a symlink named name inside parent pointing at target.
func (c *Client) Symlink(parent uint32, target, name string) (uint32, Status) {
	c.acquire(parent)
	defer c.release(parent)

	if c.hasDuplicate(parent, name) {
		return 0, EXIST
	}
	inum, st := c.ext.Create(inode.TSlink)
	if st != OK {
		return 0, IOERR
	}
	if st := c.ext.Put(inum, []byte(target)); st != OK {
		return 0, IOERR
	}
	if !c.addEntryAndSave(parent, name, inum) {
		return 0, IOERR
	}
	return inum, OK
}

// ReadSlink returns the target path a symlink points at.
func (c *Client) ReadSlink(ino uint32) (string, Status) {
	c.acquire(ino)
	defer c.release(ino)

	content, st := c.ext.Get(ino)
	if st != OK {
		return "", IOERR
	}
	return string(content), OK
}

// Setattr resizes ino's content to size, truncating or zero-extending.
func (c *Client) Setattr(ino uint32, size int) Status {
	c.acquire(ino)
	defer c.release(ino)

	content, st := c.ext.Get(ino)
	if st != OK {
		return IOERR
	}
	if len(content) == size {
		return OK
	}

	resized := make([]byte, size)
	copy(resized, content)
	if st := c.ext.Put(ino, resized); st != OK {
		return IOERR
	}
	return OK
}

// Read returns up to size bytes of ino's content starting at off.
func (c *Client) Read(ino uint32, size int, off int) ([]byte, Status) {
	c.acquire(ino)
	defer c.release(ino)

	a, st := c.ext.GetAttr(ino)
	if st != OK {
		return nil, IOERR
	}
	if off < 0 || uint32(off) >= a.Size {
		return nil, IOERR
	}

	content, st := c.ext.Get(ino)
	if st != OK {
		return nil, IOERR
	}

	end := off + size
	if end > len(content) {
		end = len(content)
	}
	return content[off:end], OK
}

// Write replaces ino's content[off:off+len(data)] with data, zero-
// extending the gap if off is past the current end, and preserving
// whatever tail of content lies beyond off+len(data).
func (c *Client) Write(ino uint32, off int, data []byte) (int, Status) {
	c.acquire(ino)
	defer c.release(ino)

	if off < 0 {
		return 0, IOERR
	}

	content, st := c.ext.Get(ino)
	if st != OK {
		return 0, IOERR
	}

	end := off + len(data)
	switch {
	case off >= len(content):
		extended := make([]byte, off)
		copy(extended, content)
		content = append(extended, data...)
	case end > len(content):
		content = append(content[:off], data...)
	default:
		copy(content[off:end], data)
	}

	if st := c.ext.Put(ino, content); st != OK {
		return 0, IOERR
	}
	return len(data), OK
}

// Unlink removes the file named name from parent.
func (c *Client) Unlink(parent uint32, name string) Status {
	c.acquire(parent)
	defer c.release(parent)

	found, ino, st := c.lookup(parent, name)
	if st != OK || !found {
		return IOERR
	}

	c.acquire(ino)
	defer c.release(ino)

	if !c.isFile(ino) {
		return IOERR
	}
	if st := c.ext.Remove(ino); st != OK {
		return IOERR
	}

	entries, st := c.readdir(parent)
	if st != OK {
		return IOERR
	}
	entries = removeEntry(entries, name)
	return c.writedir(parent, entries)
}

// Rmdir removes the empty directory named name from parent.
func (c *Client) Rmdir(parent uint32, name string) Status {
	c.acquire(parent)
	defer c.release(parent)

	found, ino, st := c.lookup(parent, name)
	if st != OK || !found {
		return IOERR
	}

	c.acquire(ino)
	defer c.release(ino)

	if !c.isDir(ino) {
		return IOERR
	}
	children, st := c.readdir(ino)
	if st != OK {
		return IOERR
	}
	if len(children) != 0 {
		return IOERR
	}
	if st := c.ext.Remove(ino); st != OK {
		return IOERR
	}

	entries, st := c.readdir(parent)
	if st != OK {
		return IOERR
	}
	entries = removeEntry(entries, name)
	return c.writedir(parent, entries)
}

func removeEntry(entries []Dirent, name string) []Dirent {
	out := entries[:0]
	for _, e := range entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out
}

// Commit/Rollback/Forward pass through to the underlying extent server.
func (c *Client) Commit()   { c.ext.Commit() }
func (c *Client) Rollback() { c.ext.Rollback() }
func (c *Client) Forward()  { c.ext.Forward() }
