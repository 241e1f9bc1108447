/*
 inode.go

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

// Package inode implements the inode table on top of block.Manager:
// direct/indirect block addressing, grow/shrink on write, and the
// commit/rollback/forward hooks that drive logmgr.Log.
package inode

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yfs-core/yfs/block"
	"github.com/yfs-core/yfs/logmgr"
)

// Type values an inode's Type field can hold. Zero means free/unallocated.
const (
	TFile  = 1
	TDir   = 2
	TSlink = 3
)

const (
	NDirect     = block.NDirect
	NIndirect   = block.BlockSize / 4 // uint32 block ids per indirect block
	MaxFile     = NDirect + NIndirect
	MaxFileSize = (NDirect - 1 + NIndirect) * block.BlockSize
)

// Inode is returned by value: callers get a snapshot, not a pointer into
// manager state, so there is nothing to free and no aliasing hazard.
type Inode struct {
	Type   uint32
	Size   uint32
	Atime  uint32
	Mtime  uint32
	Ctime  uint32
	Blocks [NDirect + 1]uint32
}

// Attr is the subset of Inode exposed through GetAttr, mirroring the
// extent layer's attribute contract.
type Attr struct {
	Type  uint32
	Size  uint32
	Atime uint32
	Mtime uint32
	Ctime uint32
}

func now() uint32 {
	return uint32(time.Now().Unix())
}

// Manager owns the inode table and the logical log that records every
// mutation made through it.
type Manager struct {
	bm *block.Manager
	lm *logmgr.Log
}

// NewManager formats a fresh inode table over a fresh block manager and
// allocates inode 1 as the root directory.
func NewManager() *Manager {
	m := &Manager{
		bm: block.NewManager(),
		lm: logmgr.NewLog(),
	}

	root := m.AllocInode(TDir)
	if root != 1 {
		logrus.Panicf("im: first allocated inode is %d, expected 1", root)
	}
	return m
}

func validInum(inum uint32) bool {
	if inum < 1 || inum > block.InodeNum {
		logrus.Errorf("im: inum out of range %d", inum)
		return false
	}
	return true
}

func validType(t uint32) bool {
	if t == 0 {
		logrus.Errorf("im: invalid type %d", t)
		return false
	}
	return true
}

func validSize(size int) bool {
	if size < 0 || size > MaxFileSize {
		logrus.Errorf("im: file size out of range %d", size)
		return false
	}
	return true
}

func (m *Manager) iblock(inum uint32) uint32 {
	return block.IBLOCK(inum, m.bm.Sb.NBlocks)
}

// getInode returns the inode stored at inum and whether it is allocated.
func (m *Manager) getInode(inum uint32) (Inode, bool) {
	if !validInum(inum) {
		return Inode{}, false
	}

	var ino Inode
	decodeInode(m.readInodeBlock(inum), &ino)
	if ino.Type == 0 {
		logrus.Errorf("im: inode %d not exist", inum)
		return Inode{}, false
	}
	return ino, true
}

// putInode writes ino back to inum's slot, stamping ctime.
func (m *Manager) putInode(inum uint32, ino Inode) {
	if !validInum(inum) {
		return
	}
	ino.Ctime = now()

	buf := m.readInodeBlock(inum)
	encodeInode(ino, buf)
	m.bm.WriteBlock(m.iblock(inum), buf)
}

func (m *Manager) readInodeBlock(inum uint32) []byte {
	buf := make([]byte, block.BlockSize)
	m.bm.ReadBlock(m.iblock(inum), buf)
	return buf
}

// AllocInode scans for the lowest free inode slot, initializes it, and
// logs a create record. Returns 0 on failure.
func (m *Manager) AllocInode(typ uint32) uint32 {
	if !validType(typ) {
		return 0
	}

	var inum uint32
	var buf []byte
	for inum = 1; inum <= block.InodeNum; inum++ {
		buf = m.readInodeBlock(inum)
		var ino Inode
		decodeInode(buf, &ino)
		if ino.Type == 0 {
			break
		}
	}
	if inum > block.InodeNum {
		logrus.Warnf("im: no empty inode available")
		return 0
	}

	n := now()
	ino := Inode{Type: typ, Size: 0, Atime: n, Mtime: n, Ctime: n}
	encodeInode(ino, buf)
	m.bm.WriteBlock(m.iblock(inum), buf)

	m.lm.CreateLog(inum, typ)
	return inum
}

// FreeInode marks inum's slot as free without touching its data blocks;
// callers that also want the blocks released should go through
// RemoveFile instead.
func (m *Manager) FreeInode(inum uint32) {
	ino, ok := m.getInode(inum)
	if !ok {
		return
	}
	ino.Type = 0
	m.putInode(inum, ino)
}

// ReadFile returns a copy of inum's file content and bumps atime.
func (m *Manager) ReadFile(inum uint32) ([]byte, bool) {
	if !validInum(inum) {
		return nil, false
	}
	ino, ok := m.getInode(inum)
	if !ok {
		return nil, false
	}

	buf := make([]byte, ino.Size)
	blockNum := int((ino.Size + block.BlockSize - 1) / block.BlockSize)

	direct := blockNum
	if direct > NDirect {
		direct = NDirect
	}
	for i := 0; i < direct; i++ {
		chunk := make([]byte, block.BlockSize)
		m.bm.ReadBlock(ino.Blocks[i], chunk)
		if i == blockNum-1 {
			copy(buf[i*block.BlockSize:], chunk[:int(ino.Size)-i*block.BlockSize])
		} else {
			copy(buf[i*block.BlockSize:], chunk)
		}
	}

	if blockNum > NDirect {
		indirect := make([]byte, block.BlockSize)
		m.bm.ReadBlock(ino.Blocks[NDirect], indirect)
		indirectIDs := decodeBlockIDs(indirect)

		for i := 0; i < blockNum-NDirect; i++ {
			chunk := make([]byte, block.BlockSize)
			m.bm.ReadBlock(indirectIDs[i], chunk)
			off := (i + NDirect) * block.BlockSize
			if i == blockNum-NDirect-1 {
				copy(buf[off:], chunk[:int(ino.Size)-off])
			} else {
				copy(buf[off:], chunk)
			}
		}
	}

	ino.Atime = now()
	m.putInode(inum, ino)
	return buf, true
}

// WriteFile replaces inum's content with buf, logging an update record
// that carries both the pre- and post-image so rollback/forward can
// replay it exactly.
func (m *Manager) WriteFile(inum uint32, buf []byte) bool {
	old, _ := m.ReadFile(inum)

	if m.writeFile(inum, buf) {
		m.lm.UpdateLog(inum, uint32(len(old)), old, uint32(len(buf)), buf)
		return true
	}
	return false
}

// writeFile performs the actual grow/shrink/rewrite of inum's data
// blocks without touching the log; redo/undo call it directly to avoid
// re-logging replayed mutations.
func (m *Manager) writeFile(inum uint32, buf []byte) bool {
	size := len(buf)
	if !validInum(inum) || !validSize(size) {
		return false
	}

	ino, ok := m.getInode(inum)
	if !ok || ino.Type == 0 {
		return false
	}

	blockNumOld := int((ino.Size + block.BlockSize - 1) / block.BlockSize)
	blockNumNew := (size + block.BlockSize - 1) / block.BlockSize

	if blockNumNew <= blockNumOld {
		m.shrinkOrRewrite(&ino, buf, blockNumOld, blockNumNew)
	} else {
		m.grow(&ino, buf, blockNumOld, blockNumNew)
	}

	n := now()
	ino.Size = uint32(size)
	ino.Mtime = n
	ino.Ctime = n
	m.putInode(inum, ino)
	return true
}

func writeBlockPadded(m *Manager, id uint32, buf []byte, off, size int) {
	if off+block.BlockSize <= size {
		m.bm.WriteBlock(id, buf[off:off+block.BlockSize])
		return
	}
	padded := make([]byte, block.BlockSize)
	copy(padded, buf[off:size])
	m.bm.WriteBlock(id, padded)
}

func (m *Manager) shrinkOrRewrite(ino *Inode, buf []byte, blockNumOld, blockNumNew int) {
	size := len(buf)

	direct := blockNumNew
	if direct > NDirect {
		direct = NDirect
	}
	for i := 0; i < direct; i++ {
		off := i * block.BlockSize
		last := i == blockNumNew-1
		if last {
			writeBlockPadded(m, ino.Blocks[i], buf, off, size)
		} else {
			m.bm.WriteBlock(ino.Blocks[i], buf[off:off+block.BlockSize])
		}
	}

	var indirectIDs []uint32
	if blockNumNew > NDirect {
		indirectBuf := make([]byte, block.BlockSize)
		m.bm.ReadBlock(ino.Blocks[NDirect], indirectBuf)
		indirectIDs = decodeBlockIDs(indirectBuf)

		for i := 0; i < blockNumNew-NDirect; i++ {
			off := (i + NDirect) * block.BlockSize
			last := i == blockNumNew-NDirect-1
			if last {
				writeBlockPadded(m, indirectIDs[i], buf, off, size)
			} else {
				m.bm.WriteBlock(indirectIDs[i], buf[off:off+block.BlockSize])
			}
		}
	}

	directOld := blockNumOld
	if directOld > NDirect {
		directOld = NDirect
	}
	for i := blockNumNew; i < directOld; i++ {
		m.bm.FreeBlock(ino.Blocks[i])
	}

	if blockNumOld > NDirect {
		if indirectIDs == nil {
			indirectBuf := make([]byte, block.BlockSize)
			m.bm.ReadBlock(ino.Blocks[NDirect], indirectBuf)
			indirectIDs = decodeBlockIDs(indirectBuf)
		}
		start := 0
		if blockNumNew > NDirect {
			start = blockNumNew - NDirect
		}
		for i := start; i < blockNumOld-NDirect; i++ {
			m.bm.FreeBlock(indirectIDs[i])
		}
		if blockNumNew <= NDirect {
			m.bm.FreeBlock(ino.Blocks[NDirect])
		}
	}
}

func (m *Manager) grow(ino *Inode, buf []byte, blockNumOld, blockNumNew int) {
	size := len(buf)

	directOld := blockNumOld
	if directOld > NDirect {
		directOld = NDirect
	}
	for i := 0; i < directOld; i++ {
		off := i * block.BlockSize
		m.bm.WriteBlock(ino.Blocks[i], buf[off:off+block.BlockSize])
	}

	directNew := blockNumNew
	if directNew > NDirect {
		directNew = NDirect
	}
	for i := blockNumOld; i < directNew; i++ {
		bnum := m.bm.AllocBlock()
		ino.Blocks[i] = bnum
		off := i * block.BlockSize
		if i == blockNumNew-1 {
			writeBlockPadded(m, bnum, buf, off, size)
		} else {
			m.bm.WriteBlock(bnum, buf[off:off+block.BlockSize])
		}
	}

	if blockNumNew > NDirect {
		indirectIDs := make([]uint32, NIndirect)
		if blockNumOld <= NDirect {
			ino.Blocks[NDirect] = m.bm.AllocBlock()
		} else {
			indirectBuf := make([]byte, block.BlockSize)
			m.bm.ReadBlock(ino.Blocks[NDirect], indirectBuf)
			indirectIDs = decodeBlockIDs(indirectBuf)
		}

		oldIndirect := 0
		if blockNumOld > NDirect {
			oldIndirect = blockNumOld - NDirect
		}
		for i := 0; i < oldIndirect; i++ {
			off := (i + NDirect) * block.BlockSize
			m.bm.WriteBlock(indirectIDs[i], buf[off:off+block.BlockSize])
		}

		for i := oldIndirect; i < blockNumNew-NDirect; i++ {
			bnum := m.bm.AllocBlock()
			indirectIDs[i] = bnum
			off := (i + NDirect) * block.BlockSize
			if i == blockNumNew-NDirect-1 {
				writeBlockPadded(m, bnum, buf, off, size)
			} else {
				m.bm.WriteBlock(bnum, buf[off:off+block.BlockSize])
			}
		}

		indirectBuf := make([]byte, block.BlockSize)
		encodeBlockIDs(indirectIDs, indirectBuf)
		m.bm.WriteBlock(ino.Blocks[NDirect], indirectBuf)
	}
}

// RemoveFile frees inum's data blocks and inode slot, logging the
// pre-image update and a delete record so rollback can resurrect it.
func (m *Manager) RemoveFile(inum uint32) {
	if !validInum(inum) {
		return
	}
	ino, ok := m.getInode(inum)
	if !ok {
		return
	}

	old, _ := m.ReadFile(inum)
	m.lm.UpdateLog(inum, uint32(len(old)), old, 0, nil)
	m.lm.DeleteLog(inum, ino.Type)

	m.FreeInode(inum)

	blockNum := int((ino.Size + block.BlockSize - 1) / block.BlockSize)
	direct := blockNum
	if direct > NDirect {
		direct = NDirect
	}
	for i := 0; i < direct; i++ {
		m.bm.FreeBlock(ino.Blocks[i])
	}
	if blockNum > NDirect {
		indirectBuf := make([]byte, block.BlockSize)
		m.bm.ReadBlock(ino.Blocks[NDirect], indirectBuf)
		indirectIDs := decodeBlockIDs(indirectBuf)
		for i := 0; i < blockNum-NDirect; i++ {
			m.bm.FreeBlock(indirectIDs[i])
		}
		m.bm.FreeBlock(ino.Blocks[NDirect])
	}
}

// GetAttr reports inum's metadata.
func (m *Manager) GetAttr(inum uint32) (Attr, bool) {
	ino, ok := m.getInode(inum)
	if !ok {
		return Attr{}, false
	}
	return Attr{Type: ino.Type, Size: ino.Size, Atime: ino.Atime, Mtime: ino.Mtime, Ctime: ino.Ctime}, true
}

// Commit marks the current point in the log as a checkpoint.
func (m *Manager) Commit() {
	m.lm.Commit()
}

// Rollback undoes every record written since the last checkpoint, most
// recent first.
func (m *Manager) Rollback() {
	entries := m.lm.Rollback()
	for i := len(entries) - 1; i >= 0; i-- {
		m.undo(entries[i])
	}
}

// Forward redoes every record between the cursor and the next commit,
// oldest first.
func (m *Manager) Forward() {
	entries := m.lm.Forward()
	for _, e := range entries {
		m.redo(e)
	}
}

func (m *Manager) redo(e logmgr.Record) {
	switch e.Kind {
	case logmgr.Create:
		n := now()
		m.putInode(e.Inum, Inode{Type: e.Type, Size: 0, Atime: n, Mtime: n, Ctime: n})
	case logmgr.Update:
		m.writeFile(e.Inum, e.NewBytes)
	case logmgr.Delete:
		m.FreeInode(e.Inum)
	default:
		logrus.Errorf("im: unexpected log record to redo: %v", e.Kind)
	}
}

func (m *Manager) undo(e logmgr.Record) {
	switch e.Kind {
	case logmgr.Create:
		m.FreeInode(e.Inum)
	case logmgr.Update:
		m.writeFile(e.Inum, e.OldBytes)
	case logmgr.Delete:
		n := now()
		m.putInode(e.Inum, Inode{Type: e.Type, Size: 0, Atime: n, Mtime: n, Ctime: n})
	default:
		logrus.Errorf("im: unexpected log record to undo: %v", e.Kind)
	}
}
