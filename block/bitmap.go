/*
 bitmap.go

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

package block

import (
	"github.com/sirupsen/logrus"
)

// Superblock describes the fixed, format-time geometry of the device.
// It never changes after Format runs.
type Superblock struct {
	Size    uint32 // total bytes
	NBlocks uint32 // total block count
	NInodes uint32 // total inode slots
}

// Manager owns the device and the free-space bitmap that tracks which
// data blocks are in use. The layout on the device is:
//
//	| superblock (conceptual) | bitmap blocks | inode table | data |
type Manager struct {
	dev *Device
	Sb  Superblock
}

// NewManager formats a fresh device and returns the block manager that
// owns it.
func NewManager() *Manager {
	m := &Manager{
		dev: NewDevice(),
		Sb: Superblock{
			Size:    BlockSize * BlockNum,
			NBlocks: BlockNum,
			NInodes: InodeNum,
		},
	}
	m.format()
	return m
}

// format marks every block occupied by the superblock, the bitmap itself,
// and the inode table as permanently in-use.
func (m *Manager) format() {
	var ones [BlockSize]byte
	for i := range ones {
		ones[i] = 0xFF
	}

	lastBnum := IBLOCK(InodeNum, m.Sb.NBlocks)

	for bb := BBLOCK(1); bb < BBLOCK(lastBnum); bb++ {
		m.dev.WriteBlock(bb, ones[:])
	}

	// last bitmap block is only partially claimed by metadata; set just
	// the leading bits that correspond to blocks 1..lastBnum, MSB-first.
	var last [BlockSize]byte
	remainingBits := lastBnum - (BBLOCK(lastBnum)-BBLOCK(1))*BPB
	fullBytes := remainingBits / 8
	for i := uint32(0); i < fullBytes; i++ {
		last[i] = 0xFF
	}
	if rem := remainingBits % 8; rem > 0 {
		var b byte
		for pos := uint32(0); pos < rem; pos++ {
			b |= 1 << (7 - pos)
		}
		last[fullBytes] = b
	}
	m.dev.WriteBlock(BBLOCK(lastBnum), last[:])
}

func validBlockID(id uint32) bool {
	return id >= 1 && id <= BlockNum
}

// AllocBlock scans the bitmap starting just after the inode table for the
// lowest-indexed free data block, marks it used, and returns its id.
// Returns 0 when the bitmap has no free block left.
func (m *Manager) AllocBlock() uint32 {
	firstDataBitmap := BBLOCK(IBLOCK(InodeNum, m.Sb.NBlocks) + 1)
	lastBitmap := BBLOCK(BlockNum)

	for bb := firstDataBitmap; bb <= lastBitmap; bb++ {
		var bitmap [BlockSize]byte
		m.dev.ReadBlock(bb, bitmap[:])

		for pos := uint32(0); pos < BPB; pos++ {
			byteVal := bitmap[pos/8]
			bit := byteVal & (1 << (7 - pos%8))
			if bit == 0 {
				id := (bb-BBLOCK(1))*BPB + pos + 1
				if id > BlockNum {
					logrus.Warnf("bm: no empty block available")
					return 0
				}
				bitmap[pos/8] = byteVal | (1 << (7 - pos%8))
				m.dev.WriteBlock(bb, bitmap[:])
				return id
			}
		}
	}

	logrus.Warnf("bm: no empty block available")
	return 0
}

// FreeBlock clears the usage bit for id. Out-of-range ids are rejected;
// clearing an already-free bit is a no-op.
func (m *Manager) FreeBlock(id uint32) {
	if !validBlockID(id) {
		logrus.Errorf("bm: block id out of range: %d", id)
		return
	}

	var bitmap [BlockSize]byte
	m.dev.ReadBlock(BBLOCK(id), bitmap[:])

	bitPos := (id - 1) % BPB
	byteVal := bitmap[bitPos/8]
	bitmap[bitPos/8] = byteVal &^ (1 << (7 - bitPos%8))
	m.dev.WriteBlock(BBLOCK(id), bitmap[:])
}

// ReadBlock is a range-checked pass-through to the device.
func (m *Manager) ReadBlock(id uint32, dst []byte) {
	if !validBlockID(id) {
		logrus.Errorf("bm: block id out of range: %d", id)
		return
	}
	m.dev.ReadBlock(id, dst)
}

// WriteBlock is a range-checked pass-through to the device.
func (m *Manager) WriteBlock(id uint32, src []byte) {
	if !validBlockID(id) {
		logrus.Errorf("bm: block id out of range: %d", id)
		return
	}
	m.dev.WriteBlock(id, src)
}
