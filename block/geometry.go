/*
 geometry.go

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

// Package block implements the fixed-geometry in-memory block device and
// the bitmap-backed block manager that sits on top of it.
package block

const (
	DiskSize  = 16 * 1024 * 1024
	BlockSize = 512
	BlockNum  = DiskSize / BlockSize // 32768

	InodeNum = 1024
	IPB      = 1    // inodes per block
	BPB      = BlockSize * 8 // bitmap bits per block, 4096

	NDirect = 32
)

// IBLOCK returns the block id holding inode inum (1-based), given the
// total block count nblocks.
func IBLOCK(inum, nblocks uint32) uint32 {
	return nblocks/BPB + inum/IPB + 3
}

// BBLOCK returns the bitmap block id that tracks the usage bit for data
// block b (1-based).
func BBLOCK(b uint32) uint32 {
	return b/BPB + 2
}
