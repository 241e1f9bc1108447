/*
 codec.go

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

package inode

import "encoding/binary"

// encodeInode/decodeInode lay an Inode out as fixed-width fields inside
// a block-sized buffer, standing in for the teacher's raw struct cast
// onto the block buffer (IPB is 1, so one inode occupies the whole
// block and there is no packing to worry about).
func encodeInode(ino Inode, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], ino.Type)
	binary.LittleEndian.PutUint32(buf[4:8], ino.Size)
	binary.LittleEndian.PutUint32(buf[8:12], ino.Atime)
	binary.LittleEndian.PutUint32(buf[12:16], ino.Mtime)
	binary.LittleEndian.PutUint32(buf[16:20], ino.Ctime)
	for i, id := range ino.Blocks {
		off := 20 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], id)
	}
}

func decodeInode(buf []byte, ino *Inode) {
	ino.Type = binary.LittleEndian.Uint32(buf[0:4])
	ino.Size = binary.LittleEndian.Uint32(buf[4:8])
	ino.Atime = binary.LittleEndian.Uint32(buf[8:12])
	ino.Mtime = binary.LittleEndian.Uint32(buf[12:16])
	ino.Ctime = binary.LittleEndian.Uint32(buf[16:20])
	for i := range ino.Blocks {
		off := 20 + i*4
		ino.Blocks[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
}

// encodeBlockIDs/decodeBlockIDs pack an indirect block's worth of block
// ids into/out of a raw block buffer.
func encodeBlockIDs(ids []uint32, buf []byte) {
	for i, id := range ids {
		off := i * 4
		binary.LittleEndian.PutUint32(buf[off:off+4], id)
	}
}

func decodeBlockIDs(buf []byte) []uint32 {
	ids := make([]uint32, NIndirect)
	for i := range ids {
		off := i * 4
		ids[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	return ids
}
