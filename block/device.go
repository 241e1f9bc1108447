/*
 device.go

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

// Device is a fixed-size in-memory array of BlockNum blocks, each
// BlockSize bytes. Block ids are 1-based; id 0 means "no block".
// There is no backing file: spec.md's storage core does not survive a
// process restart.
type Device struct {
	blocks [BlockNum][BlockSize]byte
}

func NewDevice() *Device {
	return &Device{}
}

func validID(id uint32) bool {
	return id >= 1 && id <= BlockNum
}

// ReadBlock copies block id's contents into dst. dst must be at least
// BlockSize bytes. Out-of-range ids are rejected without touching dst.
func (d *Device) ReadBlock(id uint32, dst []byte) {
	if !validID(id) {
		logrus.Errorf("block: read out of range block id %d", id)
		return
	}
	copy(dst, d.blocks[id-1][:])
}

// WriteBlock overwrites block id's contents with src (at most BlockSize
// bytes, zero-padded). Out-of-range ids are rejected without modifying
// the device.
func (d *Device) WriteBlock(id uint32, src []byte) {
	if !validID(id) {
		logrus.Errorf("block: write out of range block id %d", id)
		return
	}
	var buf [BlockSize]byte
	copy(buf[:], src)
	d.blocks[id-1] = buf
}
