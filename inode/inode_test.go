/*
 inode_test.go

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

import (
	"bytes"
	"testing"
)

func fillPattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf
}

func TestNewManagerAllocatesRootDir(t *testing.T) {
	m := NewManager()
	attr, ok := m.GetAttr(1)
	if !ok {
		t.Fatalf("root inode must exist")
	}
	if attr.Type != TDir {
		t.Fatalf("root inode type = %d, want TDir", attr.Type)
	}
	if attr.Size != 0 {
		t.Fatalf("root inode size = %d, want 0", attr.Size)
	}
}

func TestAllocInodeRejectsFreeType(t *testing.T) {
	m := NewManager()
	if inum := m.AllocInode(0); inum != 0 {
		t.Fatalf("alloc with type 0 should fail, got inum %d", inum)
	}
}

func TestWriteThenReadFileRoundTrip(t *testing.T) {
	m := NewManager()
	inum := m.AllocInode(TFile)

	data := fillPattern(1000)
	if !m.WriteFile(inum, data) {
		t.Fatalf("write_file failed")
	}

	got, ok := m.ReadFile(inum)
	if !ok {
		t.Fatalf("read_file failed")
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestWriteFileGrowsIntoIndirectBlocks(t *testing.T) {
	m := NewManager()
	inum := m.AllocInode(TFile)

	// NDirect direct blocks cover NDirect*BlockSize bytes; push past that
	// to force the indirect block to be allocated and populated.
	size := (NDirect+5)*512 + 17
	data := fillPattern(size)
	if !m.WriteFile(inum, data) {
		t.Fatalf("write_file failed")
	}

	got, ok := m.ReadFile(inum)
	if !ok {
		t.Fatalf("read_file failed")
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("indirect round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestWriteFileShrinkFreesBlocks(t *testing.T) {
	m := NewManager()
	inum := m.AllocInode(TFile)

	big := fillPattern((NDirect + 3) * 512)
	m.WriteFile(inum, big)

	small := fillPattern(100)
	if !m.WriteFile(inum, small) {
		t.Fatalf("shrink write failed")
	}

	got, ok := m.ReadFile(inum)
	if !ok || !bytes.Equal(got, small) {
		t.Fatalf("shrink round trip mismatch")
	}

	attr, _ := m.GetAttr(inum)
	if attr.Size != uint32(len(small)) {
		t.Fatalf("size after shrink = %d, want %d", attr.Size, len(small))
	}
}

func TestRemoveFileFreesInodeAndBlocks(t *testing.T) {
	m := NewManager()
	inum := m.AllocInode(TFile)
	m.WriteFile(inum, fillPattern(700))

	m.RemoveFile(inum)

	if _, ok := m.GetAttr(inum); ok {
		t.Fatalf("removed inode should no longer exist")
	}

	// its slot should be reusable.
	reused := m.AllocInode(TFile)
	if reused != inum {
		t.Fatalf("expected freed inode %d to be reused, got %d", inum, reused)
	}
}

func TestCommitRollbackUndoesWrite(t *testing.T) {
	m := NewManager()
	m.Commit() // checkpoint after root dir creation

	inum := m.AllocInode(TFile)
	m.WriteFile(inum, fillPattern(50))
	m.Commit()

	m.WriteFile(inum, fillPattern(500))
	m.Rollback()

	got, ok := m.ReadFile(inum)
	if !ok || len(got) != 50 {
		t.Fatalf("rollback should restore the 50-byte content, got %d bytes, ok=%v", len(got), ok)
	}
}

func TestRollbackUndoesCreate(t *testing.T) {
	m := NewManager()
	m.Commit()

	inum := m.AllocInode(TFile)
	m.Rollback()

	if _, ok := m.GetAttr(inum); ok {
		t.Fatalf("rollback should have freed the newly created inode %d", inum)
	}
}

func TestForwardRedoesRolledBackWrite(t *testing.T) {
	m := NewManager()
	m.Commit()

	inum := m.AllocInode(TFile)
	m.Commit()

	data := fillPattern(300)
	m.WriteFile(inum, data)
	m.Rollback()
	m.Forward()

	got, ok := m.ReadFile(inum)
	if !ok || !bytes.Equal(got, data) {
		t.Fatalf("forward should redo the rolled-back write")
	}
}
