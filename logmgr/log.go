/*
 log.go

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

// Package logmgr implements the logical write-ahead log that the inode
// manager drives on every mutation: create/update/delete/commit records,
// a stack of commit checkpoints, and rollback/forward replay.
package logmgr

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Kind discriminates the four record shapes the log can hold.
type Kind int

const (
	Create Kind = iota
	Update
	Delete
	Commit
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Commit:
		return "commit"
	default:
		return "unknown"
	}
}

// Record is one logical log entry. Only the fields relevant to Kind are
// populated; redo/undo in the inode manager dispatch on Kind.
type Record struct {
	Kind     Kind
	Inum     uint32
	Type     uint32 // Create/Delete
	OldSize  uint32 // Update
	NewSize  uint32 // Update
	OldBytes []byte // Update
	NewBytes []byte // Update
}

const commitLine = "commit\n"

// Log is an append-oriented byte stream plus a read/write cursor and a
// stack of checkpoint offsets (the byte position immediately after each
// Commit record).
type Log struct {
	buf         []byte
	cursor      int
	checkpoints []int
}

func NewLog() *Log {
	return &Log{}
}

// append implements the write path of spec §4.4: if the cursor sits
// strictly before the end of the log (a rollback left a suffix that was
// never replayed forward), the suffix is discarded before the new record
// is appended.
func (l *Log) append(data []byte) {
	if l.cursor < len(l.buf) {
		trimmed := make([]byte, l.cursor)
		copy(trimmed, l.buf[:l.cursor])
		l.buf = trimmed
		logrus.Debugf("lm: clean trailing logs")
	}
	l.buf = append(l.buf, data...)
	l.cursor = len(l.buf)
}

// CreateLog appends a Create record.
func (l *Log) CreateLog(inum, typ uint32) {
	logrus.Debugf("lm: new create log, inum: %d, type: %d", inum, typ)
	l.append([]byte(fmt.Sprintf("create %d %d\n", inum, typ)))
}

// UpdateLog appends an Update record carrying both the pre- and
// post-image content in full.
func (l *Log) UpdateLog(inum uint32, oldSize uint32, oldBuf []byte, newSize uint32, newBuf []byte) {
	logrus.Debugf("lm: new update log, inum: %d, old_size: %d, new_size: %d", inum, oldSize, newSize)
	head := fmt.Sprintf("update %d %d %d ", inum, oldSize, newSize)
	data := make([]byte, 0, len(head)+len(oldBuf)+len(newBuf)+1)
	data = append(data, []byte(head)...)
	data = append(data, oldBuf...)
	data = append(data, newBuf...)
	data = append(data, '\n')
	l.append(data)
}

// DeleteLog appends a Delete record.
func (l *Log) DeleteLog(inum, typ uint32) {
	logrus.Debugf("lm: new delete log, inum: %d, type: %d", inum, typ)
	l.append([]byte(fmt.Sprintf("delete %d %d\n", inum, typ)))
}

// Commit appends a Commit record and pushes the resulting offset onto
// the checkpoint stack.
func (l *Log) Commit() {
	logrus.Debugf("lm: new commit log")
	l.append([]byte(commitLine))
	l.checkpoints = append(l.checkpoints, l.cursor)
}

// readToken reads bytes from pos up to (excluding) the next space or
// newline, then skips exactly one separator byte.
func readToken(buf []byte, pos int) (string, int) {
	start := pos
	for pos < len(buf) && buf[pos] != ' ' && buf[pos] != '\n' {
		pos++
	}
	tok := string(buf[start:pos])
	if pos < len(buf) {
		pos++
	}
	return tok, pos
}

func mustUint32(tok string) uint32 {
	n, _ := strconv.ParseUint(tok, 10, 32)
	return uint32(n)
}

// readRecord parses one record starting at pos and returns it along
// with the position immediately following it.
func (l *Log) readRecord(pos int) (Record, int) {
	kindTok, pos := readToken(l.buf, pos)
	switch kindTok {
	case "create":
		inumTok, p := readToken(l.buf, pos)
		typeTok, p := readTokenAdvance(l.buf, p)
		return Record{Kind: Create, Inum: mustUint32(inumTok), Type: mustUint32(typeTok)}, p
	case "delete":
		inumTok, p := readToken(l.buf, pos)
		typeTok, p := readTokenAdvance(l.buf, p)
		return Record{Kind: Delete, Inum: mustUint32(inumTok), Type: mustUint32(typeTok)}, p
	case "update":
		inumTok, p := readToken(l.buf, pos)
		oldSizeTok, p := readToken(l.buf, p)
		newSizeTok, p := readToken(l.buf, p)
		oldSize := mustUint32(oldSizeTok)
		newSize := mustUint32(newSizeTok)
		oldBytes := make([]byte, oldSize)
		copy(oldBytes, l.buf[p:p+int(oldSize)])
		p += int(oldSize)
		newBytes := make([]byte, newSize)
		copy(newBytes, l.buf[p:p+int(newSize)])
		p += int(newSize)
		if p < len(l.buf) && l.buf[p] == '\n' {
			p++
		}
		return Record{
			Kind:     Update,
			Inum:     mustUint32(inumTok),
			OldSize:  oldSize,
			NewSize:  newSize,
			OldBytes: oldBytes,
			NewBytes: newBytes,
		}, p
	case "commit":
		return Record{Kind: Commit}, pos
	default:
		logrus.Errorf("lm: unexpected log record kind %q at %d", kindTok, pos)
		return Record{Kind: Commit}, pos
	}
}

// readTokenAdvance reads the final token of a fixed-arity record (the one
// immediately followed by '\n' rather than a space).
func readTokenAdvance(buf []byte, pos int) (string, int) {
	return readToken(buf, pos)
}

// Rollback returns the records written since the most recent checkpoint,
// in forward order (the inode manager undoes them in reverse), and
// rewinds the cursor to that checkpoint. If the cursor is already exactly
// at the top checkpoint (rollback called right after a commit with no
// intervening writes), it rewinds past that Commit record, pops the
// checkpoint, and recurses to the one before it (returning nil when no
// checkpoint is left).
func (l *Log) Rollback() []Record {
	if len(l.checkpoints) == 0 {
		logrus.Warnf("lm: previous commit not exists")
		return nil
	}

	currPos := l.cursor
	prevCkp := l.checkpoints[len(l.checkpoints)-1]

	if currPos > prevCkp {
		var recs []Record
		pos := prevCkp
		for pos < currPos {
			var rec Record
			rec, pos = l.readRecord(pos)
			recs = append(recs, rec)
		}
		l.cursor = prevCkp
		return recs
	}

	if currPos == prevCkp {
		l.cursor -= len(commitLine)
		l.checkpoints = l.checkpoints[:len(l.checkpoints)-1]
		return l.Rollback()
	}

	return nil
}

// Forward replays forward from the cursor up to (and including, as a new
// checkpoint) the next Commit record, or to end-of-log if no Commit is
// found. It returns the non-Commit records encountered, in forward order.
func (l *Log) Forward() []Record {
	if l.cursor >= len(l.buf) {
		logrus.Warnf("lm: cannot forward further")
		return nil
	}

	var recs []Record
	pos := l.cursor
	for pos < len(l.buf) {
		var rec Record
		rec, pos = l.readRecord(pos)
		if rec.Kind == Commit {
			l.checkpoints = append(l.checkpoints, pos)
			l.cursor = pos
			return recs
		}
		recs = append(recs, rec)
	}
	l.cursor = pos
	return recs
}

// Len reports the current size of the log in bytes, for introspection
// (demo/CLI reporting; not used by replay logic itself).
func (l *Log) Len() int {
	return len(l.buf)
}

// Checkpoints reports how many commit checkpoints are currently on the
// stack, for introspection.
func (l *Log) Checkpoints() int {
	return len(l.checkpoints)
}
