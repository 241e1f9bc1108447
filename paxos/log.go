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

package paxos

import "sync"

type entryKind int

const (
	entryInstance entryKind = iota
	entryProp
	entryAccept
)

type logEntry struct {
	Kind     entryKind
	Instance uint64
	Value    string
	N        ProposalNumber
}

// AcceptorLog records every promise, accept, and decided instance an
// acceptor makes, in order, in memory; Entries returns them oldest
// first. This package has no routine that rebuilds an Acceptor from
// these entries, and nothing here persists them across a process
// restart.
type AcceptorLog struct {
	mu      sync.Mutex
	entries []logEntry
}

func NewAcceptorLog() *AcceptorLog {
	return &AcceptorLog{}
}

// LogInstance records that instance decided on value.
func (l *AcceptorLog) LogInstance(instance uint64, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Kind: entryInstance, Instance: instance, Value: value})
}

// LogProp records a promise to n.
func (l *AcceptorLog) LogProp(n ProposalNumber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Kind: entryProp, N: n})
}

// LogAccept records an accepted (n, v) pair.
func (l *AcceptorLog) LogAccept(n ProposalNumber, v string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Kind: entryAccept, N: n, Value: v})
}

// Entries returns a copy of every record logged so far, oldest first.
func (l *AcceptorLog) Entries() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]logEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
