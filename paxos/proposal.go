/*
 proposal.go

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

// Package paxos implements single-decree Paxos: a proposer that drives
// prepare/accept/decide across a set of acceptors, and the acceptor
// state machine itself with an in-memory log of its promises, accepts
// and decisions.
package paxos

// ProposalNumber is ordered lexicographically: by N first, then by the
// proposing node's identity M. This breaks ties between proposers that
// pick the same N.
type ProposalNumber struct {
	N uint64
	M string
}

func compare(a, b ProposalNumber) int {
	if a.N != b.N {
		if a.N < b.N {
			return -1
		}
		return 1
	}
	if a.M != b.M {
		if a.M < b.M {
			return -1
		}
		return 1
	}
	return 0
}

func (a ProposalNumber) Greater(b ProposalNumber) bool        { return compare(a, b) > 0 }
func (a ProposalNumber) Less(b ProposalNumber) bool           { return compare(a, b) < 0 }
func (a ProposalNumber) GreaterOrEqual(b ProposalNumber) bool { return compare(a, b) >= 0 }
