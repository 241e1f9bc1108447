/*
 acceptor.go

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

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// ConfigChangeFunc is upcalled once an instance is decided, with
// pxs_mutex released so the callback is free to turn around and call
// back into the acceptor without deadlocking.
type ConfigChangeFunc func(instance uint64, value string)

// PrepareReply is what an acceptor returns from PrepareReq.
type PrepareReply struct {
	Accept      bool
	OldInstance bool
	NA          ProposalNumber
	VA          string
}

// AcceptorRPC is the surface a proposer calls to reach a remote
// acceptor. In a full deployment this boundary is crossed by RPC;
// here calls are direct, standing in for that transport.
type AcceptorRPC interface {
	PrepareReq(ctx context.Context, src string, instance uint64, n ProposalNumber) (PrepareReply, error)
	AcceptReq(ctx context.Context, src string, instance uint64, n ProposalNumber, v string) (bool, error)
	DecideReq(ctx context.Context, src string, instance uint64, v string) error
}

// Acceptor is the receiving half of single-decree Paxos: it promises
// proposal numbers, accepts values, and commits decided instances.
// All three RPC handlers lock mu for their full duration, except that a
// commit releases it around the configuration upcall (see commitLocked).
type Acceptor struct {
	me  string
	cfg ConfigChangeFunc

	mu        sync.Mutex
	nH        ProposalNumber
	nA        ProposalNumber
	vA        string
	instanceH uint64
	values    map[uint64]string
	log       *AcceptorLog
}

// NewAcceptor creates an acceptor identified by me. If first is true
// and no higher instance has been decided, instance 1 is seeded with
// value so a fresh cluster has something to agree it already knows.
func NewAcceptor(me string, first bool, value string, cfg ConfigChangeFunc) *Acceptor {
	a := &Acceptor{
		me:     me,
		cfg:    cfg,
		nH:     ProposalNumber{N: 0, M: me},
		nA:     ProposalNumber{N: 0, M: me},
		values: make(map[uint64]string),
		log:    NewAcceptorLog(),
	}
	if first {
		a.values[1] = value
		a.log.LogInstance(1, value)
		a.instanceH = 1
	}
	return a
}

// GetNH returns the highest proposal number this acceptor has promised,
// which proposers consult to pick a number guaranteed to be new.
func (a *Acceptor) GetNH() ProposalNumber {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nH
}

func (a *Acceptor) PrepareReq(_ context.Context, src string, instance uint64, n ProposalNumber) (PrepareReply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if instance <= a.instanceH {
		return PrepareReply{OldInstance: true, VA: a.values[instance]}, nil
	}
	if n.Greater(a.nH) {
		a.nH = n
		a.log.LogProp(a.nH)
		return PrepareReply{Accept: true, NA: a.nA, VA: a.vA}, nil
	}
	logrus.Debugf("paxos: acceptor %s rejects stale prepare from %s for instance %d", a.me, src, instance)
	return PrepareReply{}, nil
}

func (a *Acceptor) AcceptReq(_ context.Context, src string, instance uint64, n ProposalNumber, v string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n.GreaterOrEqual(a.nH) {
		a.nA = n
		a.vA = v
		a.log.LogAccept(a.nA, a.vA)
		return true, nil
	}
	logrus.Debugf("paxos: acceptor %s rejects stale accept from %s for instance %d", a.me, src, instance)
	return false, nil
}

func (a *Acceptor) DecideReq(_ context.Context, src string, instance uint64, v string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	logrus.Debugf("paxos: decidereq from %s for instance %d (acceptor %s at instance %d)", src, instance, a.me, a.instanceH)

	switch {
	case instance == a.instanceH+1:
		if v != a.vA {
			logrus.Panicf("paxos: acceptor %s decided value diverges from its own accepted value for instance %d", a.me, instance)
		}
		a.commitLocked(instance, a.vA)
	case instance <= a.instanceH:
		// already ahead of this decision; ignore.
	default:
		logrus.Panicf("paxos: acceptor %s is behind by more than one instance (got %d, at %d)", a.me, instance, a.instanceH)
	}
	return nil
}

// Commit applies a decided instance directly, bypassing the decide RPC
// path; proposers use it when a peer's prepare reply reveals a
// decision they hadn't heard about yet.
func (a *Acceptor) Commit(instance uint64, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commitLocked(instance, value)
}

// commitLocked assumes mu is held. It releases mu for the duration of
// the configuration upcall so the hook may safely call back into the
// acceptor.
func (a *Acceptor) commitLocked(instance uint64, value string) {
	if instance <= a.instanceH {
		return
	}
	a.values[instance] = value
	a.log.LogInstance(instance, value)
	a.instanceH = instance
	a.nH = ProposalNumber{N: 0, M: a.me}
	a.nA = ProposalNumber{N: 0, M: a.me}
	a.vA = ""

	if a.cfg != nil {
		a.mu.Unlock()
		a.cfg(instance, value)
		a.mu.Lock()
	}
}

// InstanceH reports the highest instance this acceptor has decided.
func (a *Acceptor) InstanceH() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instanceH
}

// Value returns the decided value for instance, if any.
func (a *Acceptor) Value(instance uint64) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[instance]
	return v, ok
}
