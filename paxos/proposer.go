/*
 proposer.go

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
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const rpcTimeout = time.Second

var errOldInstance = errors.New("paxos: peer reports a newer decided instance")

// Proposer drives single-decree Paxos for a series of instances. Run
// holds mu for its entire duration, so concurrent Run calls on the same
// Proposer are mutually excluded, matching the reference's ScopedLock
// held across the whole RPC round trip.
type Proposer struct {
	me  string
	acc *Acceptor

	mu     sync.Mutex
	myN    ProposalNumber
	stable bool

	// Break1/Break2 are test-only hooks invoked right after a majority
	// of prepares and right after a majority of accepts, respectively,
	// letting tests simulate a proposer crashing mid-round.
	Break1 func()
	Break2 func()
}

func NewProposer(me string, acc *Acceptor) *Proposer {
	return &Proposer{
		me:     me,
		acc:    acc,
		myN:    ProposalNumber{N: 0, M: me},
		stable: true,
		Break1: func() {},
		Break2: func() {},
	}
}

func (p *Proposer) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.stable
}

func (p *Proposer) setN() {
	nh := p.acc.GetNH()
	if nh.N+1 > p.myN.N+1 {
		p.myN.N = nh.N + 1
	} else {
		p.myN.N++
	}
}

func majorityThreshold(n int) int {
	return n>>1 + 1
}

// Run attempts to get newv decided for instance among nodes (by node
// id), using rpcs to reach each one; nodes with no entry in rpcs are
// treated as unreachable. It returns true iff a decision was reached
// (which may be newv, or a value an earlier proposer already got
// accepted by one of the prepare-accepters). If a peer reports that
// instance is already decided, Run applies that value locally and
// returns false.
func (p *Proposer) Run(ctx context.Context, instance uint64, nodes []string, rpcs map[string]AcceptorRPC, newv string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	logrus.Debugf("paxos: %s initiating instance %d among %v, stable=%v", p.me, instance, nodes, p.stable)
	if !p.stable {
		logrus.Debugf("paxos: %s already running a proposal", p.me)
		return false
	}
	p.stable = false
	defer func() { p.stable = true }()

	p.setN()

	accepts, v, aborted := p.prepare(ctx, instance, nodes, rpcs)
	if aborted {
		logrus.Debugf("paxos: %s prepare aborted, a peer already knows a decision", p.me)
		return false
	}
	if len(accepts) < majorityThreshold(len(nodes)) {
		logrus.Debugf("paxos: %s got no majority of prepare responses", p.me)
		return false
	}
	if v == "" {
		v = newv
	}

	p.Break1()

	acceptedBy := p.accept(ctx, instance, accepts, rpcs, v)
	if len(acceptedBy) < majorityThreshold(len(nodes)) {
		logrus.Debugf("paxos: %s got no majority of accept responses", p.me)
		return false
	}

	p.Break2()

	p.decide(ctx, instance, acceptedBy, rpcs, v)
	return true
}

// prepare fans out PrepareReq to nodes concurrently. If any replies
// oldinstance, the decided value is applied locally and prepare aborts
// the whole round.
func (p *Proposer) prepare(ctx context.Context, instance uint64, nodes []string, rpcs map[string]AcceptorRPC) (accepts []string, v string, aborted bool) {
	var mu sync.Mutex
	var highest ProposalNumber

	g, gctx := errgroup.WithContext(ctx)
	for _, node := range nodes {
		node := node
		rpc, ok := rpcs[node]
		if !ok || rpc == nil {
			logrus.Debugf("paxos: no rpc bound for %s, treating it as unreachable", node)
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, rpcTimeout)
			defer cancel()

			reply, err := rpc.PrepareReq(cctx, p.me, instance, p.myN)
			if err != nil {
				logrus.Debugf("paxos: prepare rpc to %s failed: %v", node, err)
				return nil
			}
			if reply.OldInstance {
				p.acc.Commit(instance, reply.VA)
				return errOldInstance
			}
			if reply.Accept {
				mu.Lock()
				accepts = append(accepts, node)
				if reply.NA.Greater(highest) {
					v = reply.VA
					highest = reply.NA
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); errors.Is(err, errOldInstance) {
		return nil, "", true
	}
	return accepts, v, false
}

// accept fans out AcceptReq to nodes (the prepare-accepters) and
// returns those that accepted.
func (p *Proposer) accept(ctx context.Context, instance uint64, nodes []string, rpcs map[string]AcceptorRPC, v string) []string {
	var mu sync.Mutex
	var accepted []string

	g, gctx := errgroup.WithContext(ctx)
	for _, node := range nodes {
		node := node
		rpc := rpcs[node]
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, rpcTimeout)
			defer cancel()

			ok, err := rpc.AcceptReq(cctx, p.me, instance, p.myN, v)
			if err != nil {
				logrus.Debugf("paxos: accept rpc to %s failed: %v", node, err)
				return nil
			}
			if ok {
				mu.Lock()
				accepted = append(accepted, node)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return accepted
}

// decide is a best-effort broadcast: failures are logged and otherwise
// ignored, since the instance is already safely decided once a
// majority has accepted it.
func (p *Proposer) decide(ctx context.Context, instance uint64, nodes []string, rpcs map[string]AcceptorRPC, v string) {
	g, gctx := errgroup.WithContext(ctx)
	for _, node := range nodes {
		node := node
		rpc := rpcs[node]
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, rpcTimeout)
			defer cancel()

			if err := rpc.DecideReq(cctx, p.me, instance, v); err != nil {
				logrus.Debugf("paxos: decide rpc to %s failed: %v", node, err)
			}
			return nil
		})
	}
	g.Wait()
}
