/*
 lockserver.go

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

// Package lockserver implements a blocking, centralized lock service:
// one mutex guards the whole lock table, and one sync.Cond per lock id
// wakes the clients waiting on it.
package lockserver

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type lockState struct {
	held    bool
	cond    *sync.Cond
	waiters uint64
}

// Server is a single lock table shared by every client. It is safe for
// concurrent use. granted is kept apart from locks because locks entries
// are garbage-collected once a lock goes idle with no waiters, while the
// grant count must survive that GC.
type Server struct {
	mu      sync.Mutex
	locks   map[uint64]*lockState
	granted map[uint64]uint64
}

func NewServer() *Server {
	return &Server{
		locks:   make(map[uint64]*lockState),
		granted: make(map[uint64]uint64),
	}
}

// Acquire blocks the calling goroutine until lid is free, then marks it
// held and returns.
func (s *Server) Acquire(clt int, lid uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		st, ok := s.locks[lid]
		if !ok {
			st = &lockState{cond: sync.NewCond(&s.mu)}
			s.locks[lid] = st
		}

		if !st.held {
			st.held = true
			s.granted[lid]++
			logrus.Debugf("ls: client %d acquired lock %d", clt, lid)
			return
		}

		st.waiters++
		st.cond.Wait()
		st.waiters--
	}
}

// Release marks lid free and wakes one waiter, if any. Releasing a lock
// that no client holds is rejected and returns false. Ownership is not
// tracked per client, so any client may release a held lock.
func (s *Server) Release(clt int, lid uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.locks[lid]
	if !ok || !st.held {
		logrus.Errorf("ls: client %d tried to release unheld lock %d", clt, lid)
		return false
	}

	st.held = false
	logrus.Debugf("ls: client %d released lock %d", clt, lid)
	if st.waiters > 0 {
		st.cond.Signal()
	} else {
		delete(s.locks, lid)
	}
	return true
}

// Stat reports how many times lid has been granted to some client,
// cumulative across the lock's whole lifetime (including past idle
// periods during which its lockState entry was garbage-collected). It is
// purely informational and never blocks.
func (s *Server) Stat(lid uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.granted[lid]
}
