/*
 lockserver_test.go

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

package lockserver

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseGrantsImmediatelyWhenFree(t *testing.T) {
	s := NewServer()
	s.Acquire(1, 42)
	require.True(t, s.Release(1, 42))
	assert.Equal(t, uint64(1), s.Stat(42))
}

func TestReleaseUnheldLockFails(t *testing.T) {
	s := NewServer()
	assert.False(t, s.Release(1, 42))
}

func TestConcurrentAcquireSerializes(t *testing.T) {
	s := NewServer()
	const n = 20
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(clt int) {
			defer wg.Done()
			s.Acquire(clt, 7)
			cur := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if cur <= m || atomic.CompareAndSwapInt32(&maxActive, m, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			s.Release(clt, 7)
		}(i)
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxActive, "lock 7 must never be held by more than one client at once")
	assert.Equal(t, uint64(n), s.Stat(7))
}

func TestWaiterWakesAfterRelease(t *testing.T) {
	s := NewServer()
	s.Acquire(1, 5)

	acquired := make(chan struct{})
	go func() {
		s.Acquire(2, 5)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second client should not acquire lock 5 while client 1 holds it")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release(1, 5)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second client should acquire lock 5 once it is released")
	}
}

func TestStatSurvivesIdleGC(t *testing.T) {
	s := NewServer()
	for i := 0; i < 3; i++ {
		s.Acquire(1, 99)
		require.True(t, s.Release(1, 99))
		_, idle := s.locks[99]
		require.False(t, idle, "an idle lock with no waiters must be removed from the table")
	}
	assert.Equal(t, uint64(3), s.Stat(99))
}

func TestStatOnUnknownLockIsZero(t *testing.T) {
	s := NewServer()
	assert.Equal(t, uint64(0), s.Stat(999))
}
