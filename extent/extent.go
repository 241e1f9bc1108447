/*
 extent.go

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

// Package extent exposes the inode manager through the narrow
// create/get/put/remove/getattr contract that the filesystem client and,
// in a full deployment, an RPC transport sit on top of.
package extent

import (
	"github.com/sirupsen/logrus"

	"github.com/yfs-core/yfs/inode"
)

// Status is the closed set of outcomes a Server call can report. There
// is no catch-all "other" value: every failure path maps onto one of
// these five.
type Status int

const (
	OK Status = iota
	RPCERR
	NOENT
	IOERR
	EXIST
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case RPCERR:
		return "RPCERR"
	case NOENT:
		return "NOENT"
	case IOERR:
		return "IOERR"
	case EXIST:
		return "EXIST"
	default:
		return "UNKNOWN"
	}
}

// Attr mirrors inode.Attr at the extent boundary.
type Attr = inode.Attr

// Server adapts inode.Manager's panic-free, bool-returning calls onto
// the Status-returning extent contract.
type Server struct {
	im *inode.Manager
}

func NewServer() *Server {
	return &Server{im: inode.NewManager()}
}

// Create allocates a new extent of the given type.
func (s *Server) Create(typ uint32) (uint32, Status) {
	inum := s.im.AllocInode(typ)
	if inum == 0 {
		logrus.Errorf("extent: create failed for type %d", typ)
		return 0, IOERR
	}
	return inum, OK
}

// Get returns the full content of inum.
func (s *Server) Get(inum uint32) ([]byte, Status) {
	buf, ok := s.im.ReadFile(inum)
	if !ok {
		return nil, NOENT
	}
	return buf, OK
}

// Put overwrites inum's content with buf.
func (s *Server) Put(inum uint32, buf []byte) Status {
	if _, ok := s.im.GetAttr(inum); !ok {
		return NOENT
	}
	if !s.im.WriteFile(inum, buf) {
		return IOERR
	}
	return OK
}

// Remove deletes inum.
func (s *Server) Remove(inum uint32) Status {
	if _, ok := s.im.GetAttr(inum); !ok {
		return NOENT
	}
	s.im.RemoveFile(inum)
	return OK
}

// GetAttr reports inum's metadata.
func (s *Server) GetAttr(inum uint32) (Attr, Status) {
	a, ok := s.im.GetAttr(inum)
	if !ok {
		return Attr{}, NOENT
	}
	return a, OK
}

// Commit/Rollback/Forward pass through to the inode manager so a caller
// driving transactional batches of extent calls can bracket them.
func (s *Server) Commit()   { s.im.Commit() }
func (s *Server) Rollback() { s.im.Rollback() }
func (s *Server) Forward()  { s.im.Forward() }
