/*
 main.go

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

package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yfs-core/yfs/fsclient"
)

var (
	demoDir    = flag.String("mkdir", "demo", "Name of a directory to create under the root and populate")
	demoFile   = flag.String("touch", "hello.txt", "Name of a file to create inside the demo directory")
	demoBody   = flag.String("write", "hello, yfs", "Content to write into the demo file before committing")
	rollback   = flag.Bool("rollback", false, "Overwrite the demo file again, then roll the write back, to show undo")
	verboseLog = flag.Bool("v", false, "Use verbose logging for developer")
	help       = flag.Bool("h", false, "Display this help message")
)

func main() {
	flag.Parse()
	if *help {
		printHelpInfo()
		return
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   false,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if *verboseLog {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	c := fsclient.NewClient()

	dir, st := c.Mkdir(1, *demoDir)
	if st != fsclient.OK {
		logrus.Errorf("mkdir %s: %v", *demoDir, st)
		return
	}

	file, st := c.Create(dir, *demoFile)
	if st != fsclient.OK {
		logrus.Errorf("create %s: %v", *demoFile, st)
		return
	}

	if _, st := c.Write(file, 0, []byte(*demoBody)); st != fsclient.OK {
		logrus.Errorf("write %s: %v", *demoFile, st)
		return
	}
	c.Commit()

	got, st := c.Read(file, len(*demoBody), 0)
	if st != fsclient.OK {
		logrus.Errorf("read %s: %v", *demoFile, st)
		return
	}
	fmt.Printf("%s/%s: %q\n", *demoDir, *demoFile, got)

	if *rollback {
		if _, st := c.Write(file, 0, []byte("overwritten, about to be undone")); st != fsclient.OK {
			logrus.Errorf("write %s: %v", *demoFile, st)
			return
		}
		c.Rollback()

		got, st := c.Read(file, len(*demoBody), 0)
		if st != fsclient.OK {
			logrus.Errorf("read %s: %v", *demoFile, st)
			return
		}
		fmt.Printf("%s/%s after rollback: %q\n", *demoDir, *demoFile, got)
	}
}

func printHelpInfo() {
	fmt.Println("yfs: an in-memory storage/replication core for a teaching distributed filesystem.")
	flag.PrintDefaults()
}
