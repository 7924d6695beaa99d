// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logger wires every subsystem's logger onto a single rotating
// file backend (spec's "debug.log — rotating operational log").
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter sends output to both stdout and the active log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var backendLog = btclog.NewBackend(logWriter{})

var logRotator *rotator.Rotator

// Subsystem tags, following the teacher's ADXR/AMGR/CMGR/... naming
// convention, extended with the tags this module's own packages need.
const (
	ADXR = "ADXR" // addrmgr
	AMGR = "AMGR" // alert
	CMGR = "CMGR" // connmgr
	BCDB = "BCDB" // database
	BTCD = "BTCD" // cmd/utxod
	CHAN = "CHAN" // blockchain
	CNFG = "CNFG" // config
	MEMP = "MEMP" // mempool
	PEER = "PEER" // peer
	RPCS = "RPCS" // rpc
	SCRP = "SCRP" // txscript
	HOOK = "HOOK" // hooks
)

var subsystemLoggers = make(map[string]btclog.Logger)

// Get returns the logger for subsystemTag, creating it against the shared
// backend on first use.
func Get(subsystemTag string) btclog.Logger {
	if l, ok := subsystemLoggers[subsystemTag]; ok {
		return l
	}
	l := backendLog.Logger(subsystemTag)
	subsystemLoggers[subsystemTag] = l
	return l
}

// InitLogRotator creates a rolling log file at logFile, 10 MiB per file
// with 3 old copies kept, matching the teacher's own rotator sizing.
func InitLogRotator(logFile string) {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}
	logRotator = r
}

// SetLogLevel sets the logging level for the named subsystem. Unknown
// subsystems are ignored; invalid levels default to Info.
func SetLogLevel(subsystemTag, logLevel string) {
	l, ok := subsystemLoggers[subsystemTag]
	if !ok {
		return
	}
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		level = btclog.LevelInfo
	}
	l.SetLevel(level)
}

// SetLogLevels sets every known subsystem's logger to logLevel.
func SetLogLevels(logLevel string) {
	for tag := range subsystemLoggers {
		SetLogLevel(tag, logLevel)
	}
}

// DirectionString renders a connection's direction for log messages.
func DirectionString(inbound bool) string {
	if inbound {
		return "inbound"
	}
	return "outbound"
}
