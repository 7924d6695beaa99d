// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// utxod is the full-node daemon: it wires the chain engine, mempool,
// peer/connection layer, alert tracker and JSON-RPC surface together
// (spec §6), following the structure of the teacher's kaspad.go/main
// wiring.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/libcoin/utxod/config"
	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/util/panics"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 for a clean shutdown, non-zero
// on a fatal startup error (spec §6). A panic anywhere during startup
// or shutdown is logged with its stack trace rather than crashing
// silently.
func run() int {
	defer panics.HandlePanic(log, nil)

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		return 1
	}

	logger.InitLogRotator(cfg.LogFile())
	logger.SetLogLevels(cfg.DebugLevel)

	n, err := newNode(cfg)
	if err != nil {
		log.Errorf("initializing node: %v", err)
		return 1
	}

	if err := n.start(); err != nil {
		log.Errorf("starting node: %v", err)
		return 1
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Info("shutting down")
	if err := n.stop(); err != nil {
		log.Errorf("shutting down: %v", err)
		return 1
	}
	return 0
}
