// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/util/panics"
)

var log = logger.Get(logger.BTCD)

// spawn launches f on its own goroutine, recovering and logging any
// panic instead of taking the whole process down silently.
var spawn = panics.GoroutineWrapperFunc(log)
