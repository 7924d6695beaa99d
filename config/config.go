// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses utxod's command-line options,
// following the teacher's per-binary go-flags convention (seen in
// cmd/txgen/config.go), generalized from a single-purpose tool's flag
// set to the full node's data-directory/listener/peer/RPC surface spec
// §6 describes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/libcoin/utxod/chaincfg"
)

const (
	defaultLogFilename   = "debug.log"
	defaultListenPort    = "8333"
	defaultRPCListen     = "127.0.0.1:8332"
	defaultMaxRPCClients = 10
)

var (
	defaultHomeDir   = appDataDir("utxod")
	defaultLogDir    = filepath.Join(defaultHomeDir, "logs")
	defaultAddrsFile = filepath.Join(defaultHomeDir, "addr.dat")
)

// appDataDir returns the default per-OS application data directory for
// name. The teacher's own util.AppDataDir (named in cmd/txgen/config.go)
// was not present in the retrieved source to adapt, so this is a small
// standard-library stand-in limited to *nix/HOME-based layout.
func appDataDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+name)
	}
	return filepath.Join(home, "."+name)
}

// Config holds every option utxod's main binary needs: where it stores
// chain/address-book state, what it listens on, how it finds peers, and
// how its RPC surface authenticates (spec §6's "Environment/config").
type Config struct {
	HomeDir    string `long:"datadir" description:"Directory to store data"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	AddrsFile  string `long:"addrsfile" description:"File to persist known peer addresses"`
	DebugLevel string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical" default:"info"`

	Listen         string   `long:"listen" description:"Address to listen for incoming P2P connections"`
	ConnectPeers   []string `long:"connect" description:"Connect only to the specified peers at startup"`
	MaxPeers       int      `long:"maxpeers" description:"Max number of inbound and outbound peers" default:"125"`
	Proxy          string   `long:"proxy" description:"SOCKS5 proxy to use for outbound connections"`

	TestNet bool `long:"testnet" description:"Use the test network"`
	RegTest bool `long:"regtest" description:"Use the regression test network"`

	DisableRPC   bool   `long:"norpc" description:"Disable the built-in JSON-RPC server"`
	RPCListen    string `long:"rpclisten" description:"Address for the JSON-RPC server to listen on"`
	RPCUser      string `long:"rpcuser" description:"JSON-RPC username"`
	RPCPass      string `long:"rpcpass" description:"JSON-RPC password"`
	RPCMaxClients int32 `long:"rpcmaxclients" description:"Max simultaneous JSON-RPC clients"`

	AlertPubKey string `long:"alertpubkey" description:"Override the network default alert-signing public key (hex)"`
}

// NetParams resolves the chain parameters for the network the flags
// select, mainnet unless -testnet/-regtest is given.
func (c *Config) NetParams() *chaincfg.Params {
	switch {
	case c.TestNet:
		return &chaincfg.TestNetParams
	case c.RegTest:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// Parse parses the command line, fills in defaults, and validates the
// mutually-exclusive network selectors. No config file is read.
func Parse() (*Config, error) {
	cfg := &Config{
		HomeDir:       defaultHomeDir,
		LogDir:        defaultLogDir,
		AddrsFile:     defaultAddrsFile,
		Listen:        ":" + defaultListenPort,
		RPCListen:     defaultRPCListen,
		RPCMaxClients: defaultMaxRPCClients,
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if c := boolCount(cfg.TestNet, cfg.RegTest); c > 1 {
		return nil, errors.New("--testnet and --regtest are mutually exclusive")
	}

	if err := os.MkdirAll(cfg.HomeDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if !cfg.DisableRPC && (cfg.RPCUser == "" || cfg.RPCPass == "") {
		return nil, errors.New("--rpcuser and --rpcpass are required unless --norpc is given")
	}

	return cfg, nil
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// LogFile is utxod's default rotating-log path under LogDir.
func (c *Config) LogFile() string { return filepath.Join(c.LogDir, defaultLogFilename) }
