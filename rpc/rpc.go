// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc implements the JSON-RPC HTTP surface spec §6 describes:
// Basic-authenticated getdebit/getcredit/getcoins/getvalue/
// gettxdetails/gettxmaturity/posttx, plus a websocket endpoint pushing
// new-transaction and new-block notifications to subscribed clients.
package rpc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/libcoin/utxod/blockchain"
	"github.com/libcoin/utxod/coinjson"
	"github.com/libcoin/utxod/hooks"
	"github.com/libcoin/utxod/logger"
	"github.com/libcoin/utxod/mempool"
)

var log = logger.Get(logger.RPCS)

const authTimeout = 10 * time.Second

// Config holds everything the RPC server needs to authenticate clients
// and listen.
type Config struct {
	Listen    string
	User      string
	Pass      string
	MaxClients int32
}

// Server is the JSON-RPC HTTP server (spec §6). Handler dispatch is a
// plain method-name map rather than the teacher's generated
// RegisterCmd/parseCmd machinery, which was not present in the
// retrieved copy of the teacher to adapt; see DESIGN.md.
type Server struct {
	cfg     Config
	chain   *blockchain.Chain
	mempool *mempool.Pool
	bus     *hooks.Bus

	authsha  [sha256.Size]byte
	listener net.Listener
	numClients int32

	notifier *notifier
}

// New returns an RPC server bound to cfg, answering queries against
// chain and pool and pushing events from bus over websocket.
func New(cfg Config, chain *blockchain.Chain, pool *mempool.Pool, bus *hooks.Bus) *Server {
	auth := sha256.Sum256([]byte("Basic " + basicAuthValue(cfg.User, cfg.Pass)))
	s := &Server{cfg: cfg, chain: chain, mempool: pool, bus: bus, authsha: auth}
	s.notifier = newNotifier(bus)
	return s
}

func basicAuthValue(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

// Start binds the listen address and begins serving. It returns once
// the listener is bound; serving runs in a background goroutine.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	s.listener = l

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleRPC).Methods("POST")
	router.HandleFunc("/ws", s.handleWebsocket)

	httpServer := &http.Server{
		Handler:     router,
		ReadTimeout: authTimeout,
	}

	go func() {
		log.Infof("RPC server listening on %s", l.Addr())
		if err := httpServer.Serve(l); err != nil {
			log.Debugf("RPC server stopped: %v", err)
		}
	}()
	return nil
}

// Stop closes the listener, ending Start's serve goroutine.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// checkAuth validates the request's HTTP Basic credentials in constant
// time against the configured username/password (spec §6: "Over HTTP
// with Basic auth"), mirroring the teacher's checkAuth.
func (s *Server) checkAuth(r *http.Request) bool {
	authHdr := r.Header.Get("Authorization")
	if authHdr == "" {
		return false
	}
	authSHA := sha256.Sum256([]byte(authHdr))
	return subtle.ConstantTimeCompare(authSHA[:], s.authsha[:]) == 1
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if s.checkAuth(r) {
		return true
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="utxod RPC"`)
	http.Error(w, "401 Unauthorized", http.StatusUnauthorized)
	return false
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	if atomic.AddInt32(&s.numClients, 1) > s.cfg.MaxClients && s.cfg.MaxClients > 0 {
		atomic.AddInt32(&s.numClients, -1)
		http.Error(w, "503 Too busy. Try again later.", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.numClients, -1)

	w.Header().Set("Content-Type", "application/json")

	var req coinjson.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, coinjson.NewErrorResponse(nil, -32700, "parse error"))
		return
	}

	handler, ok := handlers[req.Method]
	if !ok {
		writeResponse(w, coinjson.NewErrorResponse(req.ID, -32601, "method not found"))
		return
	}

	result, err := handler(s, req.Params)
	if err != nil {
		writeResponse(w, coinjson.NewErrorResponse(req.ID, -32000, err.Error()))
		return
	}

	resp, err := coinjson.NewResponse(req.ID, result)
	if err != nil {
		writeResponse(w, coinjson.NewErrorResponse(req.ID, -32603, "internal error"))
		return
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp *coinjson.Response) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warnf("writing RPC response: %v", err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	s.notifier.addClient(conn)
}
