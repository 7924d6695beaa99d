// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/libcoin/utxod/hooks"
	"github.com/libcoin/utxod/wire"
)

// wsNotification is the envelope pushed to every subscribed websocket
// client (spec §6: "push notifications to subscribed wallet/RPC
// observers").
type wsNotification struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// txAcceptedParams accompanies a "txaccepted" notification.
type txAcceptedParams struct {
	TxHash string `json:"txhash"`
}

// blockConnectedParams accompanies a "blockconnected" notification.
type blockConnectedParams struct {
	BlockHash string `json:"blockhash"`
	Height    int32  `json:"height"`
}

// notifier subscribes to the hook bus and fans accepted transactions
// and connected blocks out to every websocket client currently attached
// to the RPC server.
type notifier struct {
	hooks.NopListener

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// newNotifier returns a notifier subscribed to bus. The subscription
// lives for the process lifetime; the RPC server never unsubscribes it.
func newNotifier(bus *hooks.Bus) *notifier {
	n := &notifier{clients: make(map[*websocket.Conn]struct{})}
	bus.Subscribe(n)
	return n
}

// addClient registers conn to receive every future notification. The
// caller has already upgraded the HTTP connection; addClient takes
// ownership of conn and closes it once the client disconnects.
func (n *notifier) addClient(conn *websocket.Conn) {
	n.mu.Lock()
	n.clients[conn] = struct{}{}
	n.mu.Unlock()

	go n.drainClient(conn)
}

// drainClient discards whatever the client sends (this endpoint is
// push-only) until the connection closes, then removes it.
func (n *notifier) drainClient(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	n.mu.Lock()
	delete(n.clients, conn)
	n.mu.Unlock()
	conn.Close()
}

func (n *notifier) broadcast(note *wsNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for conn := range n.clients {
		if err := conn.WriteJSON(note); err != nil {
			log.Debugf("dropping websocket client: %v", err)
			go conn.Close()
			delete(n.clients, conn)
		}
	}
}

// OnTxAccepted implements hooks.Listener.
func (n *notifier) OnTxAccepted(tx *wire.MsgTx) {
	hash := tx.TxHash()
	n.broadcast(&wsNotification{
		Method: "txaccepted",
		Params: txAcceptedParams{TxHash: hash.String()},
	})
}

// OnBlockConnected implements hooks.Listener.
func (n *notifier) OnBlockConnected(block *wire.MsgBlock, height int32) {
	hash := block.BlockHash()
	n.broadcast(&wsNotification{
		Method: "blockconnected",
		Params: blockConnectedParams{BlockHash: hash.String(), Height: height},
	})
}
