package replication

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"govledger/ledger"
	"govledger/observability/metrics"
)

// DefaultPort is the default listen port for replication nodes
// (spec.md §6).
const DefaultPort = 4000

// Node is a replication peer: it owns the shared ledger, the connection
// table, peer reputation, and peer-discovery state. Grounded on
// p2p/server.go's Server type (accept loop, per-connection goroutines,
// reputation/ban map) generalized from the teacher's authenticated,
// length-prefixed transport to spec.md §4.8's newline-delimited JSON
// framing.
type Node struct {
	NodeID     string
	listenAddr string
	ledger     *ledger.Ledger
	reputation *ReputationManager

	mu    sync.Mutex
	conns map[string]net.Conn
	peers map[string]struct{}

	logf func(format string, args ...interface{})
}

// NewNode constructs a replication node serving l over listenAddr.
func NewNode(nodeID, listenAddr string, l *ledger.Ledger) *Node {
	return &Node{
		NodeID:     nodeID,
		listenAddr: listenAddr,
		ledger:     l,
		reputation: NewReputationManager(ReputationConfig{}),
		conns:      make(map[string]net.Conn),
		peers:      make(map[string]struct{}),
		logf:       func(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) },
	}
}

// ListenAndServe binds listenAddr and accepts inbound connections, each
// handled on its own goroutine, until the listener is closed.
func (n *Node) ListenAndServe() error {
	ln, err := net.Listen("tcp", n.listenAddr)
	if err != nil {
		return err
	}
	n.logf("replication: listening on %s (node %s)", n.listenAddr, n.NodeID)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go n.handleConn(conn, false)
	}
}

// Dial connects to a peer address, sends an unsolicited handshake, and
// begins reading frames on a new goroutine.
func (n *Node) Dial(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	if err := writeFrame(conn, KindHandshake, HandshakePayload{NodeID: n.NodeID, Port: DefaultPort}); err != nil {
		conn.Close()
		return err
	}
	go n.handleConn(conn, true)
	return nil
}

func (n *Node) handleConn(conn net.Conn, outbound bool) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	remoteNodeID := ""

	for {
		msg, err := readFrame(reader)
		malformed := false
		if err != nil {
			switch err.(type) {
			case *json.SyntaxError, *json.UnmarshalTypeError:
				malformed = true
			default:
				return
			}
		}
		if msg != nil {
			var nodeID string
			nodeID, malformed = n.dispatch(conn, msg)
			if nodeID != "" {
				if n.reputation.IsBanned(nodeID) {
					return
				}
				remoteNodeID = nodeID
				n.mu.Lock()
				n.conns[remoteNodeID] = conn
				n.mu.Unlock()
				if !outbound {
					_ = writeFrame(conn, KindHandshake, HandshakePayload{NodeID: n.NodeID, Port: DefaultPort})
				}
			}
		}
		if malformed && remoteNodeID != "" {
			n.reputation.Penalize(remoteNodeID, malformedMessagePenalty)
			metrics.Default().ObservePeerPenalty("malformed_message")
			if n.reputation.IsBanned(remoteNodeID) {
				return
			}
		}
	}
}

// dispatch handles one decoded message kind. It returns the remote node id
// if the message was a handshake, and whether the payload was malformed
// (to be penalized by the caller). Malformed payloads are otherwise
// dropped silently per spec.md §4.8.
func (n *Node) dispatch(conn net.Conn, msg *Message) (nodeID string, malformed bool) {
	switch msg.Kind {
	case KindHandshake:
		var payload HandshakePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return "", true
		}
		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		n.mu.Lock()
		n.peers[net.JoinHostPort(host, fmt.Sprint(payload.Port))] = struct{}{}
		peerCount := len(n.peers)
		n.mu.Unlock()
		metrics.Default().SetPeersConnected(peerCount)
		n.logf("replication: peer_connected %s", payload.NodeID)
		return payload.NodeID, false

	case KindRequestChain:
		data, err := n.ledger.ToJSON()
		if err != nil {
			return "", true
		}
		if err := writeFrame(conn, KindChainResponse, json.RawMessage(data)); err != nil {
			return "", true
		}
		return "", false

	case KindChainResponse:
		candidate, err := ledger.FromJSON(msg.Payload)
		if err != nil {
			return "", true
		}
		n.adoptIfLonger(candidate)
		return "", false

	case KindNewBlock:
		var block ledger.Block
		if err := json.Unmarshal(msg.Payload, &block); err != nil {
			return "", true
		}
		_ = n.ledger.AppendBlock(&block)
		return "", false

	case KindNewEntry:
		var entry ledger.Entry
		if err := json.Unmarshal(msg.Payload, &entry); err != nil {
			return "", true
		}
		n.ledger.AddEntry(&entry)
		return "", false

	case KindRequestPeers:
		n.mu.Lock()
		addrs := make([]string, 0, len(n.peers))
		for p := range n.peers {
			addrs = append(addrs, p)
		}
		n.mu.Unlock()
		if err := writeFrame(conn, KindPeerList, PeerListPayload{Peers: addrs}); err != nil {
			return "", true
		}
		return "", false

	case KindPeerList:
		var payload PeerListPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return "", true
		}
		n.mu.Lock()
		for _, p := range payload.Peers {
			n.peers[p] = struct{}{}
		}
		n.mu.Unlock()
		return "", false

	default:
		return "", true
	}
}

// adoptIfLonger runs the longest-valid-chain rule (spec.md §4.8): the
// candidate is adopted only if it verifies and is strictly longer than the
// local chain.
func (n *Node) adoptIfLonger(candidate *ledger.Ledger) bool {
	result := candidate.VerifyChain()
	if !result.Valid {
		return false
	}
	if candidate.ChainLength() <= n.ledger.ChainLength() {
		return false
	}
	chain := make([]*ledger.Block, candidate.ChainLength())
	for i := 0; i < candidate.ChainLength(); i++ {
		chain[i] = candidate.BlockAt(i)
	}
	n.ledger.ReplaceChain(chain)
	metrics.Default().ObserveChainAdoption()
	return true
}

// RequestChain asks every connected peer for their chain.
func (n *Node) RequestChain() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, conn := range n.conns {
		if err := writeFrame(conn, KindRequestChain, nil); err != nil {
			n.logf("replication: failed to request chain from %s: %v", id, err)
		}
	}
	return nil
}

// BroadcastBlock gossips block to every connected peer.
func (n *Node) BroadcastBlock(block *ledger.Block) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, conn := range n.conns {
		_ = writeFrame(conn, KindNewBlock, block)
	}
}

// BroadcastEntry gossips entry to every connected peer.
func (n *Node) BroadcastEntry(entry *ledger.Entry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, conn := range n.conns {
		_ = writeFrame(conn, KindNewEntry, entry)
	}
}

// PeerCount returns the number of known peers (connected or discovered via
// PEX).
func (n *Node) PeerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.peers)
}
