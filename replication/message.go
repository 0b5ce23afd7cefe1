// Package replication implements the peer-to-peer protocol that keeps
// ledger copies consistent across nodes (spec.md §4.8): newline-delimited
// JSON message framing, handshake, longest-valid-chain sync, and gossip.
// Grounded on the teacher's p2p package (server.go's accept loop and
// per-connection goroutine shape, messages.go's payload structs, pex.go's
// seed parsing) adapted from the teacher's length-prefixed, cryptographically
// authenticated handshake to the simpler newline-delimited, unauthenticated
// framing spec.md describes.
package replication

import (
	"bufio"
	"encoding/json"
	"io"
)

// Kind discriminates a replication wire message (spec.md §4.8).
type Kind string

const (
	KindHandshake     Kind = "HANDSHAKE"
	KindRequestChain  Kind = "REQUEST_CHAIN"
	KindChainResponse Kind = "CHAIN_RESPONSE"
	KindNewBlock      Kind = "NEW_BLOCK"
	KindNewEntry      Kind = "NEW_ENTRY"
	KindRequestPeers  Kind = "REQUEST_PEERS"
	KindPeerList      Kind = "PEER_LIST"
)

// Message is the envelope every wire frame carries: a discriminator plus an
// opaque payload decoded according to Kind.
type Message struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HandshakePayload is exchanged on connection establishment.
type HandshakePayload struct {
	NodeID string `json:"nodeId"`
	Port   int    `json:"port"`
}

// PeerListPayload carries a set of host:port addresses for peer discovery.
type PeerListPayload struct {
	Peers []string `json:"peers"`
}

func encodePayload(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// writeFrame serializes msg and writes it followed by a newline.
func writeFrame(w io.Writer, kind Kind, payload interface{}) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	msg := Message{Kind: kind, Payload: raw}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// readFrame reads UTF-8 JSON objects separated by '\n' from r. It
// accumulates until a newline, parses the preceding text, and returns
// io.EOF when the stream ends. Malformed lines are reported as an error to
// the caller, which discards them silently per spec.md §4.8.
func readFrame(r *bufio.Reader) (*Message, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, err
		}
		// Fall through: a trailing partial line at EOF is still attempted.
	}
	var msg Message
	if jsonErr := json.Unmarshal([]byte(line), &msg); jsonErr != nil {
		return nil, jsonErr
	}
	return &msg, nil
}
