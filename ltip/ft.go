package ltip

import (
	"encoding/json"
	"math/big"
)

// FungibleToken is the out-of-scope FT collaborator named in §1/§6: the
// actual transfer protocol and cross-contract callback mechanics are
// external. The engine only needs this much of it.
type FungibleToken interface {
	// Transfer requests that amount be sent to `to`. It returns a handle
	// representing the in-flight transfer rather than an error, because
	// in the real host environment the result only becomes known later,
	// in a callback — see TransferHandle.
	Transfer(to string, amount *big.Int) TransferHandle
}

// TransferHandle represents one in-flight FT transfer. In the real host
// (NEAR promise callback, CosmWasm reply, an ERC-20 relayer ack) the
// dispatcher would register a callback and return control immediately;
// Await is the synchronous stand-in that makes the prepare/transfer/
// commit-or-rollback pattern in §4.5 directly testable from Go without a
// real asynchronous host.
type TransferHandle interface {
	// Await blocks until the transfer resolves and reports whether it
	// succeeded. It must be safe to call exactly once per handle.
	Await() bool
}

// TopUpMsg is the ft_on_transfer message variant that simply credits
// treasury.
type TopUpMsg struct {
	Type string `json:"type"`
}

// IssueMsg is the ft_on_transfer message variant that combines a top-up
// with an atomic issue, per §4.4.
type IssueMsg struct {
	Type string       `json:"type"`
	Data IssueMsgData `json:"data"`
}

// IssueMsgData carries the issue_at timestamp and the (account_id,
// amount) pairs to grant, with amounts as decimal strings per §6.
type IssueMsgData struct {
	IssueAt uint64      `json:"issue_at"`
	Grants  [][2]string `json:"grants"`
}

// msgEnvelope is used only to sniff the `type` discriminator before
// unmarshaling into the concrete variant.
type msgEnvelope struct {
	Type string `json:"type"`
}

// ParseFTMessage parses the JSON `msg` carried by ft_on_transfer into
// either a TopUpMsg or an IssueMsg. Any other shape is MalformedMessage.
func ParseFTMessage(raw []byte) (interface{}, *Error) {
	var env msgEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformed(err.Error())
	}
	switch env.Type {
	case "top_up":
		return TopUpMsg{Type: "top_up"}, nil
	case "issue":
		var m IssueMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, ErrMalformed(err.Error())
		}
		return m, nil
	default:
		return nil, ErrMalformed("unknown message type: " + env.Type)
	}
}

// ParseAmount parses a decimal-string amount per §6. Negative or
// malformed strings are rejected.
func ParseAmount(s string) (*big.Int, *Error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrMalformed("invalid amount: " + s)
	}
	return v, nil
}
