// Package audit anchors terminate events off-chain, the LTIP analogue of
// the teacher's IPFSClient/ProposalMetadata pattern (dao/ipfs.go): a JSON
// document gets a checksum, gets pinned to IPFS, and the returned content
// hash is what the caller keeps as the durable reference, since the engine
// itself only needs to retain a pointer-sized string, not the full record.
package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// TerminateRecord is the durable record of one terminate() call: the
// numbers the dispatcher computed, not the full grant, since the grant
// itself still lives in the registry.
type TerminateRecord struct {
	AccountID    string `json:"account_id"`
	IssuedAt     uint64 `json:"issued_at"`
	Timestamp    uint64 `json:"timestamp"`
	PriorTotal   string `json:"prior_total"`
	NewTotal     string `json:"new_total"`
	Released     string `json:"released"`
	TerminatedBy string `json:"terminated_by"`
	RecordedAt   int64  `json:"recorded_at"`
	Checksum     string `json:"checksum"`
}

// Anchor wraps an IPFS shell client with the checksum-and-pin discipline
// the engine needs around audit records. A nil *Anchor is valid: Record
// is a no-op and Fetch returns an error, so deployments that don't care about off-chain
// anchoring (most tests, and cmd/ltip-server run without -ipfs) never have
// to special-case a missing IPFS node.
type Anchor struct {
	shell   *shell.Shell
	timeout time.Duration
}

// NewAnchor constructs an Anchor against the IPFS HTTP API at nodeURL.
// Connectivity isn't checked here: the first Record call will surface it.
func NewAnchor(nodeURL string) *Anchor {
	if nodeURL == "" {
		nodeURL = "localhost:5001"
	}
	return &Anchor{shell: shell.NewShell(nodeURL), timeout: 30 * time.Second}
}

// Record checksums, uploads, and pins a TerminateRecord, returning the
// resulting IPFS content hash. A nil receiver returns an empty hash and no
// error: anchoring is observability, never a precondition for terminate
// itself succeeding.
func (a *Anchor) Record(rec TerminateRecord) (string, error) {
	if a == nil {
		return "", nil
	}

	rec.RecordedAt = time.Now().Unix()
	rec.Checksum = ""
	jsonData, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("audit: marshal record: %w", err)
	}

	sum := sha256.Sum256(jsonData)
	rec.Checksum = hex.EncodeToString(sum[:])

	jsonData, err = json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("audit: marshal record with checksum: %w", err)
	}

	hash, err := a.shell.Add(bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("audit: upload to ipfs: %w", err)
	}
	if err := a.shell.Pin(hash); err != nil {
		return "", fmt.Errorf("audit: pin: %w", err)
	}
	return hash, nil
}

// Fetch retrieves and checksum-verifies a previously anchored record.
func (a *Anchor) Fetch(hash string) (*TerminateRecord, error) {
	if a == nil {
		return nil, fmt.Errorf("audit: anchor not configured")
	}

	reader, err := a.shell.Cat(hash)
	if err != nil {
		return nil, fmt.Errorf("audit: retrieve from ipfs: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("audit: read: %w", err)
	}

	var rec TerminateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("audit: unmarshal: %w", err)
	}

	want := rec.Checksum
	rec.Checksum = ""
	recomputed, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("audit: re-marshal for checksum: %w", err)
	}
	sum := sha256.Sum256(recomputed)
	got := hex.EncodeToString(sum[:])
	rec.Checksum = want
	if got != want {
		return nil, fmt.Errorf("audit: checksum mismatch: record may have been tampered with")
	}
	return &rec, nil
}
