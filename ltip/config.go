package ltip

import (
	"encoding/json"
	"os"
)

// Config holds the immutable parameters fixed at construction time. It is
// the LTIP analogue of the teacher's DAOConfig, minus anything that would
// let it change after New: this engine has no governance surface of its
// own, so there is no SetConfig.
type Config struct {
	TokenID         string `json:"token_id"`
	CliffDuration   uint64 `json:"cliff_duration"`   // seconds
	VestingDuration uint64 `json:"vesting_duration"` // seconds, includes the cliff
	OwnerID         string `json:"owner_id"`
}

// Validate checks the invariants spec'd in §3: cliff_duration <= vesting_duration.
func (c Config) Validate() error {
	if c.CliffDuration > c.VestingDuration {
		return NewError(ErrMalformedMessage, "cliff_duration must not exceed vesting_duration", map[string]interface{}{
			"cliff_duration":   c.CliffDuration,
			"vesting_duration": c.VestingDuration,
		})
	}
	if c.TokenID == "" {
		return NewError(ErrMalformedMessage, "token_id is required", nil)
	}
	if c.OwnerID == "" {
		return NewError(ErrMalformedMessage, "owner_id is required", nil)
	}
	return nil
}

// LoadConfig reads a Config from a JSON file at path. Missing fields are
// left at their zero value — callers that layer flag overrides on top
// apply them after LoadConfig returns, not before.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
