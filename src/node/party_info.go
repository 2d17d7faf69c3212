package node

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
)

const partyInfoFile = "party.json"

// PartyInfo is what a node must know of its party before replaying its feed.
type PartyInfo struct {
	PartyKey       keys.PublicKey    `json:"partyKey"`
	GenesisFeedKey keys.PublicKey    `json:"genesisFeedKey,omitempty"`
	Hints          []message.KeyHint `json:"hints,omitempty"`
}

func readPartyInfo(dir string) (*PartyInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, partyInfoFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info := new(PartyInfo)
	if err := json.Unmarshal(data, info); err != nil {
		return nil, err
	}
	return info, nil
}

func writePartyInfo(dir string, info *PartyInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, partyInfoFile), data, 0600)
}
