package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EpicNFTABI covers the parts of the collection contract the client uses.
const EpicNFTABI = `[
	{"inputs":[],"name":"makeAnEpicNFT","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[
		{"indexed":false,"internalType":"address","name":"sender","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"tokenId","type":"uint256"}
	],"name":"NewEpicNFTMinted","type":"event"}
]`

// LoadABI parses the ABI from file, falling back to EpicNFTABI when file is empty.
// Hardhat/truffle artifacts ({"abi": [...]}) are accepted as well as bare ABI arrays.
func LoadABI(file string) (abi.ABI, error) {
	if file == "" {
		return abi.JSON(strings.NewReader(EpicNFTABI))
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read abi file: %w", err)
	}
	body := strings.TrimSpace(string(raw))
	if strings.HasPrefix(body, "{") {
		body, err = artifactABI(raw)
		if err != nil {
			return abi.ABI{}, err
		}
	}

	parsed, err := abi.JSON(strings.NewReader(body))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi %s: %w", file, err)
	}
	return parsed, nil
}

func artifactABI(raw []byte) (string, error) {
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return "", fmt.Errorf("parse contract artifact: %w", err)
	}
	if len(artifact.ABI) == 0 {
		return "", errors.New("contract artifact has no abi field")
	}
	return string(artifact.ABI), nil
}
