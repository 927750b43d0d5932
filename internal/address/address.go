// Package address converts between bech32 Shelley addresses and the raw
// header/credential bytes the pool scripts care about.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Network selects the address header nibble and bech32 prefix.
type Network string

const (
	Preprod Network = "preprod"
	Preview Network = "preview"
	Mainnet Network = "mainnet"
)

const (
	hrpMainnet = "addr"
	hrpTestnet = "addr_test"

	credentialLen = 28

	// Enterprise address whose payment part is a script hash.
	headerEnterpriseScript = 0x70
)

var (
	ErrIncorrectHrp      = errors.New("address prefix does not match network")
	ErrNoKeyCredential   = errors.New("address payment part is not a key hash")
	ErrMalformedAddress  = errors.New("malformed address")
	ErrUnsupportedFormat = errors.New("unsupported address format")
)

func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case Preprod:
		return Preprod, nil
	case Preview:
		return Preview, nil
	case Mainnet:
		return Mainnet, nil
	default:
		return "", fmt.Errorf("unknown network %q (want preprod, preview or mainnet)", s)
	}
}

// ID is the network id carried in the low nibble of the address header.
func (n Network) ID() byte {
	if n == Mainnet {
		return 1
	}
	return 0
}

// HRP is the bech32 human-readable prefix for the network.
func (n Network) HRP() string {
	if n == Mainnet {
		return hrpMainnet
	}
	return hrpTestnet
}

// Decode returns the human-readable prefix and raw address bytes.
func Decode(addr string) (string, []byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.TrimSpace(addr))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	if len(raw) < 1+credentialLen {
		return "", nil, fmt.Errorf("%w: %d bytes", ErrMalformedAddress, len(raw))
	}
	return hrp, raw, nil
}

// Encode renders raw address bytes under hrp.
func Encode(hrp string, raw []byte) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

// PaymentKeyHash returns the hex payment key hash of a base, pointer or
// enterprise address. Script-locked payment parts are rejected.
func PaymentKeyHash(addr string) (string, error) {
	hrp, raw, err := Decode(addr)
	if err != nil {
		return "", err
	}
	if hrp != hrpMainnet && hrp != hrpTestnet {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, hrp)
	}
	kind := raw[0] >> 4
	switch kind {
	case 0x0, 0x4, 0x6:
		// base (key, key), pointer (key), enterprise (key)
	case 0x2:
		// base (key, script)
	case 0x1, 0x3, 0x5, 0x7:
		return "", ErrNoKeyCredential
	default:
		return "", fmt.Errorf("%w: header type %d", ErrUnsupportedFormat, kind)
	}
	return hex.EncodeToString(raw[1 : 1+credentialLen]), nil
}

// EnterpriseScriptAddress builds the address locking outputs to scriptHash
// with no stake part.
func EnterpriseScriptAddress(network Network, scriptHash []byte) (string, error) {
	if len(scriptHash) != credentialLen {
		return "", fmt.Errorf("script hash must be %d bytes, got %d", credentialLen, len(scriptHash))
	}
	raw := make([]byte, 0, 1+credentialLen)
	raw = append(raw, headerEnterpriseScript|network.ID())
	raw = append(raw, scriptHash...)
	return Encode(network.HRP(), raw)
}

// CheckNetwork verifies addr carries the prefix expected for network.
func CheckNetwork(network Network, addr string) error {
	hrp, _, err := Decode(addr)
	if err != nil {
		return err
	}
	if hrp != network.HRP() {
		return fmt.Errorf("%w: %s on %s", ErrIncorrectHrp, hrp, network)
	}
	return nil
}
