// Package blueprint loads a CIP-57 plutus.json, applies the one-shot output
// reference to the pool validators and derives their content-addressed ids.
package blueprint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/blinklabs-io/gouroboros/cbor"
	"golang.org/x/crypto/blake2b"

	"pumpCurve/internal/model"
)

// Validator titles of the pool contract.
const (
	MintTitle  = "pump.pump.mint"
	SpendTitle = "pump.pump.spend"
)

// PlutusV3 is the only language version the pool validators are compiled for.
const PlutusV3 = "V3"

const scriptHashSize = 28

// Ledger language tag prefixed to script bytes before hashing.
var languageTags = map[string]byte{
	"V1": 0x01,
	"V2": 0x02,
	"V3": 0x03,
}

type Preamble struct {
	Title         string `json:"title"`
	Version       string `json:"version"`
	PlutusVersion string `json:"plutusVersion"`
	Compiler      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"compiler"`
}

type Parameter struct {
	Title  string          `json:"title"`
	Schema json.RawMessage `json:"schema"`
}

type Validator struct {
	Title        string      `json:"title"`
	CompiledCode string      `json:"compiledCode"`
	Hash         string      `json:"hash"`
	Parameters   []Parameter `json:"parameters,omitempty"`
}

type Blueprint struct {
	Preamble   Preamble    `json:"preamble"`
	Validators []Validator `json:"validators"`
}

// Load reads and parses a plutus.json file.
func Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint: %w", err)
	}
	bp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("blueprint %s: %w", path, err)
	}
	return bp, nil
}

func Parse(data []byte) (*Blueprint, error) {
	var bp Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	if len(bp.Validators) == 0 {
		return nil, fmt.Errorf("blueprint has no validators")
	}
	return &bp, nil
}

// LanguageVersion maps the preamble's plutusVersion to the ledger name.
func (b *Blueprint) LanguageVersion() string {
	v := strings.ToUpper(strings.TrimSpace(b.Preamble.PlutusVersion))
	if v == "" {
		return PlutusV3
	}
	return v
}

// Validator returns the validator with the given title.
func (b *Blueprint) Validator(title string) (Validator, error) {
	for _, v := range b.Validators {
		if v.Title == title {
			return v, nil
		}
	}
	return Validator{}, fmt.Errorf("%s validator not found", title)
}

// UnwrapScript strips CBOR bytestring layers until the flat program remains.
func UnwrapScript(code []byte) ([]byte, error) {
	cur := code
	for depth := 0; depth < 2; depth++ {
		var inner []byte
		n, err := cbor.Decode(cur, &inner)
		if err != nil || n != len(cur) {
			if depth == 0 {
				return nil, fmt.Errorf("script is not a cbor bytestring")
			}
			return cur, nil
		}
		cur = inner
	}
	return cur, nil
}

// WrapScript encodes a flat program as the single CBOR bytestring carried in
// witness sets.
func WrapScript(flat []byte) ([]byte, error) {
	out, err := cbor.Encode(flat)
	if err != nil {
		return nil, fmt.Errorf("wrap script: %w", err)
	}
	return out, nil
}

// ApplyParams applies each CBOR-encoded Plutus data argument, in order, to the
// compiled validator and returns the re-wrapped script.
func ApplyParams(compiledCode []byte, params ...[]byte) ([]byte, error) {
	flat, err := UnwrapScript(compiledCode)
	if err != nil {
		return nil, err
	}
	prog, err := decodeProgram(flat)
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		prog.body = applyTerm{fn: prog.body, arg: dataConst(p)}
	}
	applied, err := encodeProgram(prog)
	if err != nil {
		return nil, err
	}
	return WrapScript(applied)
}

// OutputRefParams encodes an output reference as the two validator
// parameters: the transaction hash as bytes and the output index as an integer.
func OutputRefParams(ref model.TxInput) ([][]byte, error) {
	hash, err := hex.DecodeString(ref.TxHash)
	if err != nil {
		return nil, fmt.Errorf("utxo tx hash: %w", err)
	}
	hashData, err := cbor.Encode(hash)
	if err != nil {
		return nil, err
	}
	indexData, err := cbor.Encode(uint64(ref.OutputIndex))
	if err != nil {
		return nil, err
	}
	return [][]byte{hashData, indexData}, nil
}

// ScriptHash is blake2b-224 over the language tag and the wrapped script.
func ScriptHash(script model.PlutusScript) ([]byte, error) {
	tag, ok := languageTags[strings.ToUpper(script.Version)]
	if !ok {
		return nil, fmt.Errorf("unsupported plutus version %q", script.Version)
	}
	h, err := blake2b.New(scriptHashSize, nil)
	if err != nil {
		return nil, err
	}
	h.Write([]byte{tag})
	h.Write(script.Code)
	return h.Sum(nil), nil
}

// PolicyID is the hex script hash of a minting script.
func PolicyID(script model.PlutusScript) (string, error) {
	hash, err := ScriptHash(script)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hash), nil
}
