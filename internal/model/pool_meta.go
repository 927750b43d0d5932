package model

import (
	"math/big"
	"time"
)

// PoolState pairs the unique pool output with its parsed datum and the
// display-only quantities derived from it.
type PoolState struct {
	Config          PoolConfig `json:"config"`
	UTxO            UTxO       `json:"utxo"`
	Datum           PoolDatum  `json:"datum"`
	ReserveLovelace *big.Int   `json:"reserve_lovelace"`
	TokenBalance    *big.Int   `json:"token_balance"`
	TotalMinted     *big.Int   `json:"total_minted"`
	ExpectedReserve *big.Int   `json:"expected_reserve"`
	Price           *big.Int   `json:"price"`
	MarketCap       *big.Int   `json:"market_cap"`
	FetchedAt       time.Time  `json:"fetched_at"`
}
