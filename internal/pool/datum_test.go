package pool

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/stretchr/testify/require"

	"pumpCurve/internal/model"
)

const (
	testPolicy  = "4a1b6c3d2e1f00112233445566778899aabbccddeeff001122334455"
	testCreator = "0f0e0d0c0b0a09080706050403020100ffeeddccbbaa998877665544"
)

func sampleDatum(supply int64) model.PoolDatum {
	d := InitialDatum(testPolicy, "PUMP", big.NewInt(1_000_000), testCreator)
	d.CurrentSupply = big.NewInt(supply)
	return d
}

func TestDatumRoundTrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("340282366920938463463374607431768211457", 10)
	require.True(t, ok)

	cases := []model.PoolDatum{
		sampleDatum(0),
		sampleDatum(1_000),
		{
			TokenPolicy:   testPolicy,
			TokenName:     "a much longer token name",
			Slope:         huge,
			CurrentSupply: huge,
			Creator:       testCreator,
		},
	}
	for _, d := range cases {
		raw, err := EncodeDatum(d)
		require.NoError(t, err)

		got, err := ParseDatum(raw)
		require.NoError(t, err)
		require.True(t, d.Equal(got), "want %+v got %+v", d, got)

		fromHex, err := ParseDatumHex(hex.EncodeToString(raw))
		require.NoError(t, err)
		require.True(t, d.Equal(fromHex))
	}
}

func TestEncodeDatumShape(t *testing.T) {
	raw, err := EncodeDatum(sampleDatum(42))
	require.NoError(t, err)

	var constr cbor.Constructor
	_, err = cbor.Decode(raw, &constr)
	require.NoError(t, err)
	require.Equal(t, uint(0), constr.Constructor())
	require.Len(t, constr.Fields(), 5)
}

func TestParseDatumRejectsWrongConstructor(t *testing.T) {
	constr := cbor.NewConstructor(1, []any{
		[]byte{0x01}, []byte("PUMP"), big.NewInt(1), big.NewInt(0), []byte{0x02},
	})
	raw, err := cbor.Encode(&constr)
	require.NoError(t, err)

	_, err = ParseDatum(raw)
	require.ErrorIs(t, err, model.ErrMalformedDatum)
}

func TestParseDatumRejectsWrongFieldCount(t *testing.T) {
	constr := cbor.NewConstructor(0, []any{
		[]byte{0x01}, []byte("PUMP"), big.NewInt(1), big.NewInt(0),
	})
	raw, err := cbor.Encode(&constr)
	require.NoError(t, err)

	_, err = ParseDatum(raw)
	require.ErrorIs(t, err, model.ErrMalformedDatum)
}

func TestParseDatumRejectsSwappedFields(t *testing.T) {
	constr := cbor.NewConstructor(0, []any{
		[]byte{0x01}, big.NewInt(1), []byte("PUMP"), big.NewInt(0), []byte{0x02},
	})
	raw, err := cbor.Encode(&constr)
	require.NoError(t, err)

	_, err = ParseDatum(raw)
	require.ErrorIs(t, err, model.ErrMalformedDatum)
}

func TestParseDatumRejectsNegativeSupply(t *testing.T) {
	constr := cbor.NewConstructor(0, []any{
		[]byte{0x01}, []byte("PUMP"), big.NewInt(1), big.NewInt(-5), []byte{0x02},
	})
	raw, err := cbor.Encode(&constr)
	require.NoError(t, err)

	_, err = ParseDatum(raw)
	require.ErrorIs(t, err, model.ErrMalformedDatum)
}

func TestParseDatumRejectsGarbage(t *testing.T) {
	_, err := ParseDatum(nil)
	require.ErrorIs(t, err, model.ErrMalformedDatum)

	_, err = ParseDatumHex("zz")
	require.ErrorIs(t, err, model.ErrMalformedDatum)

	_, err = ParseDatum([]byte{0x01})
	require.ErrorIs(t, err, model.ErrMalformedDatum)
}

func TestDeriveNextRoundTrip(t *testing.T) {
	for _, supply := range []int64{0, 1, 500, 1_000_000} {
		d := sampleDatum(supply)
		for _, delta := range []int64{0, 1, 250, 1_000} {
			bought, err := DeriveNext(d, big.NewInt(delta), model.TradeBuy)
			require.NoError(t, err)
			sold, err := DeriveNext(bought, big.NewInt(delta), model.TradeSell)
			require.NoError(t, err)
			require.True(t, d.Equal(sold))
		}
	}
}

func TestDeriveNextDoesNotMutate(t *testing.T) {
	d := sampleDatum(10)
	next, err := DeriveNext(d, big.NewInt(5), model.TradeBuy)
	require.NoError(t, err)
	require.Equal(t, int64(15), next.CurrentSupply.Int64())
	require.Equal(t, int64(10), d.CurrentSupply.Int64())
}

func TestDeriveNextSellBoundary(t *testing.T) {
	d := sampleDatum(1_000)

	empty, err := DeriveNext(d, big.NewInt(1_000), model.TradeSell)
	require.NoError(t, err)
	require.Zero(t, empty.CurrentSupply.Sign())

	_, err = DeriveNext(d, big.NewInt(1_001), model.TradeSell)
	require.ErrorIs(t, err, model.ErrInsufficientSupply)
}

func TestDeriveNextSellScenario(t *testing.T) {
	next, err := DeriveNext(sampleDatum(1_000), big.NewInt(500), model.TradeSell)
	require.NoError(t, err)
	require.Equal(t, int64(500), next.CurrentSupply.Int64())
}
