package chain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pumpCurve/internal/model"
)

const testAddr = "addr_test1wqpool"

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:      url,
		ProjectID:    "preprodTEST",
		Timeout:      2 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestFetchAddressUTxOsPaginates(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "preprodTEST", r.Header.Get("project_id"))
		require.Equal(t, "/addresses/"+testAddr+"/utxos", r.URL.Path)

		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			items := make([]string, 0, defaultPageSize)
			for i := 0; i < defaultPageSize; i++ {
				items = append(items, fmt.Sprintf(`{"address":%q,"tx_hash":"aa","output_index":%d,"amount":[{"unit":"lovelace","quantity":"1000000"}],"data_hash":null,"inline_datum":null}`, testAddr, i))
			}
			_, _ = io.WriteString(w, "["+strings.Join(items, ",")+"]")
		case "2":
			_, _ = io.WriteString(w, `[{"address":"`+testAddr+`","tx_hash":"bb","output_index":7,"amount":[{"unit":"lovelace","quantity":"5000000"}],"data_hash":"dd","inline_datum":"d87980"}]`)
		default:
			t.Errorf("unexpected page %s", page)
		}
	}))
	defer srv.Close()

	utxos, err := newTestClient(t, srv.URL).FetchAddressUTxOs(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, utxos, defaultPageSize+1)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))

	last := utxos[len(utxos)-1]
	require.Equal(t, model.TxInput{TxHash: "bb", OutputIndex: 7}, last.Input)
	require.Equal(t, "d87980", last.InlineDatum)
	require.Equal(t, "dd", last.DataHash)
}

func TestFetchAddressUTxOsNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status_code":404,"error":"Not Found","message":"The requested component has not been found."}`)
	}))
	defer srv.Close()

	utxos, err := newTestClient(t, srv.URL).FetchAddressUTxOs(context.Background(), testAddr)
	require.NoError(t, err)
	require.Empty(t, utxos)
}

func TestFetchAddressUTxOsRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	utxos, err := newTestClient(t, srv.URL).FetchAddressUTxOs(context.Background(), testAddr)
	require.NoError(t, err)
	require.Empty(t, utxos)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchAddressUTxOsDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"status_code":403,"error":"Forbidden","message":"Invalid project token."}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).FetchAddressUTxOs(context.Background(), testAddr)
	require.ErrorIs(t, err, model.ErrProviderError)
	require.Contains(t, err.Error(), "Invalid project token.")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmitTx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tx/submit", r.URL.Path)
		require.Equal(t, "application/cbor", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, []byte{0x84, 0xa0}, body)
		_, _ = io.WriteString(w, `"abcdef"`)
	}))
	defer srv.Close()

	hash, err := newTestClient(t, srv.URL).SubmitTx(context.Background(), []byte{0x84, 0xa0})
	require.NoError(t, err)
	require.Equal(t, "abcdef", hash)
}

func TestSubmitTxRejected(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status_code":400,"error":"Bad Request","message":"ValueNotConservedUTxO"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).SubmitTx(context.Background(), []byte{0x00})
	require.ErrorIs(t, err, model.ErrLedgerRejected)
	require.Contains(t, err.Error(), "ValueNotConservedUTxO")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLatestBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/blocks/latest", r.URL.Path)
		_, _ = io.WriteString(w, `{"hash":"ff","height":42,"slot":1000,"time":1700000000}`)
	}))
	defer srv.Close()

	tip, err := newTestClient(t, srv.URL).LatestBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), tip.Height)
	require.Equal(t, uint64(1000), tip.Slot)
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
}
