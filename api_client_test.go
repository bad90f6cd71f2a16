package twap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientFetchOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("chainId"))
		assert.Equal(t, "0x00000000000000000000000000000000000000aa", r.URL.Query().Get("maker"))
		assert.Equal(t, "0xb2bafe188fad927240038cc4fff2d771d8a58905", r.URL.Query().Get("exchange"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","result":[{
			"id": 12,
			"maker": "0x00000000000000000000000000000000000000aa",
			"srcToken": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			"dstToken": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			"srcAmount": 1000000000,
			"srcFilledAmount": 250000000,
			"srcBidAmount": 250000000,
			"dstMinAmount": 100000000000000000,
			"dstFilledAmount": 100000000000000000,
			"createdAt": 1700000000,
			"deadline": 1700086400,
			"fillDelay": 120,
			"txHash": "0xfeed"
		}]}`))
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "secret", ChainIDEthereum, testNetwork().ExchangeAddress, 0)
	orders, err := client.FetchOrders(context.Background(), testAccount)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got := orders[0]
	assert.Equal(t, uint64(12), got.ID)
	assert.Equal(t, "1000000000", got.SrcAmount.String())
	assert.Equal(t, "100000000000000000", got.DstMinAmount.String())
	assert.Equal(t, int64(1_700_086_400), got.Deadline)
	assert.Equal(t, int64(120), got.FillDelaySeconds)
	assert.Equal(t, "0xfeed", got.TxHash)
}

func TestAPIClientHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		temporary bool
	}{
		{http.StatusInternalServerError, "boom", true},
		{http.StatusTooManyRequests, "", true},
		{http.StatusNotFound, "no such maker", false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewAPIClient(srv.URL, "", ChainIDEthereum, "", 0)
			_, err := client.FetchOrders(context.Background(), testAccount)

			var indexerErr *IndexerError
			require.True(t, errors.As(err, &indexerErr))
			assert.Equal(t, tt.status, indexerErr.StatusCode)
			assert.Equal(t, tt.temporary, indexerErr.Temporary())
			assert.NotEmpty(t, indexerErr.Message)
		})
	}
}

func TestAPIClientEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`{"code":400,"msg":"bad maker","result":null}`))
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "", ChainIDEthereum, "", 0)
	_, err := client.FetchOrders(context.Background(), testAccount)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad maker")
}

func TestAPIClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"result":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewAPIClient(srv.URL, "", ChainIDEthereum, "", 5)
	_, err := client.FetchOrders(ctx, testAccount)
	assert.ErrorIs(t, err, context.Canceled)
}
