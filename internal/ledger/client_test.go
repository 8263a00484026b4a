package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerServer(t *testing.T, status int, body string, seen *transferRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfer", r.URL.Path)
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_TransferOk(t *testing.T) {
	var seen transferRequest
	srv := newLedgerServer(t, http.StatusOK, `{"Ok": 42}`, &seen)
	to := NewAccountIdentifier([]byte("alice"), nil)

	index, err := NewClient(srv.URL, time.Second).Transfer(context.Background(), TransferArgs{
		To:     to,
		Amount: 100_000_000,
		Fee:    DefaultFee,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), index)
	assert.Equal(t, to.String(), seen.To)
	assert.Equal(t, uint64(100_000_000), seen.Amount.E8s)
	assert.Equal(t, DefaultFee, seen.Fee.E8s)
	assert.Nil(t, seen.FromSubaccount)
	assert.Nil(t, seen.CreatedAtTime)
}

func TestClient_TransferRejected(t *testing.T) {
	srv := newLedgerServer(t, http.StatusOK, `{"Err": {"InsufficientFunds": {"balance": {"e8s": 5}}}}`, nil)

	_, err := NewClient(srv.URL, time.Second).Transfer(context.Background(), TransferArgs{Amount: 10})
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "InsufficientFunds", rejected.Kind)
	assert.Contains(t, rejected.Error(), "0.00000005 Token")
}

func TestClient_TransferRejectedUnitVariant(t *testing.T) {
	srv := newLedgerServer(t, http.StatusOK, `{"Err": {"TxCreatedInFuture": null}}`, nil)

	_, err := NewClient(srv.URL, time.Second).Transfer(context.Background(), TransferArgs{Amount: 10})
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "TxCreatedInFuture", rejected.Kind)
}

func TestClient_TransferHTTPFailure(t *testing.T) {
	srv := newLedgerServer(t, http.StatusServiceUnavailable, "ledger down\n", nil)

	_, err := NewClient(srv.URL, time.Second).Transfer(context.Background(), TransferArgs{Amount: 10})
	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, http.StatusServiceUnavailable, callErr.Code)
	assert.Equal(t, "ledger down", callErr.Message)
}

func TestClient_TransferUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Transfer(context.Background(), TransferArgs{Amount: 10})
	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, 0, callErr.Code)
}
