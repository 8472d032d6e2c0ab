package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paystream-io/paystream/pkg/history"
	"github.com/paystream-io/paystream/pkg/ledger"
)

type fakeIndexer struct {
	hist  history.History
	owner *common.Address
	err   error
}

func (f *fakeIndexer) History(_ context.Context, owner *common.Address) (history.History, error) {
	f.owner = owner
	return f.hist, f.err
}

type fakeSnapshots struct {
	payments map[uint64]ledger.PaymentSnapshot
	head     uint64
	headErr  error
}

func (f *fakeSnapshots) Payment(_ context.Context, id uint64) (ledger.PaymentSnapshot, error) {
	snap, ok := f.payments[id]
	if !ok {
		return ledger.PaymentSnapshot{}, errors.New("no such payment")
	}
	return snap, nil
}

func (f *fakeSnapshots) Head(context.Context) (uint64, error) {
	return f.head, f.headErr
}

func newTestRouter(idx indexer, snaps snapshots) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(zap.NewNop(), idx, snaps).Register(router)
	return router
}

func TestHistoryEndpoint(t *testing.T) {
	idx := &fakeIndexer{hist: history.History{
		Aggregates: []history.Aggregate{{
			PaymentID: 7,
			Amount:    big.NewInt(100),
			TotalPaid: new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18)),
			Status:    history.StatusActive,
		}},
	}}
	router := newTestRouter(idx, &fakeSnapshots{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Aggregates, 1)
	require.Equal(t, "3000000000000000000", resp.Aggregates[0].TotalPaid)
	require.Equal(t, "3", resp.Aggregates[0].TotalPaidUnits)
	require.Nil(t, idx.owner)
}

func TestHistoryEndpointOwnerFilter(t *testing.T) {
	idx := &fakeIndexer{}
	router := newTestRouter(idx, &fakeSnapshots{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history?owner=0x000000000000000000000000000000000000000A", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, idx.owner)
	require.Equal(t, common.HexToAddress("0x000000000000000000000000000000000000000A"), *idx.owner)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history?owner=junk", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentEndpoint(t *testing.T) {
	snaps := &fakeSnapshots{payments: map[uint64]ledger.PaymentSnapshot{
		3: {
			ID:            3,
			Amount:        big.NewInt(100),
			Active:        true,
			Description:   "rent",
			NativeBalance: big.NewInt(900),
			TokenBalance:  big.NewInt(0),
		},
	}}
	router := newTestRouter(&fakeIndexer{}, snaps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/payments/3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint64(3), resp.PaymentID)
	require.Equal(t, "rent", resp.Description)
	require.True(t, resp.Active)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/payments/nope", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeIndexer{}, &fakeSnapshots{head: 123})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	router = newTestRouter(&fakeIndexer{}, &fakeSnapshots{headErr: errors.New("connection refused")})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
