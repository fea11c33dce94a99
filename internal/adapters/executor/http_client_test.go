package executor

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() domain.ExecutionRequest {
	return domain.ExecutionRequest{
		ActionID:             uuid.New(),
		OrganizerID:          uuid.New(),
		Amount:               decimal.RequireFromString("20000"),
		Currency:             "NGN",
		DestinationAccountID: uuid.New(),
		PaymentMethod:        "bank_transfer",
	}
}

func TestHTTPClient_Execute(t *testing.T) {
	req := testRequest()
	var got executeRequest
	var idem string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payouts", r.URL.Path)
		idem = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(executeResponse{Success: true, Reference: "PAY-1"})
	}))
	defer srv.Close()

	nopLogger := zerolog.Nop()
	c := NewHTTPClient(srv.URL+"/", time.Second, &nopLogger)
	res, err := c.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "PAY-1", res.Reference)
	assert.Equal(t, req.ActionID.String(), idem)
	assert.Equal(t, "20000.00", got.Amount)
	assert.Equal(t, req.DestinationAccountID.String(), got.DestinationAccountID)
}

func TestHTTPClient_Execute_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
		wantRes domain.ExecutionResult
	}{
		{
			name: "reported failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(executeResponse{Success: false, Error: "insufficient float"})
			},
			wantRes: domain.ExecutionResult{Success: false, Error: "insufficient float"},
		},
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bank offline", http.StatusBadGateway)
			},
			wantErr: "status 502: bank offline",
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			wantErr: "decode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			nopLogger := zerolog.Nop()
			res, err := NewHTTPClient(srv.URL, time.Second, &nopLogger).Execute(context.Background(), testRequest())
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tc.wantErr), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantRes, res)
		})
	}
}

func TestHTTPClient_NotConfigured(t *testing.T) {
	nopLogger := zerolog.Nop()
	_, err := NewHTTPClient("", time.Second, &nopLogger).Execute(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestSimulated_UniqueReferences(t *testing.T) {
	nopLogger := zerolog.Nop()
	s := NewSimulated(&nopLogger)
	a, err := s.Execute(context.Background(), testRequest())
	require.NoError(t, err)
	b, err := s.Execute(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, a.Success)
	assert.True(t, strings.HasPrefix(a.Reference, "SIM-"))
	assert.NotEqual(t, a.Reference, b.Reference)
}
