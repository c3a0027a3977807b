package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remate/auction"
	"remate/funds"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{
			name:       "bid too low",
			err:        fmt.Errorf("bid 85 below minimum 90: %w", auction.ErrBidTooLow),
			wantStatus: http.StatusBadRequest,
			wantReason: "bid_too_low",
		},
		{
			name:       "wrong state",
			err:        auction.ErrWrongState,
			wantStatus: http.StatusConflict,
			wantReason: "wrong_state",
		},
		{
			name:       "auction not found",
			err:        auction.ErrAuctionNotFound,
			wantStatus: http.StatusNotFound,
			wantReason: "auction_not_found",
		},
		{
			name:       "funds insufficient",
			err:        funds.ErrInsufficientFunds,
			wantStatus: http.StatusBadRequest,
			wantReason: "insufficient_funds",
		},
		{
			name:       "house cannot bid",
			err:        auction.ErrHouseCannotBid,
			wantStatus: http.StatusForbidden,
			wantReason: "house_cannot_bid",
		},
		{
			name:       "unknown error stays internal",
			err:        errors.New("database on fire"),
			wantStatus: http.StatusInternalServerError,
			wantReason: "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)
			c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tt.wantReason, body["reason"])
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, body["message"], "database", "internal details must not leak")
			} else {
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}
