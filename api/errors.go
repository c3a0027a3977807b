package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"remate/auction"
	"remate/funds"
	"remate/store"
)

// rejection binds a service sentinel to its HTTP status and the reason
// class clients branch on.
type rejection struct {
	status int
	reason string
}

var rejections = []struct {
	err error
	rejection
}{
	{auction.ErrUnauthenticated, rejection{http.StatusUnauthorized, "unauthenticated"}},
	{funds.ErrUnauthenticated, rejection{http.StatusUnauthorized, "unauthenticated"}},
	{auction.ErrNotAdmin, rejection{http.StatusForbidden, "not_admin"}},
	{funds.ErrNotAdmin, rejection{http.StatusForbidden, "not_admin"}},
	{funds.ErrNotSuperAdmin, rejection{http.StatusForbidden, "not_super_admin"}},
	{auction.ErrHouseCannotBid, rejection{http.StatusForbidden, "house_cannot_bid"}},
	{funds.ErrNotOwner, rejection{http.StatusForbidden, "not_owner"}},
	{auction.ErrAuctionNotFound, rejection{http.StatusNotFound, "auction_not_found"}},
	{auction.ErrHorseNotInAuction, rejection{http.StatusNotFound, "horse_not_in_auction"}},
	{funds.ErrRequestNotFound, rejection{http.StatusNotFound, "request_not_found"}},
	{store.ErrNotFound, rejection{http.StatusNotFound, "not_found"}},
	{auction.ErrNotOpen, rejection{http.StatusConflict, "not_open"}},
	{auction.ErrOutsideWindow, rejection{http.StatusConflict, "outside_window"}},
	{auction.ErrWrongState, rejection{http.StatusConflict, "wrong_state"}},
	{funds.ErrAlreadyDecided, rejection{http.StatusConflict, "already_decided"}},
	{auction.ErrConflict, rejection{http.StatusConflict, "conflict"}},
	{funds.ErrConflict, rejection{http.StatusConflict, "conflict"}},
	{auction.ErrBidTooLow, rejection{http.StatusBadRequest, "bid_too_low"}},
	{auction.ErrInvalidAuction, rejection{http.StatusBadRequest, "invalid_auction"}},
	{auction.ErrReasonRequired, rejection{http.StatusBadRequest, "reason_required"}},
	{funds.ErrReasonRequired, rejection{http.StatusBadRequest, "reason_required"}},
	{funds.ErrInvalidRequest, rejection{http.StatusBadRequest, "invalid_request"}},
	{auction.ErrNoWallet, rejection{http.StatusBadRequest, "no_wallet"}},
	{auction.ErrInsufficientFunds, rejection{http.StatusBadRequest, "insufficient_funds"}},
	{funds.ErrInsufficientFunds, rejection{http.StatusBadRequest, "insufficient_funds"}},
}

// respondError renders a service error as the JSON rejection body. Errors
// outside the taxonomy are infrastructure failures: logged, 500, no
// details leaked.
func respondError(c *gin.Context, err error) {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			c.JSON(r.status, gin.H{"message": err.Error(), "reason": r.reason})
			return
		}
	}
	slog.Error("Unhandled error", slog.String("path", c.FullPath()), slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error", "reason": "internal"})
}
