package auction

import "errors"

// The service surfaces every expected rejection as one of these sentinels,
// usually wrapped with the concrete numbers the caller needs to correct
// and retry. Anything else is an infrastructure failure.
var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrNotAdmin          = errors.New("administrator role required")
	ErrHouseCannotBid    = errors.New("house accounts cannot bid")
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrHorseNotInAuction = errors.New("horse does not run in this auction")
	ErrNotOpen           = errors.New("auction is not open")
	ErrOutsideWindow     = errors.New("outside the bidding window")
	ErrBidTooLow         = errors.New("bid below the required minimum")
	ErrNoWallet          = errors.New("bidder has no wallet")
	ErrInsufficientFunds = errors.New("insufficient available balance")
	ErrWrongState        = errors.New("transition not allowed from the current state")
	ErrReasonRequired    = errors.New("a reason is required")
	ErrInvalidAuction    = errors.New("invalid auction definition")
	ErrConflict          = errors.New("concurrent modification detected, retry")
)
