package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"remate/auction"
	"remate/models"
)

type auctionSummary struct {
	ID       uuid.UUID           `json:"id"`
	Name     string              `json:"name"`
	State    models.AuctionState `json:"state"`
	Type     models.AuctionType  `json:"type"`
	RaceName string              `json:"raceName"`
	Venue    string              `json:"venue"`
	OpensAt  time.Time           `json:"opensAt"`
	ClosesAt time.Time           `json:"closesAt"`
}

func summaryOf(a models.Auction) auctionSummary {
	out := auctionSummary{
		ID:       a.ID,
		Name:     a.Name,
		State:    a.State,
		Type:     a.Type,
		OpensAt:  a.OpensAt,
		ClosesAt: a.ClosesAt,
	}
	if a.Race != nil {
		out.RaceName = a.Race.Name
		out.Venue = a.Race.Venue
	}
	return out
}

// List auctions
// (GET /auctions)
func (impl *ServerImpl) listAuctions(c *gin.Context) {
	var statePtr *models.AuctionState
	if raw, ok := c.GetQuery("state"); ok {
		state := models.AuctionState(raw)
		switch state {
		case models.AuctionOpen, models.AuctionClosed, models.AuctionSettled, models.AuctionCancelled, models.AuctionArchived:
			statePtr = &state
		default:
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("unknown state %q", raw), "reason": "invalid_filter"})
			return
		}
	}
	var typePtr *models.AuctionType
	if raw, ok := c.GetQuery("type"); ok {
		typ := models.AuctionType(raw)
		switch typ {
		case models.AuctionLive, models.AuctionAdvance:
			typePtr = &typ
		default:
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("unknown type %q", raw), "reason": "invalid_filter"})
			return
		}
	}
	auctions, err := impl.store.ListAuctions(c.Request.Context(), statePtr, typePtr)
	if err != nil {
		respondError(c, err)
		return
	}
	// Without an explicit state filter the public list hides terminal
	// auctions.
	if statePtr == nil {
		auctions = lo.Filter(auctions, func(a models.Auction, _ int) bool {
			return !a.Terminal()
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(auctions),
		"items": lo.Map(auctions, func(a models.Auction, _ int) auctionSummary { return summaryOf(a) }),
	})
}

// Get auction details
// (GET /auctions/:auctionID)
func (impl *ServerImpl) getAuction(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	a, err := impl.store.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	rules, err := impl.store.ListRules(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	board, err := impl.auctions.AuctionLeaderboard(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	type ruleOut struct {
		HorseID   *uuid.UUID       `json:"horseId,omitempty"`
		MinPrice  decimal.Decimal  `json:"minPrice"`
		MaxPrice  *decimal.Decimal `json:"maxPrice,omitempty"`
		Increment decimal.Decimal  `json:"increment"`
	}
	c.JSON(http.StatusOK, gin.H{
		"auction":         summaryOf(*a),
		"minIncrement":    a.MinIncrement,
		"minimumBet":      a.MinimumBet,
		"housePercentage": a.HousePercentage,
		"leaderboard":     board,
		"rules": lo.Map(rules, func(r models.PriceRule, _ int) ruleOut {
			return ruleOut{HorseID: r.HorseID, MinPrice: r.MinPrice, MaxPrice: r.MaxPrice, Increment: r.Increment}
		}),
	})
}

// Get one horse's price ladder
// (GET /auctions/:auctionID/ladder/:horseID)
func (impl *ServerImpl) getLadder(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	horseID, ok := pathUUID(c, "horseID")
	if !ok {
		return
	}
	ladder, err := impl.auctions.HorseLadder(c.Request.Context(), auctionID, horseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ladder)
}

// Get the auction leaderboard
// (GET /auctions/:auctionID/leaderboard)
func (impl *ServerImpl) getLeaderboard(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	board, err := impl.auctions.AuctionLeaderboard(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// List the auction's bid history
// (GET /auctions/:auctionID/bids)
func (impl *ServerImpl) listBids(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	bids, err := impl.auctions.History(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	type bidOut struct {
		HorseID  uuid.UUID       `json:"horseId"`
		Bidder   string          `json:"bidder"`
		Amount   decimal.Decimal `json:"amount"`
		Manual   bool            `json:"manual"`
		PlacedAt time.Time       `json:"placedAt"`
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(bids),
		"bids": lo.Map(bids, func(b models.Bid, _ int) bidOut {
			bidder := b.UserID.String()
			if b.User != nil {
				bidder = b.User.Username
			}
			return bidOut{HorseID: b.HorseID, Bidder: bidder, Amount: b.Amount, Manual: b.Manual, PlacedAt: b.CreatedAt}
		}),
	})
}

type placeBidBody struct {
	HorseID uuid.UUID `json:"horseId" binding:"required"`
	Amount  string    `json:"amount"`
	Manual  bool      `json:"manual"`
}

// Place a bid
// (POST /auctions/:auctionID/bids)
func (impl *ServerImpl) placeBid(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	var body placeBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	req := auction.BidRequest{
		AuctionID: auctionID,
		HorseID:   body.HorseID,
		Manual:    body.Manual,
	}
	if body.Manual {
		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid amount", "reason": "invalid_body"})
			return
		}
		req.Amount = amount
	}
	bid, err := impl.auctions.PlaceBid(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       bid.ID,
		"horseId":  bid.HorseID,
		"amount":   bid.Amount,
		"manual":   bid.Manual,
		"placedAt": bid.CreatedAt,
	})
}

// Stream live bid events
// (GET /auctions/:auctionID/events)
func (impl *ServerImpl) streamEvents(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	a, err := impl.store.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if a.State != models.AuctionOpen {
		c.JSON(http.StatusConflict, gin.H{"message": "auction is not open", "reason": "not_open"})
		return
	}
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	ch, err := impl.sseManager.Subscribe(auctionID.String())
	if err != nil {
		respondError(c, err)
		return
	}
	for {
		select {
		case <-w.CloseNotify():
			impl.sseManager.Unsubscribe(auctionID.String(), ch)
			return
		case event := <-ch:
			c.SSEvent("bid", event)
			w.Flush()
		// Keep-alives stop browsers and proxies from dropping idle
		// connections.
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid %s", name), "reason": "invalid_path"})
		return uuid.Nil, false
	}
	return id, true
}
