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

type horseBody struct {
	Number        int    `json:"number" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Jockey        string `json:"jockey"`
	Trainer       string `json:"trainer"`
	Comments      string `json:"comments"`
	StartingPrice string `json:"startingPrice"`
}

type ruleBody struct {
	HorseNumber *int    `json:"horseNumber"`
	MinPrice    string  `json:"minPrice"`
	MaxPrice    *string `json:"maxPrice"`
	Increment   string  `json:"increment" binding:"required"`
}

type createAuctionBody struct {
	Name            string      `json:"name" binding:"required"`
	Type            string      `json:"type"`
	RaceName        string      `json:"raceName" binding:"required"`
	Venue           string      `json:"venue"`
	RaceNumber      int         `json:"raceNumber"`
	ScheduledAt     time.Time   `json:"scheduledAt" binding:"required"`
	MinIncrement    string      `json:"minIncrement" binding:"required"`
	MinimumBet      string      `json:"minimumBet" binding:"required"`
	HousePercentage string      `json:"housePercentage" binding:"required"`
	OpensAt         time.Time   `json:"opensAt" binding:"required"`
	ClosesAt        time.Time   `json:"closesAt" binding:"required"`
	Horses          []horseBody `json:"horses" binding:"required"`
	Rules           []ruleBody  `json:"rules"`
}

// Create an auction with its race, field and price rules
// (POST /admin/auctions)
func (impl *ServerImpl) createAuction(c *gin.Context) {
	var body createAuctionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	req := auction.CreateAuctionRequest{
		Name:        impl.htmlChecker.Sanitize(body.Name),
		Type:        models.AuctionType(body.Type),
		RaceName:    impl.htmlChecker.Sanitize(body.RaceName),
		Venue:       impl.htmlChecker.Sanitize(body.Venue),
		RaceNumber:  body.RaceNumber,
		ScheduledAt: body.ScheduledAt,
		OpensAt:     body.OpensAt,
		ClosesAt:    body.ClosesAt,
	}
	var ok bool
	if req.MinIncrement, ok = parseAmount(c, body.MinIncrement); !ok {
		return
	}
	if req.MinimumBet, ok = parseAmount(c, body.MinimumBet); !ok {
		return
	}
	if req.HousePercentage, ok = parseAmount(c, body.HousePercentage); !ok {
		return
	}
	for _, h := range body.Horses {
		price, ok := parseAmount(c, h.StartingPrice)
		if !ok {
			return
		}
		req.Horses = append(req.Horses, auction.HorseInput{
			Number:        h.Number,
			Name:          impl.htmlChecker.Sanitize(h.Name),
			Jockey:        impl.htmlChecker.Sanitize(h.Jockey),
			Trainer:       impl.htmlChecker.Sanitize(h.Trainer),
			Comments:      impl.htmlChecker.Sanitize(h.Comments),
			StartingPrice: price,
		})
	}
	rules, ok := parseRules(c, body.Rules)
	if !ok {
		return
	}
	req.Rules = rules
	created, err := impl.auctions.CreateAuction(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", "/auctions/"+created.ID.String())
	c.JSON(http.StatusCreated, gin.H{"id": created.ID})
}

type updateAuctionBody struct {
	Name            *string    `json:"name"`
	Type            *string    `json:"type"`
	MinIncrement    *string    `json:"minIncrement"`
	MinimumBet      *string    `json:"minimumBet"`
	HousePercentage *string    `json:"housePercentage"`
	OpensAt         *time.Time `json:"opensAt"`
	ClosesAt        *time.Time `json:"closesAt"`
	Rules           []ruleBody `json:"rules"`
}

// Edit an auction
// (PATCH /admin/auctions/:auctionID)
func (impl *ServerImpl) updateAuction(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	var body updateAuctionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	req := auction.UpdateAuctionRequest{
		OpensAt:  body.OpensAt,
		ClosesAt: body.ClosesAt,
	}
	if body.Name != nil {
		req.Name = lo.ToPtr(impl.htmlChecker.Sanitize(*body.Name))
	}
	if body.Type != nil {
		req.Type = lo.ToPtr(models.AuctionType(*body.Type))
	}
	if body.MinIncrement != nil {
		amount, ok := parseAmount(c, *body.MinIncrement)
		if !ok {
			return
		}
		req.MinIncrement = &amount
	}
	if body.MinimumBet != nil {
		amount, ok := parseAmount(c, *body.MinimumBet)
		if !ok {
			return
		}
		req.MinimumBet = &amount
	}
	if body.HousePercentage != nil {
		amount, ok := parseAmount(c, *body.HousePercentage)
		if !ok {
			return
		}
		req.HousePercentage = &amount
	}
	if body.Rules != nil {
		rules, ok := parseRules(c, body.Rules)
		if !ok {
			return
		}
		req.Rules = rules
	}
	updated, err := impl.auctions.UpdateAuction(c.Request.Context(), callerFrom(c), auctionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryOf(*updated))
}

// Close an auction
// (POST /admin/auctions/:auctionID/close)
func (impl *ServerImpl) closeAuction(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	if err := impl.auctions.CloseAuction(c.Request.Context(), callerFrom(c), auctionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": models.AuctionClosed})
}

type reasonBody struct {
	Reason string `json:"reason"`
}

// Cancel an auction, releasing every locked stake
// (POST /admin/auctions/:auctionID/cancel)
func (impl *ServerImpl) cancelAuction(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	reason := impl.htmlChecker.Sanitize(body.Reason)
	if err := impl.auctions.CancelAuction(c.Request.Context(), callerFrom(c), auctionID, reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": models.AuctionCancelled})
}

type settleBody struct {
	WinningHorseID uuid.UUID `json:"winningHorseId" binding:"required"`
}

// Settle an auction with the race result
// (POST /admin/auctions/:auctionID/settle)
func (impl *ServerImpl) settleAuction(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	var body settleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	settlement, err := impl.auctions.Settle(c.Request.Context(), callerFrom(c), auctionID, body.WinningHorseID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := gin.H{
		"winnerHorseId": settlement.WinnerHorseID,
		"pot":           settlement.Pot,
		"houseCut":      settlement.HouseCut,
		"netPrize":      settlement.NetPrize,
	}
	if settlement.WinnerUserID != nil {
		out["winnerUserId"] = *settlement.WinnerUserID
	}
	c.JSON(http.StatusOK, out)
}

// Archive an auction
// (POST /admin/auctions/:auctionID/archive)
func (impl *ServerImpl) archiveAuction(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	reason := impl.htmlChecker.Sanitize(body.Reason)
	if err := impl.auctions.ArchiveAuction(c.Request.Context(), callerFrom(c), auctionID, reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": models.AuctionArchived})
}

// List the auction's transition log
// (GET /admin/auctions/:auctionID/log)
func (impl *ServerImpl) listTransitions(c *gin.Context) {
	auctionID, ok := pathUUID(c, "auctionID")
	if !ok {
		return
	}
	events, err := impl.auctions.Events(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	type eventOut struct {
		From   models.AuctionState `json:"from"`
		To     models.AuctionState `json:"to"`
		Actor  *uuid.UUID          `json:"actor,omitempty"`
		Reason string              `json:"reason,omitempty"`
		At     time.Time           `json:"at"`
	}
	c.JSON(http.StatusOK, gin.H{
		"events": lo.Map(events, func(e models.AuctionEvent, _ int) eventOut {
			return eventOut{From: e.FromState, To: e.ToState, Actor: e.ActorID, Reason: e.Reason, At: e.CreatedAt}
		}),
	})
}

type decisionBody struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// List deposit requests for review
// (GET /admin/deposits)
func (impl *ServerImpl) listDeposits(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	reqs, err := impl.funds.ListDeposits(c.Request.Context(), callerFrom(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(reqs),
		"deposits": lo.Map(reqs, func(r models.DepositRequest, _ int) gin.H { return depositOut(r) }),
	})
}

// Decide a deposit request
// (POST /admin/deposits/:requestID/decision)
func (impl *ServerImpl) decideDeposit(c *gin.Context) {
	requestID, ok := pathUUID(c, "requestID")
	if !ok {
		return
	}
	var body decisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	reason := impl.htmlChecker.Sanitize(body.Reason)
	req, err := impl.funds.DecideDeposit(c.Request.Context(), callerFrom(c), requestID, body.Approve, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, depositOut(*req))
}

// List withdrawal requests for review
// (GET /admin/withdrawals)
func (impl *ServerImpl) listWithdrawals(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	reqs, err := impl.funds.ListWithdrawals(c.Request.Context(), callerFrom(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(reqs),
		"withdrawals": lo.Map(reqs, func(r models.WithdrawalRequest, _ int) gin.H { return withdrawalOut(r) }),
	})
}

// Decide a withdrawal request
// (POST /admin/withdrawals/:requestID/decision)
func (impl *ServerImpl) decideWithdrawal(c *gin.Context) {
	requestID, ok := pathUUID(c, "requestID")
	if !ok {
		return
	}
	var body decisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	reason := impl.htmlChecker.Sanitize(body.Reason)
	req, err := impl.funds.DecideWithdrawal(c.Request.Context(), callerFrom(c), requestID, body.Approve, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withdrawalOut(*req))
}

// Get the accounting summary
// (GET /admin/accounting)
func (impl *ServerImpl) getAccounting(c *gin.Context) {
	summary, err := impl.funds.Accounting(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// List every wallet
// (GET /admin/wallets)
func (impl *ServerImpl) listWallets(c *gin.Context) {
	offset, limit := 0, 50
	if raw, ok := c.GetQuery("offset"); ok {
		if _, err := fmt.Sscanf(raw, "%d", &offset); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid offset", "reason": "invalid_filter"})
			return
		}
	}
	if raw, ok := c.GetQuery("limit"); ok {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid limit", "reason": "invalid_filter"})
			return
		}
	}
	wallets, err := impl.funds.Wallets(c.Request.Context(), callerFrom(c), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	type walletOut struct {
		UserID    uuid.UUID       `json:"userId"`
		Username  string          `json:"username,omitempty"`
		Available decimal.Decimal `json:"available"`
		Locked    decimal.Decimal `json:"locked"`
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(wallets),
		"wallets": lo.Map(wallets, func(w models.Wallet, _ int) walletOut {
			out := walletOut{UserID: w.UserID, Available: w.Available, Locked: w.Locked}
			if w.User != nil {
				out.Username = w.User.Username
			}
			return out
		}),
	})
}

func parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid amount %q", raw), "reason": "invalid_body"})
		return decimal.Decimal{}, false
	}
	return amount, true
}

func parseRules(c *gin.Context, bodies []ruleBody) ([]auction.RuleInput, bool) {
	rules := make([]auction.RuleInput, 0, len(bodies))
	for _, r := range bodies {
		minPrice, ok := parseAmount(c, r.MinPrice)
		if !ok {
			return nil, false
		}
		increment, ok := parseAmount(c, r.Increment)
		if !ok {
			return nil, false
		}
		rule := auction.RuleInput{HorseNumber: r.HorseNumber, MinPrice: minPrice, Increment: increment}
		if r.MaxPrice != nil {
			maxPrice, ok := parseAmount(c, *r.MaxPrice)
			if !ok {
				return nil, false
			}
			rule.MaxPrice = &maxPrice
		}
		rules = append(rules, rule)
	}
	return rules, true
}

func statusFilter(c *gin.Context) (*models.RequestStatus, bool) {
	raw, ok := c.GetQuery("status")
	if !ok {
		return nil, true
	}
	status := models.RequestStatus(raw)
	switch status {
	case models.RequestPending, models.RequestApproved, models.RequestRejected:
		return &status, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("unknown status %q", raw), "reason": "invalid_filter"})
		return nil, false
	}
}
