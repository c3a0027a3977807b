package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	internalS3 "remate/adapters/s3"
	"remate/funds"
	"remate/models"
)

// Receipts are photos or screenshots; anything above this is not one.
const maxReceiptBytes = 5 << 20

// Get wallet balance
// (GET /wallet)
func (impl *ServerImpl) getBalance(c *gin.Context) {
	wallet, err := impl.funds.Balance(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available": wallet.Available,
		"locked":    wallet.Locked,
	})
}

// List wallet movements
// (GET /wallet/movements)
func (impl *ServerImpl) listMovements(c *gin.Context) {
	movements, err := impl.funds.Movements(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	type movementOut struct {
		Kind      models.MovementKind `json:"kind"`
		Amount    decimal.Decimal     `json:"amount"`
		AuctionID *string             `json:"auctionId,omitempty"`
		Note      string              `json:"note,omitempty"`
		At        time.Time           `json:"at"`
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(movements),
		"movements": lo.Map(movements, func(m models.WalletMovement, _ int) movementOut {
			out := movementOut{Kind: m.Kind, Amount: m.Amount, Note: m.Note, At: m.CreatedAt}
			if m.AuctionID != nil {
				out.AuctionID = lo.ToPtr(m.AuctionID.String())
			}
			return out
		}),
	})
}

type depositBody struct {
	Amount       string    `json:"amount" binding:"required"`
	Method       string    `json:"method" binding:"required"`
	PaymentPhone string    `json:"paymentPhone"`
	Reference    string    `json:"reference" binding:"required"`
	PaidAt       time.Time `json:"paidAt"`
}

// Request a deposit
// (POST /wallet/deposits)
func (impl *ServerImpl) requestDeposit(c *gin.Context) {
	var body depositBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid amount", "reason": "invalid_body"})
		return
	}
	req, err := impl.funds.RequestDeposit(c.Request.Context(), callerFrom(c), funds.DepositInput{
		Amount:       amount,
		Method:       impl.htmlChecker.Sanitize(body.Method),
		PaymentPhone: impl.htmlChecker.Sanitize(body.PaymentPhone),
		Reference:    impl.htmlChecker.Sanitize(body.Reference),
		PaidAt:       body.PaidAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, depositOut(*req))
}

// Upload a deposit receipt image
// (POST /wallet/deposits/:requestID/receipt)
func (impl *ServerImpl) uploadReceipt(c *gin.Context) {
	const op = "UploadReceipt"
	requestID, ok := pathUUID(c, "requestID")
	if !ok {
		return
	}
	// The object key is derived from the request id, so the ownership and
	// status checks must pass before anything is written to the bucket.
	if err := impl.funds.AuthorizeReceipt(c.Request.Context(), callerFrom(c), requestID); err != nil {
		respondError(c, err)
		return
	}
	body := internalS3.NewMaxSizeReader(c.Request.Body, maxReceiptBytes)
	file, err := io.ReadAll(body)
	if errors.As(err, &internalS3.ErrReachLimitType) {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "reason": "receipt_too_large"})
		return
	}
	if err != nil {
		respondError(c, fmt.Errorf("[%s] Fail to read receipt, err=%w", op, err))
		return
	}
	mimeType := http.DetectContentType(file)
	secure, ext := internalS3.CheckSecureImageAndGetExtension(mimeType)
	if !secure {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid image type: %s", mimeType), "reason": "invalid_image"})
		return
	}
	url, err := impl.uploader.UploadReceipt(c.Request.Context(), internalS3.ReceiptKey(requestID, ext), mimeType, file)
	if err != nil {
		respondError(c, fmt.Errorf("[%s] Fail to upload receipt, err=%w", op, err))
		return
	}
	if err := impl.funds.AttachReceipt(c.Request.Context(), callerFrom(c), requestID, url); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receiptUrl": url})
}

// List own deposit requests
// (GET /wallet/deposits)
func (impl *ServerImpl) listOwnDeposits(c *gin.Context) {
	reqs, err := impl.funds.ListDeposits(c.Request.Context(), callerFrom(c), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(reqs),
		"deposits": lo.Map(reqs, func(r models.DepositRequest, _ int) gin.H { return depositOut(r) }),
	})
}

type withdrawalBody struct {
	Amount      string `json:"amount" binding:"required"`
	Method      string `json:"method" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

// Request a withdrawal
// (POST /wallet/withdrawals)
func (impl *ServerImpl) requestWithdrawal(c *gin.Context) {
	var body withdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "reason": "invalid_body"})
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid amount", "reason": "invalid_body"})
		return
	}
	req, err := impl.funds.RequestWithdrawal(c.Request.Context(), callerFrom(c), funds.WithdrawalInput{
		Amount:      amount,
		Method:      impl.htmlChecker.Sanitize(body.Method),
		Destination: impl.htmlChecker.Sanitize(body.Destination),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withdrawalOut(*req))
}

// List own withdrawal requests
// (GET /wallet/withdrawals)
func (impl *ServerImpl) listOwnWithdrawals(c *gin.Context) {
	reqs, err := impl.funds.ListWithdrawals(c.Request.Context(), callerFrom(c), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(reqs),
		"withdrawals": lo.Map(reqs, func(r models.WithdrawalRequest, _ int) gin.H { return withdrawalOut(r) }),
	})
}

func depositOut(r models.DepositRequest) gin.H {
	out := gin.H{
		"id":        r.ID,
		"amount":    r.Amount,
		"method":    r.Method,
		"reference": r.Reference,
		"paidAt":    r.PaidAt,
		"status":    r.Status,
		"createdAt": r.CreatedAt,
	}
	if r.ReceiptURL != nil {
		out["receiptUrl"] = *r.ReceiptURL
	}
	if r.DecidedAt != nil {
		out["decidedAt"] = *r.DecidedAt
		out["decisionReason"] = r.DecisionReason
	}
	return out
}

func withdrawalOut(r models.WithdrawalRequest) gin.H {
	out := gin.H{
		"id":          r.ID,
		"amount":      r.Amount,
		"method":      r.Method,
		"destination": r.Destination,
		"status":      r.Status,
		"createdAt":   r.CreatedAt,
	}
	if r.DecidedAt != nil {
		out["decidedAt"] = *r.DecidedAt
		out["decisionReason"] = r.DecisionReason
	}
	return out
}
