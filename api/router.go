package api

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the whole HTTP surface. Role checks live in the
// services; the middleware only resolves who is calling.
func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	public := router.Group("/auctions")
	{
		public.GET("", impl.listAuctions)
		public.GET("/:auctionID", impl.getAuction)
		public.GET("/:auctionID/ladder/:horseID", impl.getLadder)
		public.GET("/:auctionID/leaderboard", impl.getLeaderboard)
		public.GET("/:auctionID/bids", impl.listBids)
		public.GET("/:auctionID/events", impl.streamEvents)
		public.POST("/:auctionID/bids", impl.authenticate(), impl.placeBid)
	}

	wallet := router.Group("/wallet", impl.authenticate())
	{
		wallet.GET("", impl.getBalance)
		wallet.GET("/movements", impl.listMovements)
		wallet.GET("/deposits", impl.listOwnDeposits)
		wallet.POST("/deposits", impl.requestDeposit)
		wallet.POST("/deposits/:requestID/receipt", impl.uploadReceipt)
		wallet.GET("/withdrawals", impl.listOwnWithdrawals)
		wallet.POST("/withdrawals", impl.requestWithdrawal)
	}

	admin := router.Group("/admin", impl.authenticate())
	{
		admin.POST("/auctions", impl.createAuction)
		admin.PATCH("/auctions/:auctionID", impl.updateAuction)
		admin.POST("/auctions/:auctionID/close", impl.closeAuction)
		admin.POST("/auctions/:auctionID/cancel", impl.cancelAuction)
		admin.POST("/auctions/:auctionID/settle", impl.settleAuction)
		admin.POST("/auctions/:auctionID/archive", impl.archiveAuction)
		admin.GET("/auctions/:auctionID/log", impl.listTransitions)
		admin.GET("/deposits", impl.listDeposits)
		admin.POST("/deposits/:requestID/decision", impl.decideDeposit)
		admin.GET("/withdrawals", impl.listWithdrawals)
		admin.POST("/withdrawals/:requestID/decision", impl.decideWithdrawal)
		admin.GET("/accounting", impl.getAccounting)
		admin.GET("/wallets", impl.listWallets)
	}
}
