// Loads the gorm models as SQL for atlas migration diffing.
package main

import (
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"

	"remate/models"
)

func main() {
	stmts, err := gormschema.New("postgres").Load(
		&models.User{},
		&models.Race{},
		&models.Horse{},
		&models.Auction{},
		&models.PriceRule{},
		&models.Bid{},
		&models.AuctionEvent{},
		&models.Settlement{},
		&models.Wallet{},
		&models.WalletMovement{},
		&models.DepositRequest{},
		&models.WithdrawalRequest{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load gorm schema: %v\n", err)
		os.Exit(1)
	}
	io.WriteString(os.Stdout, stmts)
}
