package redis

import (
	"io"
	"log"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func init() {
	log.SetOutput(io.Discard)
}

func setupTest(t *testing.T) (*redis.Client, redismock.ClientMock, func()) {
	db, mock := redismock.NewClientMock()
	return db, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

// bidUpdate mirrors the shape of the messages the platform actually
// relays: an admitted bid travelling between instances.
type bidUpdate struct {
	AuctionID string `msgpack:"auction_id"`
	HorseID   string `msgpack:"horse_id"`
	Amount    string `msgpack:"amount"`
	Manual    bool   `msgpack:"manual"`
}
