// Package api exposes the betting platform over HTTP: gin handlers for
// the public auction surface, the wallet, and the admin lifecycle, plus
// the SSE stream of live bid events.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"code.cloudfoundry.org/clock"

	redisAdapter "remate/adapters/redis"
	internalS3 "remate/adapters/s3"
	"remate/adapters/sse"
	"remate/auction"
	"remate/funds"
	"remate/notify"
	"remate/store"
)

type ServerImpl struct {
	db          *gorm.DB
	store       *store.Store
	redisClient *redis.Client
	sseManager  sse.IManager[auction.BidEvent]
	uploader    *internalS3.ReceiptUploader
	htmlChecker *bluemonday.Policy
	clock       clock.Clock

	auctions *auction.Service
	funds    *funds.Service

	wg         sync.WaitGroup
	cancelFunc context.CancelFunc

	config ServerConfig
}

// bidPublisher fans admitted bids out through the SSE manager's stream,
// keyed by auction so every instance broadcasts to its own subscribers.
type bidPublisher struct {
	manager sse.IManager[auction.BidEvent]
}

func (p bidPublisher) Publish(event auction.BidEvent) error {
	return p.manager.Publish(event.AuctionID, event)
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// S3 client for deposit receipts.
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	uploader, err := internalS3.NewReceiptUploader(awsS3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create receipt uploader, err=%w", op, err)
	}

	// Database connection.
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}
	st := store.New(db)

	// Redis connection, shared by the bid locks and the event stream.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// SSE manager relaying bid events across instances.
	sseManager, err := sse.NewRedisManager[auction.BidEvent](redisClient, config.Redis.StreamKeys.Bids, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create sse manager, err=%w", op, err)
	}

	clk := clock.NewClock()
	mailer := notify.NewMailer(notify.Config{
		Host:     config.SMTP.Host,
		Port:     config.SMTP.Port,
		Username: config.SMTP.Username,
		Password: config.SMTP.Password,
		From:     config.SMTP.From,
	}, slog.Default())

	lockFactory := func(key string) auction.Locker {
		return redisAdapter.NewAutoRenewMutex(redisClient, config.Redis.KeyPrefix+key)
	}
	auctions := auction.NewService(st, clk,
		auction.WithLockerFactory(lockFactory),
		auction.WithPublisher(bidPublisher{manager: sseManager}),
		auction.WithLogger(slog.Default()),
	)
	fundsService := funds.NewService(st, clk,
		funds.WithNotifier(mailer),
		funds.WithLogger(slog.Default()),
	)

	return &ServerImpl{
		db:          db,
		store:       st,
		redisClient: redisClient,
		sseManager:  sseManager,
		uploader:    uploader,
		htmlChecker: bluemonday.StrictPolicy(),
		clock:       clk,
		auctions:    auctions,
		funds:       fundsService,
		config:      config,
	}, nil
}

func (impl *ServerImpl) Start() {
	impl.sseManager.Start()

	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel
	slog.Info("Start auto-close worker")
	impl.wg.Add(1)
	go func() {
		logger := slog.Default().With(slog.String("caller", "AutoClose"))
		defer impl.wg.Done()
		defer slog.Info("Auto-close worker stopped")
		ticker := impl.clock.NewTicker(AutoCloseInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				closed, err := impl.auctions.CloseExpired(ctx)
				if err != nil {
					logger.Error("Fail to close expired auctions", slog.Any("error", err))
					continue
				}
				for _, id := range closed {
					logger.Info("Auction closed on expiry", slog.String("auctionID", id.String()))
				}
			}
		}
	}()
}

func (impl *ServerImpl) Close() {
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	impl.wg.Wait()
	impl.sseManager.Close()
	if err := impl.redisClient.Close(); err != nil {
		slog.Warn("Fail to close redis client", slog.Any("error", err))
	}
	if sqlDB, err := impl.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Warn("Fail to close database", slog.Any("error", err))
		}
	}
}
