package api

import "time"

type ServerConfig struct {
	DB    DBConfig
	Redis RedisConfig
	SMTP  SMTPConfig
	S3    S3Config
	Auth  AuthConfig
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces every key this instance touches, locks included.
	KeyPrefix  string
	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	Bids string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string
}

type AuthConfig struct {
	// Secret is the HMAC key shared with the identity service that issues
	// the tokens.
	Secret   string
	Issuer   string
	Audience string
}

// AutoCloseInterval is how often the background worker sweeps for open
// auctions past their close time.
const AutoCloseInterval = 30 * time.Second
