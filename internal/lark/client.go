package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration.
type Config struct {
	AppID     string
	AppSecret string
}

// Client wraps the Lark SDK client.
type Client struct {
	client *lark.Client
	logger *zap.Logger
}

// NewClient creates a new Lark client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &Client{client: client, logger: logger}
}
