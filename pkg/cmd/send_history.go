package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/journey/pkg/sendhistory"
)

// NewSendHistory opens the frequency cap ledger. redis:// and rediss:// URLs use
// Redis; an empty URL or memory:// keeps the history in process.
func NewSendHistory(ctx context.Context, url string) (sendhistory.History, error) {
	switch {
	case url == "", url == "memory://":
		return sendhistory.NewMemory(), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return sendhistory.NewRedis(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported send history URL: %s", url)
	}
}
