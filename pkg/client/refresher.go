package client

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Refresher keeps a session's access token fresh by calling Refresh shortly
// before the expiry the agent last reported. The core client never schedules
// refreshes itself, running one of these is the caller's choice.
type Refresher struct {
	logger *zap.SugaredLogger
	client *Client
	margin time.Duration
}

// NewRefresher returns a refresher that fires margin before each expiry.
func NewRefresher(c *Client, margin time.Duration) *Refresher {
	return &Refresher{
		logger: c.logger,
		client: c,
		margin: margin,
	}
}

// Run blocks and refreshes until ctx is cancelled, a refresh fails, or the
// agent stops reporting an expiry. expiresIn seeds the first cycle and comes
// from a prior Session, EndLogin or Refresh result.
func (r *Refresher) Run(ctx context.Context, expiresIn int64) error {
	for {
		wait := time.Duration(expiresIn)*time.Second - r.margin
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		resp, err := r.client.Refresh(ctx)
		if err != nil {
			r.logger.Debugw("token refresh failed", "error", err)
			return err
		}
		if resp.AccessTokenExpiresIn == nil {
			return nil
		}
		expiresIn = *resp.AccessTokenExpiresIn
	}
}
