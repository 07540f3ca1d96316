// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import (
	"context"
	"sync"
	"time"
)

const (
	pollTimeout    = 20 * time.Second
	pollRetryDelay = 3 * time.Second
)

// Poll receives updates with long polling until ctx is done. Each update is
// handled on its own goroutine; Poll waits for running handlers before
// returning.
func (c *Client) Poll(ctx context.Context, handle func(context.Context, *Update)) error {
	var (
		wg     sync.WaitGroup
		offset int64
	)
	defer wg.Wait()

	for {
		updates, err := c.GetUpdates(ctx, offset, pollTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.log.Warn("getting updates failed", "error", err)
			if !c.sleep(ctx, pollRetryDelay) {
				return nil
			}
			continue
		}
		for i := range updates {
			u := &updates[i]
			offset = max(offset, u.ID+1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				handle(ctx, u)
			}()
		}
	}
}
