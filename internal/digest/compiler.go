// Package digest compiles every user's unsent bullets into one plain-text
// digest and marks them sent once the digest has been delivered.
package digest

import (
	"context"
	"time"

	"bulletbot/internal/deliver"
	"bulletbot/internal/logging"
	"bulletbot/internal/store"
)

type Compiler struct {
	Store *store.Store
	Log   logging.Logger
	Now   func() time.Time
}

func NewCompiler(st *store.Store, log logging.Logger) *Compiler {
	return &Compiler{Store: st, Log: log, Now: time.Now}
}

// CollectUnsent returns every user with unsent notes, keyed by display
// name, in a stable order.
func (c *Compiler) CollectUnsent(ctx context.Context) ([]store.UserNotes, error) {
	return c.Store.AllUnsent(ctx)
}

// Compile renders the current digest without changing anything.
func (c *Compiler) Compile(ctx context.Context) (string, error) {
	collected, err := c.CollectUnsent(ctx)
	if err != nil {
		return "", err
	}
	text := RenderDigest(collected)
	c.Log.Debug(ctx, "compiled digest", "users", len(collected), "bytes", len(text))
	return text, nil
}

// MarkAllSent stamps every unsent note with the same instant.
func (c *Compiler) MarkAllSent(ctx context.Context) (int64, error) {
	n, err := c.Store.MarkAllSent(ctx, c.Now())
	if err != nil {
		return 0, err
	}
	c.Log.Info(ctx, "marked all bullets sent", "count", n)
	return n, nil
}

// Send compiles the digest, delivers it through sink and then marks the
// delivered notes sent. It returns how many notes were marked.
//
// Only the notes that went into the digest are marked, so a note written
// while the digest is in flight stays unsent for the next run. If delivery
// fails nothing is marked.
func (c *Compiler) Send(ctx context.Context, sink deliver.Sink) (int64, error) {
	collected, err := c.CollectUnsent(ctx)
	if err != nil {
		return 0, err
	}
	if len(collected) == 0 {
		c.Log.Info(ctx, "no unsent bullets, skipping digest")
		return 0, nil
	}

	recipients, err := c.Store.Recipients(ctx)
	if err != nil {
		return 0, err
	}

	now := c.Now()
	d := deliver.Digest{Text: RenderDigest(collected), CreatedAt: now}
	for _, r := range recipients {
		if r.IsAddressee {
			d.To = append(d.To, r.Email)
		} else {
			d.Cc = append(d.Cc, r.Email)
		}
	}
	if err := sink.Deliver(ctx, d); err != nil {
		return 0, err
	}

	var ids []uint64
	for _, un := range collected {
		for _, n := range un.Notes {
			ids = append(ids, n.ID)
		}
	}
	marked, err := c.Store.MarkSent(ctx, ids, now)
	if err != nil {
		return 0, err
	}
	c.Log.Info(ctx, "sent digest", "users", len(collected), "marked", marked, "to", d.To, "cc", d.Cc)
	return marked, nil
}
