// Package archive writes the firehose event stream to postgres. It is an
// optional collaborator that sits off the mutation path: the ledger never
// waits on it, and archive failures only surface in logs.
package archive

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"socialnet/firehose"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_events (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    actor      TEXT NOT NULL,
    subject    TEXT NOT NULL DEFAULT '',
    post_id    BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ledger_events_actor_idx ON ledger_events (actor);
CREATE INDEX IF NOT EXISTS ledger_events_kind_idx ON ledger_events (kind);
`

const insertEvent = `
INSERT INTO ledger_events (id, kind, actor, subject, post_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING
`

type Archiver struct {
	pool *pgxpool.Pool
}

func NewArchiver(ctx context.Context, dsn string) (*Archiver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Archiver{pool: pool}, nil
}

func (a *Archiver) Close() {
	a.pool.Close()
}

// Run consumes events until the channel closes or the context is done.
func (a *Archiver) Run(ctx context.Context, events <-chan firehose.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			a.writeEvent(ctx, event)
		}
	}
}

func (a *Archiver) writeEvent(ctx context.Context, event firehose.Event) {
	_, err := a.pool.Exec(
		ctx,
		insertEvent,
		event.ID,
		string(event.Kind),
		event.Actor,
		event.Subject,
		event.PostID,
		event.Time,
	)
	if err != nil {
		log.Errorf("Error archiving event '%s': %v", event.ID, err)
	}
}
