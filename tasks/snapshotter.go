// Package tasks holds the background jobs running next to the server.
package tasks

import (
	"time"

	log "github.com/sirupsen/logrus"

	"socialnet/ledger"
	"socialnet/snapshot"
)

// Snapshotter periodically persists the ledger so a restart resumes from
// the last saved state instead of empty.
type Snapshotter struct {
	ledger   *ledger.Ledger
	store    *snapshot.Store
	interval time.Duration
}

func NewSnapshotter(l *ledger.Ledger, store *snapshot.Store, interval time.Duration) *Snapshotter {
	return &Snapshotter{
		ledger:   l,
		store:    store,
		interval: interval,
	}
}

func (s *Snapshotter) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := s.store.Save(s.ledger.Snapshot()); err != nil {
			log.Errorf("Error saving snapshot: %v", err)
		}
	}
}
