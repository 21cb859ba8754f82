package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"socialnet/archive"
	"socialnet/cache"
	"socialnet/firehose"
	"socialnet/ledger"
	"socialnet/server"
	"socialnet/snapshot"
	"socialnet/tasks"
	"socialnet/utils"
)

func newLedger(snapshotStore *snapshot.Store) *ledger.Ledger {
	l := ledger.New()
	if snapshotStore == nil {
		return l
	}

	state, err := snapshotStore.Load()
	if err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) {
			log.Errorf("Error loading snapshot, starting empty: %v", err)
		}
		return l
	}
	l.Restore(state)
	log.Infof(
		"Restored ledger snapshot: %d profiles, %d posts",
		len(state.Profiles),
		len(state.Posts),
	)
	return l
}

func runBackgroundTasks(
	l *ledger.Ledger,
	snapshotStore *snapshot.Store,
	hub *firehose.Hub,
) {
	// Periodic ledger snapshots
	if snapshotStore != nil {
		intervalMinutes := utils.IntFromString(os.Getenv("SNAPSHOT_INTERVAL_MINUTES"), 5)
		go utils.Recoverer(math.MaxInt, 1, func() {
			snapshotter := tasks.NewSnapshotter(
				l,
				snapshotStore,
				time.Duration(intervalMinutes)*time.Minute,
			)
			snapshotter.Run()
		})
	}

	// Event archiver
	if dsn := os.Getenv("ARCHIVE_DSN"); dsn != "" {
		go utils.Recoverer(math.MaxInt, 2, func() {
			archiver, err := archive.NewArchiver(context.Background(), dsn)
			if err != nil {
				panic(err)
			}
			defer archiver.Close()
			archiver.Run(context.Background(), hub.Subscribe())
		})
	}
}

func main() {
	godotenv.Load()

	logLevel, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = log.InfoLevel
	}
	log.SetLevel(logLevel)

	var snapshotStore *snapshot.Store
	if path := os.Getenv("SNAPSHOT_PATH"); path != "" {
		snapshotStore, err = snapshot.NewStore(path)
		if err != nil {
			panic(err)
		}
		defer snapshotStore.Close()
	}

	l := newLedger(snapshotStore)

	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}
	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}
	redisOptions := redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	}
	usersCacheExpiration := utils.IntFromString(
		os.Getenv("USERS_CACHE_EXPIRATION_MINUTES"), 43200,
	)
	usersCache := cache.NewUsersCache(
		&redisOptions,
		time.Duration(usersCacheExpiration)*time.Minute,
	)
	timelinesCache := cache.NewTimelinesCache(&redisOptions)

	hub := firehose.NewHub()
	s := server.NewServer(l, usersCache, timelinesCache, hub)

	// Run background tasks
	runBackgroundTasks(l, snapshotStore, hub)

	s.Run()
}
