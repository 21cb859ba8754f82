package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Post is the timeline cache entry. Id comes first so redis falls back to a
// stable lexicographic order when scores collide.
type Post struct {
	Id      int64  `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
	Media   string `json:"media"`
}

type TimelinesCache struct {
	redisClient *redis.Client
}

func NewTimelinesCache(options *redis.Options) *TimelinesCache {
	return &TimelinesCache{
		redisClient: redis.NewClient(options),
	}
}

func (c *TimelinesCache) AddPost(feedName string, post Post) {
	bytes, err := json.Marshal(post)
	if err == nil {
		c.redisClient.ZAdd(
			context.Background(),
			c.getRedisKey(feedName),
			redis.Z{
				Score:  float64(-post.Id), // Sort DESC
				Member: bytes,
			},
		)
	}
}

func (c *TimelinesCache) GetTimeline(feedName string, startIndex int64, endIndex int64) []Post {
	members := c.redisClient.ZRange(
		context.Background(),
		c.getRedisKey(feedName),
		startIndex,
		endIndex,
	)
	posts := make([]Post, len(members.Val()))
	for i, member := range members.Val() {
		err := json.Unmarshal([]byte(member), &posts[i])
		if err != nil {
			log.Errorf("Error unmarshalling post: %s", err)
		}
	}
	return posts
}

func (c *TimelinesCache) TrimTimeline(feedName string, maxSize int64) {
	c.redisClient.ZRemRangeByRank(
		context.Background(),
		c.getRedisKey(feedName),
		maxSize,
		-1,
	)
}

func (c *TimelinesCache) getRedisKey(feedName string) string {
	return fmt.Sprintf("feed__%s", feedName)
}
