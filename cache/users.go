package cache

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const UsersFollowersCountRedisKey = "users_followers_count"
const UsersFollowsCountRedisKey = "users_follows_count"
const UsersPostsCountRedisKey = "users_posts_count"
const UsersLikesReceivedRedisKey = "users_likes_received"

// UserStatistics mirrors the ledger's derived per-account counters. These
// live in redis for cheap reads; the ledger itself stays authoritative.
type UserStatistics struct {
	Account        string `json:"account"`
	FollowersCount int64  `json:"followers"`
	FollowsCount   int64  `json:"follows"`
	PostsCount     int64  `json:"posts"`
	LikesReceived  int64  `json:"likes_received"`
}

func (s *UserStatistics) GetEngagementFactor() float64 {
	likesReceived := float64(s.LikesReceived)
	postsCount := float64(s.PostsCount)
	followersCount := float64(s.FollowersCount)

	if postsCount == 0 || followersCount < 10 {
		return -1
	}
	return ((likesReceived / postsCount) * 100.0 / followersCount) / (5 / math.Log(followersCount))
}

type UsersCache struct {
	redisClient *redis.Client
	expiration  time.Duration
}

func NewUsersCache(options *redis.Options, expiration time.Duration) *UsersCache {
	return &UsersCache{
		redisClient: redis.NewClient(options),
		expiration:  expiration,
	}
}

func (c *UsersCache) DeleteUser(account string) {
	ctx := context.Background()
	c.redisClient.HDel(ctx, UsersFollowersCountRedisKey, account)
	c.redisClient.HDel(ctx, UsersFollowsCountRedisKey, account)
	c.redisClient.HDel(ctx, UsersPostsCountRedisKey, account)
	c.redisClient.HDel(ctx, UsersLikesReceivedRedisKey, account)
}

func (c *UsersCache) GetUserStatistics(account string) UserStatistics {
	ctx := context.Background()

	followersCount, _ := c.redisClient.HGet(ctx, UsersFollowersCountRedisKey, account).Int64()
	followsCount, _ := c.redisClient.HGet(ctx, UsersFollowsCountRedisKey, account).Int64()
	postsCount, _ := c.redisClient.HGet(ctx, UsersPostsCountRedisKey, account).Int64()
	likesReceived, _ := c.redisClient.HGet(ctx, UsersLikesReceivedRedisKey, account).Int64()

	return UserStatistics{
		Account:        account,
		FollowersCount: followersCount,
		FollowsCount:   followsCount,
		PostsCount:     postsCount,
		LikesReceived:  likesReceived,
	}
}

func (c *UsersCache) SetUserCounts(account string, followersCount int64, followsCount int64, postsCount int64) {
	c.hSetWithExpiration(UsersFollowersCountRedisKey, account, strconv.FormatInt(followersCount, 10))
	c.hSetWithExpiration(UsersFollowsCountRedisKey, account, strconv.FormatInt(followsCount, 10))
	c.hSetWithExpiration(UsersPostsCountRedisKey, account, strconv.FormatInt(postsCount, 10))
}

func (c *UsersCache) UpdateUserStatistics(
	account string,
	followsDelta int64,
	followersDelta int64,
	postsDelta int64,
	likesDelta int64,
) {
	ctx := context.Background()

	for redisKey, delta := range map[string]int64{
		UsersFollowersCountRedisKey: followersDelta,
		UsersFollowsCountRedisKey:   followsDelta,
		UsersPostsCountRedisKey:     postsDelta,
		UsersLikesReceivedRedisKey:  likesDelta,
	} {
		if delta != 0 {
			c.redisClient.HIncrBy(ctx, redisKey, account, delta)
			c.redisClient.HExpire(ctx, redisKey, c.expiration, account)
		}
	}
}

func (c *UsersCache) hSetWithExpiration(redisKey, key, value string) {
	ctx := context.Background()
	c.redisClient.HSet(ctx, redisKey, key, value)
	c.redisClient.HExpire(ctx, redisKey, c.expiration, key)
}
