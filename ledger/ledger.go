// Package ledger implements the deterministic state machine at the heart of
// the network: profiles keyed by account and unique username, the
// append-only post feed, the follow graph and per-post like tracking.
// Every operation is a single atomic transition; preconditions are checked
// before any write, so a rejected call leaves the state untouched.
package ledger

import (
	"sort"
	"sync"
)

type followKey struct {
	follower string
	followee string
}

type likeKey struct {
	postID  int64
	account string
}

// Ledger is the single authoritative state object. All mutations take the
// write lock, reads take the read lock; a reader always observes a fully
// settled state.
type Ledger struct {
	mu        sync.RWMutex
	profiles  map[string]*Profile
	usernames map[string]string
	posts     []*Post
	follows   map[followKey]struct{}
	likes     map[likeKey]struct{}
}

func New() *Ledger {
	return &Ledger{
		profiles:  make(map[string]*Profile),
		usernames: make(map[string]string),
		posts:     make([]*Post, 0),
		follows:   make(map[followKey]struct{}),
		likes:     make(map[likeKey]struct{}),
	}
}

// CreateProfile registers a profile for caller. Usernames are case-sensitive
// and globally unique; an account registers at most once.
func (l *Ledger) CreateProfile(caller, username, bio, avatar string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if username == "" {
		return ErrInvalidUsername
	}
	if _, ok := l.profiles[caller]; ok {
		return ErrAlreadyRegistered
	}
	if _, ok := l.usernames[username]; ok {
		return ErrUsernameTaken
	}

	l.profiles[caller] = &Profile{
		Owner:    caller,
		Username: username,
		Bio:      bio,
		Avatar:   avatar,
	}
	l.usernames[username] = caller
	return nil
}

// GetProfile returns the profile owned by account.
func (l *Ledger) GetProfile(account string) (Profile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	profile, ok := l.profiles[account]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return *profile, nil
}

// GetProfileByUsername resolves a username to its profile.
func (l *Ledger) GetProfileByUsername(username string) (Profile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	owner, ok := l.usernames[username]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return *l.profiles[owner], nil
}

// CreatePost appends a post authored by caller and returns its id. Ids are
// dense and ascending from 0. Posting requires a profile; an empty post is
// only valid when it carries a media reference.
func (l *Ledger) CreatePost(caller, content, media string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.profiles[caller]; !ok {
		return 0, ErrUnregistered
	}
	if content == "" && media == "" {
		return 0, ErrInvalidPost
	}

	id := int64(len(l.posts))
	l.posts = append(l.posts, &Post{
		ID:      id,
		Author:  caller,
		Content: content,
		Media:   media,
	})
	return id, nil
}

// GetPost returns the post with the given id.
func (l *Ledger) GetPost(id int64) (Post, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id < 0 || id >= int64(len(l.posts)) {
		return Post{}, ErrPostNotFound
	}
	return *l.posts[id], nil
}

// PostCount returns the number of posts ever created.
func (l *Ledger) PostCount() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.posts))
}

// PostsByAuthor returns account's posts in creation order.
func (l *Ledger) PostsByAuthor(account string) []Post {
	l.mu.RLock()
	defer l.mu.RUnlock()

	posts := make([]Post, 0)
	for _, post := range l.posts {
		if post.Author == account {
			posts = append(posts, *post)
		}
	}
	return posts
}

// Follow inserts the (caller, target) edge and reports whether it was new.
// Re-following is a no-op, and the target does not need a profile;
// self-follows are not rejected either.
func (l *Ledger) Follow(caller, target string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := followKey{caller, target}
	if _, ok := l.follows[key]; ok {
		return false
	}
	l.follows[key] = struct{}{}
	return true
}

// Unfollow removes the (caller, target) edge and reports whether it
// existed; removing an absent edge is a no-op.
func (l *Ledger) Unfollow(caller, target string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := followKey{caller, target}
	if _, ok := l.follows[key]; !ok {
		return false
	}
	delete(l.follows, key)
	return true
}

// IsFollowing reports whether follower follows followee.
func (l *Ledger) IsFollowing(follower, followee string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.follows[followKey{follower, followee}]
	return ok
}

// Following returns the accounts that account follows, sorted.
func (l *Ledger) Following(account string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	followees := make([]string, 0)
	for key := range l.follows {
		if key.follower == account {
			followees = append(followees, key.followee)
		}
	}
	sort.Strings(followees)
	return followees
}

// Followers returns the accounts following account, sorted.
func (l *Ledger) Followers(account string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	followers := make([]string, 0)
	for key := range l.follows {
		if key.followee == account {
			followers = append(followers, key.follower)
		}
	}
	sort.Strings(followers)
	return followers
}

// LikePost records that caller liked the post and bumps its counter. The
// record insert and the counter increment happen under the same lock, so
// the counter always equals the number of like records.
func (l *Ledger) LikePost(caller string, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id < 0 || id >= int64(len(l.posts)) {
		return ErrPostNotFound
	}
	key := likeKey{id, caller}
	if _, ok := l.likes[key]; ok {
		return ErrAlreadyLiked
	}

	l.likes[key] = struct{}{}
	l.posts[id].Likes++
	return nil
}

// GetPostLikes returns the like counter of the post.
func (l *Ledger) GetPostLikes(id int64) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id < 0 || id >= int64(len(l.posts)) {
		return 0, ErrPostNotFound
	}
	return l.posts[id].Likes, nil
}

// Snapshot exports the full state in a reproducible order.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := State{
		Profiles: make([]Profile, 0, len(l.profiles)),
		Posts:    make([]Post, 0, len(l.posts)),
		Follows:  make([]Edge, 0, len(l.follows)),
		Likes:    make([]Like, 0, len(l.likes)),
	}
	for _, profile := range l.profiles {
		state.Profiles = append(state.Profiles, *profile)
	}
	sort.Slice(state.Profiles, func(i, j int) bool {
		return state.Profiles[i].Owner < state.Profiles[j].Owner
	})
	for _, post := range l.posts {
		state.Posts = append(state.Posts, *post)
	}
	for key := range l.follows {
		state.Follows = append(state.Follows, Edge{Follower: key.follower, Followee: key.followee})
	}
	sort.Slice(state.Follows, func(i, j int) bool {
		a, b := state.Follows[i], state.Follows[j]
		if a.Follower != b.Follower {
			return a.Follower < b.Follower
		}
		return a.Followee < b.Followee
	})
	for key := range l.likes {
		state.Likes = append(state.Likes, Like{PostID: key.postID, Account: key.account})
	}
	sort.Slice(state.Likes, func(i, j int) bool {
		a, b := state.Likes[i], state.Likes[j]
		if a.PostID != b.PostID {
			return a.PostID < b.PostID
		}
		return a.Account < b.Account
	})
	return state
}

// Restore replaces the ledger contents with a previously exported state.
// Like counters are recomputed from the like records rather than trusted.
func (l *Ledger) Restore(state State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.profiles = make(map[string]*Profile, len(state.Profiles))
	l.usernames = make(map[string]string, len(state.Profiles))
	for _, profile := range state.Profiles {
		p := profile
		l.profiles[p.Owner] = &p
		l.usernames[p.Username] = p.Owner
	}

	l.posts = make([]*Post, len(state.Posts))
	for i, post := range state.Posts {
		p := post
		p.Likes = 0
		l.posts[i] = &p
	}

	l.follows = make(map[followKey]struct{}, len(state.Follows))
	for _, edge := range state.Follows {
		l.follows[followKey{edge.Follower, edge.Followee}] = struct{}{}
	}

	l.likes = make(map[likeKey]struct{}, len(state.Likes))
	for _, like := range state.Likes {
		key := likeKey{like.PostID, like.Account}
		if _, ok := l.likes[key]; ok {
			continue
		}
		l.likes[key] = struct{}{}
		if like.PostID >= 0 && like.PostID < int64(len(l.posts)) {
			l.posts[like.PostID].Likes++
		}
	}
}
