package ledger

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestCreateProfile(t *testing.T) {
	l := New()

	if err := l.CreateProfile("user1", "Alice", "bio", "ipfs://a1"); err != nil {
		t.Fatalf("CreateProfile(user1) returned error: %v", err)
	}

	profile, err := l.GetProfile("user1")
	if err != nil {
		t.Fatalf("GetProfile(user1) returned error: %v", err)
	}
	want := Profile{Owner: "user1", Username: "Alice", Bio: "bio", Avatar: "ipfs://a1"}
	if profile != want {
		t.Errorf("GetProfile(user1) = %+v, want %+v", profile, want)
	}
}

func TestCreateProfileRejections(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "bio", ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		caller   string
		username string
		wantErr  error
	}{
		{"duplicate username", "user2", "Alice", ErrUsernameTaken},
		{"duplicate account", "user1", "Alice2", ErrAlreadyRegistered},
		{"empty username", "user3", "", ErrInvalidUsername},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.CreateProfile(tt.caller, tt.username, "", "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateProfile(%q, %q) = %v, want %v", tt.caller, tt.username, err, tt.wantErr)
			}
		})
	}

	// Rejections must not leave partial state behind.
	if _, err := l.GetProfile("user2"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("GetProfile(user2) = %v, want %v", err, ErrProfileNotFound)
	}
	if _, err := l.GetProfileByUsername(""); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("GetProfileByUsername(\"\") = %v, want %v", err, ErrProfileNotFound)
	}
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := l.CreateProfile("user2", "alice", "", ""); err != nil {
		t.Errorf("CreateProfile(user2, \"alice\") = %v, want nil", err)
	}
}

func TestGetProfileByUsername(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "bio", ""); err != nil {
		t.Fatal(err)
	}

	profile, err := l.GetProfileByUsername("Alice")
	if err != nil {
		t.Fatalf("GetProfileByUsername(Alice) returned error: %v", err)
	}
	if profile.Owner != "user1" {
		t.Errorf("GetProfileByUsername(Alice).Owner = %q, want %q", profile.Owner, "user1")
	}
}

func TestCreatePostRequiresProfile(t *testing.T) {
	l := New()

	if _, err := l.CreatePost("user2", "text", ""); !errors.Is(err, ErrUnregistered) {
		t.Errorf("CreatePost(unregistered) = %v, want %v", err, ErrUnregistered)
	}
	if n := l.PostCount(); n != 0 {
		t.Errorf("PostCount() = %d after rejected post, want 0", n)
	}
}

func TestCreatePost(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "bio", ""); err != nil {
		t.Fatal(err)
	}

	id, err := l.CreatePost("user1", "hello", "ipfs://c1")
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}
	if id != 0 {
		t.Errorf("first post id = %d, want 0", id)
	}

	post, err := l.GetPost(0)
	if err != nil {
		t.Fatalf("GetPost(0) returned error: %v", err)
	}
	want := Post{ID: 0, Author: "user1", Content: "hello", Media: "ipfs://c1", Likes: 0}
	if post != want {
		t.Errorf("GetPost(0) = %+v, want %+v", post, want)
	}
}

func TestCreatePostEmpty(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "", ""); err != nil {
		t.Fatal(err)
	}

	if _, err := l.CreatePost("user1", "", ""); !errors.Is(err, ErrInvalidPost) {
		t.Errorf("CreatePost(empty, empty) = %v, want %v", err, ErrInvalidPost)
	}
	// Media-only posts are valid.
	if _, err := l.CreatePost("user1", "", "ipfs://m1"); err != nil {
		t.Errorf("CreatePost(empty, media) = %v, want nil", err)
	}
}

func TestPostIdsAreDense(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "", ""); err != nil {
		t.Fatal(err)
	}

	// A rejected post must not consume an id.
	if _, err := l.CreatePost("ghost", "text", ""); err == nil {
		t.Fatal("CreatePost(ghost) succeeded, want error")
	}

	for i := 0; i < 5; i++ {
		id, err := l.CreatePost("user1", fmt.Sprintf("post %d", i), "")
		if err != nil {
			t.Fatalf("CreatePost #%d returned error: %v", i, err)
		}
		if id != int64(i) {
			t.Errorf("post #%d got id %d, want %d", i, id, i)
		}
	}
	if n := l.PostCount(); n != 5 {
		t.Errorf("PostCount() = %d, want 5", n)
	}
}

func TestGetPostNotFound(t *testing.T) {
	l := New()
	for _, id := range []int64{-1, 0, 7} {
		if _, err := l.GetPost(id); !errors.Is(err, ErrPostNotFound) {
			t.Errorf("GetPost(%d) = %v, want %v", id, err, ErrPostNotFound)
		}
	}
}

func TestFollowUnfollow(t *testing.T) {
	l := New()

	l.Follow("user1", "user2")
	if !l.IsFollowing("user1", "user2") {
		t.Error("IsFollowing(user1, user2) = false after Follow, want true")
	}
	if l.IsFollowing("user2", "user1") {
		t.Error("IsFollowing(user2, user1) = true, want false (edges are directed)")
	}

	// Re-follow is a no-op.
	l.Follow("user1", "user2")
	if got := l.Following("user1"); !reflect.DeepEqual(got, []string{"user2"}) {
		t.Errorf("Following(user1) = %v, want [user2]", got)
	}

	l.Unfollow("user1", "user2")
	if l.IsFollowing("user1", "user2") {
		t.Error("IsFollowing(user1, user2) = true after Unfollow, want false")
	}

	// Unfollowing an absent edge is a no-op, not an error.
	l.Unfollow("user1", "user2")
}

func TestFollowReportsTransitions(t *testing.T) {
	l := New()

	// Only an actual edge change reports true, so callers layering
	// counters or events on top cannot double-count a repeated call.
	if !l.Follow("user1", "user2") {
		t.Error("first Follow = false, want true")
	}
	if l.Follow("user1", "user2") {
		t.Error("repeated Follow = true, want false")
	}
	if !l.Unfollow("user1", "user2") {
		t.Error("Unfollow of existing edge = false, want true")
	}
	if l.Unfollow("user1", "user2") {
		t.Error("Unfollow of absent edge = true, want false")
	}
}

func TestFollowIsPermissive(t *testing.T) {
	l := New()

	// Neither side needs a profile, and self-follows are allowed.
	l.Follow("user1", "nobody")
	if !l.IsFollowing("user1", "nobody") {
		t.Error("follow of an unregistered target should be recorded")
	}
	l.Follow("user1", "user1")
	if !l.IsFollowing("user1", "user1") {
		t.Error("self-follow should be recorded")
	}
}

func TestFollowingFollowers(t *testing.T) {
	l := New()
	l.Follow("a", "c")
	l.Follow("a", "b")
	l.Follow("b", "c")

	if got := l.Following("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Following(a) = %v, want [b c]", got)
	}
	if got := l.Followers("c"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Followers(c) = %v, want [a b]", got)
	}
	if got := l.Followers("a"); len(got) != 0 {
		t.Errorf("Followers(a) = %v, want empty", got)
	}
}

func TestLikePost(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CreatePost("user1", "hello", ""); err != nil {
		t.Fatal(err)
	}

	if err := l.LikePost("user2", 0); err != nil {
		t.Fatalf("LikePost(user2, 0) returned error: %v", err)
	}
	if likes, _ := l.GetPostLikes(0); likes != 1 {
		t.Errorf("GetPostLikes(0) = %d, want 1", likes)
	}

	if err := l.LikePost("user2", 0); !errors.Is(err, ErrAlreadyLiked) {
		t.Errorf("repeated LikePost = %v, want %v", err, ErrAlreadyLiked)
	}
	if likes, _ := l.GetPostLikes(0); likes != 1 {
		t.Errorf("GetPostLikes(0) = %d after rejected like, want 1", likes)
	}

	// A different account may still like the same post.
	if err := l.LikePost("user3", 0); err != nil {
		t.Fatalf("LikePost(user3, 0) returned error: %v", err)
	}
	if likes, _ := l.GetPostLikes(0); likes != 2 {
		t.Errorf("GetPostLikes(0) = %d, want 2", likes)
	}
}

func TestLikePostNotFound(t *testing.T) {
	l := New()
	if err := l.LikePost("user1", 3); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("LikePost(missing) = %v, want %v", err, ErrPostNotFound)
	}
	if _, err := l.GetPostLikes(3); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("GetPostLikes(missing) = %v, want %v", err, ErrPostNotFound)
	}
}

func TestPostsByAuthor(t *testing.T) {
	l := New()
	for _, account := range []string{"user1", "user2"} {
		if err := l.CreateProfile(account, "name-"+account, "", ""); err != nil {
			t.Fatal(err)
		}
	}
	l.CreatePost("user1", "a", "")
	l.CreatePost("user2", "b", "")
	l.CreatePost("user1", "c", "")

	posts := l.PostsByAuthor("user1")
	if len(posts) != 2 || posts[0].Content != "a" || posts[1].Content != "c" {
		t.Errorf("PostsByAuthor(user1) = %+v, want posts a and c in order", posts)
	}
}

func TestSnapshotRestore(t *testing.T) {
	l := New()
	if err := l.CreateProfile("user1", "Alice", "bio", "ipfs://a1"); err != nil {
		t.Fatal(err)
	}
	if err := l.CreateProfile("user2", "Bob", "", ""); err != nil {
		t.Fatal(err)
	}
	l.CreatePost("user1", "hello", "ipfs://c1")
	l.CreatePost("user2", "hi", "")
	l.Follow("user1", "user2")
	l.LikePost("user2", 0)

	restored := New()
	restored.Restore(l.Snapshot())

	if !reflect.DeepEqual(restored.Snapshot(), l.Snapshot()) {
		t.Fatalf("restored snapshot differs from original:\n%+v\nvs\n%+v", restored.Snapshot(), l.Snapshot())
	}

	// Derived state must be rebuilt, not just copied: uniqueness and like
	// tracking keep working after a restore.
	if err := restored.CreateProfile("user3", "Alice", "", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("CreateProfile(user3, Alice) after restore = %v, want %v", err, ErrUsernameTaken)
	}
	if err := restored.LikePost("user2", 0); !errors.Is(err, ErrAlreadyLiked) {
		t.Errorf("LikePost(user2, 0) after restore = %v, want %v", err, ErrAlreadyLiked)
	}
	if likes, _ := restored.GetPostLikes(0); likes != 1 {
		t.Errorf("GetPostLikes(0) after restore = %d, want 1", likes)
	}
	if id, err := restored.CreatePost("user1", "again", ""); err != nil || id != 2 {
		t.Errorf("CreatePost after restore = (%d, %v), want (2, nil)", id, err)
	}
}
