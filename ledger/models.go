package ledger

// Profile is an account's identity record. It is created once by its owner
// and never changes afterwards.
type Profile struct {
	Owner    string `json:"owner"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
}

// Post is an entry in the append-only feed. Everything except Likes is
// immutable after creation. Content and Media are opaque to the ledger.
type Post struct {
	ID      int64  `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
	Media   string `json:"media"`
	Likes   int64  `json:"likes"`
}

// Edge is a directed follow relationship.
type Edge struct {
	Follower string `json:"follower"`
	Followee string `json:"followee"`
}

// Like records that an account liked a post. There is no unlike, so these
// records only accumulate.
type Like struct {
	PostID  int64  `json:"post_id"`
	Account string `json:"account"`
}

// State is a full export of the ledger, suitable for snapshotting and
// restoring across restarts. Slices are sorted so exports are reproducible.
type State struct {
	Profiles []Profile `json:"profiles"`
	Posts    []Post    `json:"posts"`
	Follows  []Edge    `json:"follows"`
	Likes    []Like    `json:"likes"`
}
