// Package feeds assembles timelines out of the ledger's follow graph and
// post store. Feeds are derived reads: they never mutate ledger state.
package feeds

import (
	"socialnet/ledger"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const CursorEOF = "eof"

type QueryParams struct {
	Account string
	Limit   int64
	Cursor  string
}

type Response struct {
	Cursor string        `json:"cursor"`
	Posts  []ledger.Post `json:"posts"`
}

// Feed serves an account's timeline: posts authored by accounts it follows,
// plus its own, newest first. The cursor is the id of the last post served.
type Feed struct {
	Ledger *ledger.Ledger
}

func NewFeed(l *ledger.Ledger) *Feed {
	return &Feed{Ledger: l}
}

func (f *Feed) GetTimeline(params QueryParams) Response {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Cursor == CursorEOF {
		return Response{Cursor: CursorEOF, Posts: make([]ledger.Post, 0)}
	}

	next := f.Ledger.PostCount() - 1
	if params.Cursor != "" {
		lastServed, err := strconv.ParseInt(params.Cursor, 10, 64)
		if err != nil {
			log.Errorf("Malformed cursor in %+v", params)
			return Response{Cursor: CursorEOF, Posts: make([]ledger.Post, 0)}
		}
		next = lastServed - 1
	}

	authors := map[string]bool{params.Account: true}
	for _, followee := range f.Ledger.Following(params.Account) {
		authors[followee] = true
	}

	posts := make([]ledger.Post, 0, params.Limit)
	for ; next >= 0 && int64(len(posts)) < params.Limit; next-- {
		post, err := f.Ledger.GetPost(next)
		if err != nil {
			break
		}
		if authors[post.Author] {
			posts = append(posts, post)
		}
	}

	cursor := CursorEOF
	if len(posts) > 0 && next >= 0 {
		cursor = strconv.FormatInt(posts[len(posts)-1].ID, 10)
	}
	return Response{Cursor: cursor, Posts: posts}
}
