// Package server exposes every ledger operation as an HTTP call-and-result
// surface. Each handler resolves the caller identity, invokes exactly one
// ledger transition, then feeds the observability layers (caches, firehose,
// metrics) on success. Those layers never participate in the transition
// itself.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"socialnet/auth"
	"socialnet/cache"
	"socialnet/feeds"
	"socialnet/firehose"
	"socialnet/ledger"
	"socialnet/monitoring"
)

const RecentFeedName = "recent"
const RecentFeedMaxSize = 10000

type Server struct {
	ledger         *ledger.Ledger
	feed           *feeds.Feed
	usersCache     *cache.UsersCache
	timelinesCache *cache.TimelinesCache
	hub            *firehose.Hub
}

func NewServer(
	l *ledger.Ledger,
	usersCache *cache.UsersCache,
	timelinesCache *cache.TimelinesCache,
	hub *firehose.Hub,
) *Server {
	return &Server{
		ledger:         l,
		feed:           feeds.NewFeed(l),
		usersCache:     usersCache,
		timelinesCache: timelinesCache,
		hub:            hub,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/profiles", s.createProfile)
	mux.HandleFunc("/v1/profiles/", s.getProfile)
	mux.HandleFunc("/v1/resolve", s.resolveUsername)
	mux.HandleFunc("/v1/posts", s.createPost)
	mux.HandleFunc("/v1/posts/", s.postSubroutes)
	mux.HandleFunc("/v1/follow", s.follow)
	mux.HandleFunc("/v1/unfollow", s.unfollow)
	mux.HandleFunc("/v1/relation", s.relation)
	mux.HandleFunc("/v1/timeline", s.timeline)
	mux.HandleFunc("/v1/feed", s.recentFeed)
	mux.HandleFunc("/v1/users/", s.userStats)
	mux.HandleFunc("/v1/firehose", s.hub.ServeWs)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}

	log.Infof("Server starting on port %s", port)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           monitoring.NewPrometheusMiddleware(s.Handler()),
		ReadHeaderTimeout: 3 * time.Second,
	}

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		fmt.Printf("server closed\n")
	} else if err != nil {
		fmt.Printf("error starting server: %s\n", err)
		os.Exit(1)
	}
}

// ledgerErrorStatus maps each rejection kind to its HTTP status. No kind
// collapses into a generic 500.
func ledgerErrorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidUsername), errors.Is(err, ledger.ErrInvalidPost):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnregistered):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrProfileNotFound), errors.Is(err, ledger.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyRegistered),
		errors.Is(err, ledger.ErrUsernameTaken),
		errors.Is(err, ledger.ErrAlreadyLiked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	account, err := auth.CallerFromRequest(r)
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Invalid token")
		return "", false
	}
	return account, true
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	var body struct {
		Username string `json:"username"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "Unable to decode body")
		return
	}

	err := s.ledger.CreateProfile(caller, body.Username, body.Bio, body.Avatar)
	monitoring.RecordOperation("create_profile", err)
	if err != nil {
		sendError(w, ledgerErrorStatus(err), err.Error())
		return
	}

	s.usersCache.SetUserCounts(caller, 0, 0, 0)
	s.hub.Publish(firehose.NewEvent(firehose.EventProfileCreated, caller, "", 0))
	sendJson(w, http.StatusCreated, map[string]string{"owner": caller})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimPrefix(r.URL.Path, "/v1/profiles/")
	if account == "" {
		sendError(w, http.StatusBadRequest, "Missing account")
		return
	}

	profile, err := s.ledger.GetProfile(account)
	if err != nil {
		sendError(w, ledgerErrorStatus(err), err.Error())
		return
	}
	sendJson(w, http.StatusOK, profile)
}

func (s *Server) resolveUsername(w http.ResponseWriter, r *http.Request) {
	username := getQueryItem(r.URL.Query(), "username")
	if username == "" {
		sendError(w, http.StatusBadRequest, "Missing username")
		return
	}

	profile, err := s.ledger.GetProfileByUsername(username)
	if err != nil {
		sendError(w, ledgerErrorStatus(err), err.Error())
		return
	}
	sendJson(w, http.StatusOK, profile)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	var body struct {
		Content string `json:"content"`
		Media   string `json:"media"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "Unable to decode body")
		return
	}

	id, err := s.ledger.CreatePost(caller, body.Content, body.Media)
	monitoring.RecordOperation("create_post", err)
	if err != nil {
		sendError(w, ledgerErrorStatus(err), err.Error())
		return
	}

	s.timelinesCache.AddPost(RecentFeedName, cache.Post{
		Id:      id,
		Author:  caller,
		Content: body.Content,
		Media:   body.Media,
	})
	s.timelinesCache.TrimTimeline(RecentFeedName, RecentFeedMaxSize)
	s.usersCache.UpdateUserStatistics(caller, 0, 0, 1, 0)
	s.hub.Publish(firehose.NewEvent(firehose.EventPostCreated, caller, "", id))
	sendJson(w, http.StatusCreated, map[string]int64{"id": id})
}

// postSubroutes dispatches /v1/posts/{id}, /v1/posts/{id}/likes and
// /v1/posts/{id}/like.
func (s *Server) postSubroutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/posts/"), "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	switch {
	case len(parts) == 1:
		s.getPost(w, r, id)
	case len(parts) == 2 && parts[1] == "likes":
		s.getPostLikes(w, r, id)
	case len(parts) == 2 && parts[1] == "like":
		s.likePost(w, r, id)
	default:
		sendError(w, http.StatusNotFound, "Unknown route")
	}
}

func (s *Server) getPost(w http.ResponseWriter, _ *http.Request, id int64) {
	post, err := s.ledger.GetPost(id)
	if err != nil {
		sendError(w, ledgerErrorStatus(err), err.Error())
		return
	}
	sendJson(w, http.StatusOK, post)
}

func (s *Server) getPostLikes(w http.ResponseWriter, _ *http.Request, id int64) {
	likes, err := s.ledger.GetPostLikes(id)
	if err != nil {
		sendError(w, ledgerErrorStatus(err), err.Error())
		return
	}
	sendJson(w, http.StatusOK, map[string]int64{"likes": likes})
}

func (s *Server) likePost(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	err := s.ledger.LikePost(caller, id)
	monitoring.RecordOperation("like_post", err)
	if err != nil {
		sendError(w, ledgerErrorStatus(err), err.Error())
		return
	}

	if post, err := s.ledger.GetPost(id); err == nil {
		s.usersCache.UpdateUserStatistics(post.Author, 0, 0, 0, 1)
	}
	s.hub.Publish(firehose.NewEvent(firehose.EventPostLiked, caller, "", id))
	sendJson(w, http.StatusOK, map[string]bool{"liked": true})
}

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	target, ok := s.decodeTarget(w, r)
	if !ok {
		return
	}

	created := s.ledger.Follow(caller, target)
	monitoring.RecordOperation("follow", nil)

	// Counters and events only move when the edge is new; re-follows are
	// accepted no-ops.
	if created {
		s.usersCache.UpdateUserStatistics(caller, 1, 0, 0, 0)
		s.usersCache.UpdateUserStatistics(target, 0, 1, 0, 0)
		s.hub.Publish(firehose.NewEvent(firehose.EventFollowed, caller, target, 0))
	}
	sendJson(w, http.StatusOK, map[string]bool{"following": true})
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	target, ok := s.decodeTarget(w, r)
	if !ok {
		return
	}

	removed := s.ledger.Unfollow(caller, target)
	monitoring.RecordOperation("unfollow", nil)

	if removed {
		s.usersCache.UpdateUserStatistics(caller, -1, 0, 0, 0)
		s.usersCache.UpdateUserStatistics(target, 0, -1, 0, 0)
		s.hub.Publish(firehose.NewEvent(firehose.EventUnfollowed, caller, target, 0))
	}
	sendJson(w, http.StatusOK, map[string]bool{"following": false})
}

func (s *Server) decodeTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == "" {
		sendError(w, http.StatusBadRequest, "Missing target account")
		return "", false
	}
	return body.Target, true
}

func (s *Server) relation(w http.ResponseWriter, r *http.Request) {
	follower := getQueryItem(r.URL.Query(), "follower")
	followee := getQueryItem(r.URL.Query(), "followee")
	if follower == "" || followee == "" {
		sendError(w, http.StatusBadRequest, "Missing follower or followee")
		return
	}
	sendJson(w, http.StatusOK, map[string]bool{
		"following": s.ledger.IsFollowing(follower, followee),
	})
}

func (s *Server) timeline(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()
	account := getQueryItem(queryParams, "account")
	if account == "" {
		sendError(w, http.StatusBadRequest, "Missing account")
		return
	}

	limit := int64(50)
	if limitStr := getQueryItem(queryParams, "limit"); limitStr != "" {
		parsedLimit, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil {
			sendError(w, http.StatusBadRequest, "invalid limit param")
			return
		}
		limit = parsedLimit
	}

	result := s.feed.GetTimeline(feeds.QueryParams{
		Account: account,
		Limit:   limit,
		Cursor:  getQueryItem(queryParams, "cursor"),
	})
	sendJson(w, http.StatusOK, result)
}

func (s *Server) recentFeed(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	limit := int64(50)
	if limitStr := getQueryItem(queryParams, "limit"); limitStr != "" {
		parsedLimit, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil {
			sendError(w, http.StatusBadRequest, "invalid limit param")
			return
		}
		limit = parsedLimit
	}

	start := int64(0)
	if cursor := getQueryItem(queryParams, "cursor"); cursor != "" {
		parsedStart, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			sendError(w, http.StatusBadRequest, "invalid cursor param")
			return
		}
		start = parsedStart
	}

	posts := s.timelinesCache.GetTimeline(RecentFeedName, start, start+limit-1)
	sendJson(w, http.StatusOK, map[string]any{
		"cursor": start + int64(len(posts)),
		"posts":  posts,
	})
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	account, suffix, found := strings.Cut(path, "/")
	if !found || suffix != "stats" || account == "" {
		sendError(w, http.StatusNotFound, "Unknown route")
		return
	}

	statistics := s.usersCache.GetUserStatistics(account)
	sendJson(w, http.StatusOK, map[string]any{
		"statistics":        statistics,
		"engagement_factor": statistics.GetEngagementFactor(),
	})
}
