// Package api serves the HTTP interface under /api.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hike-social/hike/app"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/metrics"
)

var (
	errAccessDenied = fmt.Errorf("%w: access denied", errs.ErrUnauthorized)
	errNoStorage    = fmt.Errorf("object storage is not configured")
)

type server struct {
	app *app.Hike
}

// NewRouter returns the full route table, including /metrics and the
// health check on /.
func NewRouter(h *app.Hike) *mux.Router {
	s := &server{app: h}
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/", health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.Use(withTimeout(h.RequestTimeout))

	a.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	a.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	a.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)

	a.HandleFunc("/friend/send", s.sendRequest).Methods(http.MethodPost)
	a.HandleFunc("/friend/accept/{requestId}", s.acceptRequest).Methods(http.MethodGet)
	a.HandleFunc("/friend/decline/{requestId}", s.declineRequest).Methods(http.MethodDelete)
	a.HandleFunc("/friend/unfriend/{userId}", s.unfriend).Methods(http.MethodPost)
	a.HandleFunc("/friend/friends/{userId}", s.listFriends).Methods(http.MethodGet)
	a.HandleFunc("/friend/recommendations/{userId}", s.recommend).Methods(http.MethodGet)
	a.HandleFunc("/friend/friendRequests", s.friendRequests).Methods(http.MethodPost)

	a.HandleFunc("/user", requireAuth(h.Tokens, s.listUsers)).Methods(http.MethodGet)
	a.HandleFunc("/user/getUploadUrl", s.uploadURL).Methods(http.MethodPost)
	a.HandleFunc("/user/updateProfilePic", s.updateProfilePic).Methods(http.MethodPost)
	a.HandleFunc("/user/{id}", requireAuth(h.Tokens, s.getUser)).Methods(http.MethodGet)
	a.HandleFunc("/user/{id}", s.updateUser).Methods(http.MethodPut)
	a.HandleFunc("/user/{id}", requireAuth(h.Tokens, s.deleteUser)).Methods(http.MethodDelete)

	a.HandleFunc("/posts", s.createPost).Methods(http.MethodPost)
	a.HandleFunc("/posts", s.listPosts).Methods(http.MethodGet)
	a.HandleFunc("/posts/feed/{userId}", s.feed).Methods(http.MethodGet)
	a.HandleFunc("/posts/{id}", s.getPost).Methods(http.MethodGet)
	a.HandleFunc("/posts/{id}", s.updatePost).Methods(http.MethodPut)
	a.HandleFunc("/posts/{id}", s.deletePost).Methods(http.MethodDelete)
	a.HandleFunc("/posts/{id}/getUploadUrl", s.postUploadURL).Methods(http.MethodPost)

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("API is running..."))
}
