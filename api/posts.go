package api

import (
	"net/http"

	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/media"
	"github.com/hike-social/hike/posts"
)

func (s *server) createPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID  string `json:"userId"`
		Content string `json:"content"`
		Image   string `json:"image"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	author, err := parseID("userId", body.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := s.app.Posts.Create(r.Context(), author, body.Content, body.Image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Post created",
		"post":    post,
	})
}

func (s *server) listPosts(w http.ResponseWriter, r *http.Request) {
	all, err := s.app.Posts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "posts": all})
}

func (s *server) feed(w http.ResponseWriter, r *http.Request) {
	user, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	feed, err := s.app.Posts.Feed(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "posts": feed})
}

func (s *server) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	post, err := s.app.Posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "post": post})
}

func (s *server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Content *string `json:"content"`
		Image   *string `json:"image"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := s.app.Posts.Update(r.Context(), id, posts.PostUpdate{Content: body.Content, Image: body.Image})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post updated",
		"post":    post,
	})
}

func (s *server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.app.Posts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Post deleted"})
}

// postUploadURL issues an upload URL for the image of an existing post. The
// client stores the returned imageUrl with PUT /api/posts/{id}.
func (s *server) postUploadURL(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.app.Media == nil || s.app.Bucket == "" {
		writeError(w, r, errs.Unavailable("upload url", errNoStorage))
		return
	}
	post, err := s.app.Posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := media.PostImageKey(post.UserID, post.ID)
	upload, err := s.app.Media.IssueUploadURL(r.Context(), s.app.Bucket, key, s.app.UploadURLTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uploadUrl": upload,
		"imageUrl":  media.PublicURL(s.app.Bucket, s.app.Region, key),
	})
}
