package api

import (
	"net/http"

	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/media"
	"github.com/hike-social/hike/models"
)

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	all, err := s.app.Accounts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Excerpts(all))
}

func (s *server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.app.Accounts.Find(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc.Excerpt())
}

func (s *server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.app.Accounts.Update(r.Context(), id, accounts.AccountUpdate{Name: body.Name, Email: body.Email})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "New data for " + acc.Name + " has been updated!",
		"user":    acc.Excerpt(),
	})
}

func (s *server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeError(w, r, errAccessDenied)
		return
	}
	if caller, err := claims.AccountID(); err != nil || caller != id {
		writeError(w, r, errAccessDenied)
		return
	}
	if err := s.app.Accounts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "User deleted successfully"})
}

func (s *server) uploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID("userId", body.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.app.Media == nil || s.app.Bucket == "" {
		writeError(w, r, errs.Unavailable("upload url", errNoStorage))
		return
	}
	if _, err := s.app.Accounts.Find(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	key := media.ProfilePicKey(id)
	upload, err := s.app.Media.IssueUploadURL(r.Context(), s.app.Bucket, key, s.app.UploadURLTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uploadUrl":     upload,
		"profilePicUrl": media.PublicURL(s.app.Bucket, s.app.Region, key),
	})
}

func (s *server) updateProfilePic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID        string `json:"userId"`
		ProfilePicURL string `json:"profilePicUrl"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID("userId", body.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.app.Accounts.Update(r.Context(), id, accounts.AccountUpdate{ProfilePic: &body.ProfilePicURL})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile picture uploaded successfully",
		"user":    acc.Excerpt(),
	})
}
