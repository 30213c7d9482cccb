package api

import (
	"fmt"
	"net/http"

	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
)

type sendRequestBody struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

func (s *server) sendRequest(w http.ResponseWriter, r *http.Request) {
	var body sendRequestBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	sender, err := parseID("senderId", body.SenderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	receiver, err := parseID("receiverId", body.ReceiverID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.app.Friends.SendRequest(r.Context(), sender, receiver)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Friend request sent successfully.",
		"data":    map[string]interface{}{"requestId": id},
	})
}

func (s *server) acceptRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "requestId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.app.Friends.AcceptRequest(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Friend request accepted and users are now friends.",
	})
}

func (s *server) declineRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "requestId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.app.Friends.RejectRequest(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Friend request rejected and removed.",
	})
}

func (s *server) unfriend(w http.ResponseWriter, r *http.Request) {
	user, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		UnfriendID string `json:"unfriendId"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	other, err := parseID("unfriendId", body.UnfriendID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.app.Friends.RemoveFriend(r.Context(), user, other); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Friend removed successfully.",
	})
}

func (s *server) listFriends(w http.ResponseWriter, r *http.Request) {
	user, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	friends, err := s.app.Friends.Friends(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"friends": friends})
}

func (s *server) recommend(w http.ResponseWriter, r *http.Request) {
	user, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := s.app.Friends.Recommend(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Recommended users fetched successfully."
	if len(recs) == 0 {
		msg = "No new users to recommend."
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"error":       false,
		"recommended": recs,
		"message":     msg,
	})
}

var errNoUserID = fmt.Errorf("%w: no user id provided", errs.ErrUnauthorized)

func (s *server) friendRequests(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Status string `json:"status"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.UserID == "" {
		writeError(w, r, errNoUserID)
		return
	}
	user, err := parseID("userId", body.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := models.ParseStatus(body.Status)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err))
		return
	}

	views, err := s.app.Friends.ListRequestsFor(r.Context(), user, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": views})
}
