package handlers

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hike-social/hike/app"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
	"github.com/nats-io/nats.go"
)

type FriendSendPacket struct {
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
}

type FriendResponsePacket struct {
	RequestID uuid.UUID `json:"requestId"`
}

type FriendRemovePacket struct {
	UserID   uuid.UUID `json:"userId"`
	FriendID uuid.UUID `json:"friendId"`
}

type UserPacket struct {
	UserID uuid.UUID `json:"userId"`
}

type FriendRequestsPacket struct {
	UserID uuid.UUID `json:"userId"`
	Status string    `json:"status"`
}

func RegisterFriends(nc *nats.Conn, h *app.Hike) {
	subscribe(nc, h.RequestTimeout, "friends.send", sendHandler(h))
	subscribe(nc, h.RequestTimeout, "friends.accept", acceptHandler(h))
	subscribe(nc, h.RequestTimeout, "friends.decline", declineHandler(h))
	subscribe(nc, h.RequestTimeout, "friends.remove", removeHandler(h))
	subscribe(nc, h.RequestTimeout, "friends.list", listHandler(h))
	subscribe(nc, h.RequestTimeout, "friends.recommend", recommendHandler(h))
	subscribe(nc, h.RequestTimeout, "friends.requests", requestsHandler(h))
}

func sendHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet FriendSendPacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("FriendSendPacket", data)
		}
		id, err := h.Friends.SendRequest(ctx, packet.SenderID, packet.ReceiverID)
		if err != nil {
			return failure(err)
		}
		return ok("SUCCESS", FriendResponsePacket{RequestID: id})
	}
}

func acceptHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet FriendResponsePacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("FriendResponsePacket", data)
		}
		req, err := h.Friends.AcceptRequest(ctx, packet.RequestID)
		if err != nil {
			return failure(err)
		}
		return ok("SUCCESS", req)
	}
}

func declineHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet FriendResponsePacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("FriendResponsePacket", data)
		}
		req, err := h.Friends.RejectRequest(ctx, packet.RequestID)
		if err != nil {
			return failure(err)
		}
		return ok("SUCCESS", req)
	}
}

func removeHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet FriendRemovePacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("FriendRemovePacket", data)
		}
		if err := h.Friends.RemoveFriend(ctx, packet.UserID, packet.FriendID); err != nil {
			return failure(err)
		}
		return ok("SUCCESS", nil)
	}
}

func listHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet UserPacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("UserPacket", data)
		}
		friends, err := h.Friends.Friends(ctx, packet.UserID)
		if err != nil {
			return failure(err)
		}
		return ok("SUCCESS", friends)
	}
}

func recommendHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet UserPacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("UserPacket", data)
		}
		recs, err := h.Friends.Recommend(ctx, packet.UserID)
		if err != nil {
			return failure(err)
		}
		return ok("SUCCESS", recs)
	}
}

func requestsHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet FriendRequestsPacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("FriendRequestsPacket", data)
		}
		status, err := models.ParseStatus(packet.Status)
		if err != nil {
			return failure(errs.ErrInvalidInput)
		}
		views, err := h.Friends.ListRequestsFor(ctx, packet.UserID, status)
		if err != nil {
			return failure(err)
		}
		return ok("SUCCESS", views)
	}
}
