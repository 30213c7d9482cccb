package handlers

import (
	"context"
	"encoding/json"

	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/app"
	"github.com/nats-io/nats.go"
)

// AccountLookupPacket names an account by email or by name.
type AccountLookupPacket struct {
	Query string `json:"query"`
}

// RegisterAccountHandlers serves account lookups for other services.
func RegisterAccountHandlers(nc *nats.Conn, h *app.Hike) {
	subscribe(nc, h.RequestTimeout, "accounts.find", findAccountHandler(h))
}

func findAccountHandler(h *app.Hike) handlerFunc {
	return func(ctx context.Context, data []byte) ResponsePacket {
		var packet AccountLookupPacket
		if err := json.Unmarshal(data, &packet); err != nil {
			return invalidPacket("AccountLookupPacket", data)
		}
		acc, found, err := h.Accounts.FindByEmailOrName(ctx, packet.Query)
		if err != nil {
			return failure(err)
		}
		if !found {
			return failure(accounts.ErrAccountNotFound)
		}
		return ok("SUCCESS", acc.Excerpt())
	}
}
