package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/hike-social/hike/env"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/metrics"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// ResponsePacket is the reply to every request on a hike subject. Message
// holds an ERR_ code when Success is false.
type ResponsePacket struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// handlerFunc answers one request payload.
type handlerFunc func(ctx context.Context, data []byte) ResponsePacket

func ok(message string, data interface{}) ResponsePacket {
	return ResponsePacket{Success: true, Message: message, Data: data}
}

func failure(err error) ResponsePacket {
	return ResponsePacket{Success: false, Message: errs.Code(err)}
}

func invalidPacket(kind string, data []byte) ResponsePacket {
	logrus.Warnf("Invalid %s message format: %s", kind, data)
	return ResponsePacket{Success: false, Message: errs.Code(errs.ErrInvalidInput)}
}

// subscribe serves subject with fn, each request bounded by timeout.
func subscribe(nc *nats.Conn, timeout time.Duration, subject string, fn handlerFunc) {
	_, err := nc.Subscribe(env.EnsurePrefixed(subject), func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp := fn(ctx, msg.Data)
		metrics.NATSRequests.WithLabelValues(subject, strconv.FormatBool(resp.Success)).Inc()
		reply(msg, resp)
	})
	if err != nil {
		logrus.Fatalf("Error subscribing to subject %s: %v", subject, err)
	}
	logrus.Infof("Listening for requests on subject '%s'", env.EnsurePrefixed(subject))
}

func reply(msg *nats.Msg, resp ResponsePacket) {
	ack, err := json.Marshal(&resp)
	if err != nil {
		logrus.Errorf("Error marshalling response packet: %v", err)
		return
	}
	if err := msg.Respond(ack); err != nil {
		logrus.Errorf("Error sending acknowledgment: %v", err)
	}
}
