package feed

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"deriv-alert-bot/internal/types"
)

// Deriv API wire format. Outbound control messages request or cancel a tick
// stream; inbound messages carry either a tick, an API error, or an echo of a
// request we do not care about.

type subscribeRequest struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
}

type forgetRequest struct {
	Forget string `json:"forget"`
}

type tickMessage struct {
	MsgType string `json:"msg_type"`
	Tick    *struct {
		Symbol string  `json:"symbol"`
		Quote  float64 `json:"quote"`
		Epoch  int64   `json:"epoch"`
	} `json:"tick"`
	Subscription *struct {
		ID string `json:"id"`
	} `json:"subscription"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type decodedTick struct {
	event    types.TickEvent
	streamID string
}

// decodeTick parses an inbound feed message. It returns false for anything
// that is not a usable tick: undecodable payloads and ticks missing a symbol
// are logged and dropped, API errors are logged, other message types are
// silently ignored.
func decodeTick(data []byte) (decodedTick, bool) {
	var msg tickMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warnf("skipping malformed feed message: %v", err)
		return decodedTick{}, false
	}

	if msg.Error != nil {
		log.Warnf("feed returned error %s: %s", msg.Error.Code, msg.Error.Message)
		return decodedTick{}, false
	}

	if msg.Tick == nil {
		return decodedTick{}, false
	}

	if msg.Tick.Symbol == "" {
		log.Warn("skipping malformed tick: missing symbol")
		return decodedTick{}, false
	}

	decoded := decodedTick{
		event: types.TickEvent{
			Instrument: msg.Tick.Symbol,
			Price:      msg.Tick.Quote,
			Timestamp:  time.Unix(msg.Tick.Epoch, 0).UTC(),
		},
	}
	if msg.Subscription != nil {
		decoded.streamID = msg.Subscription.ID
	}
	return decoded, true
}
