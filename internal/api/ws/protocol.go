// Package ws implements the telephony gateway's media channel: a WebSocket
// carrying JSON-framed events with base64 mu-law audio payloads.
package ws

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Gateway event names. start/media/stop arrive from the gateway;
// clear/media/mark go back out.
const (
	EventStart = "start"
	EventMedia = "media"
	EventStop  = "stop"
	EventClear = "clear"
	EventMark  = "mark"
)

// Decode errors classify malformed inbound frames. The session policy for
// all of them is log-and-ignore.
var (
	ErrMalformedEvent = errors.New("malformed gateway event")
	ErrUnknownEvent   = errors.New("unknown gateway event")
)

// gatewayEvent is the JSON envelope shared by all media channel events.
type gatewayEvent struct {
	Event    string        `json:"event"`
	StreamID string        `json:"streamId,omitempty"`
	Start    *startPayload `json:"start,omitempty"`
	Media    *mediaPayload `json:"media,omitempty"`
	Mark     *markPayload  `json:"mark,omitempty"`
}

type startPayload struct {
	CallID   string `json:"callId"`
	StreamID string `json:"streamId"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

type markPayload struct {
	Name string `json:"name"`
}

// InboundEvent is a decoded gateway event.
type InboundEvent struct {
	Kind     string
	CallID   string
	StreamID string
	Audio    []byte
}

// DecodeInbound parses one inbound frame. Malformed payloads and unknown
// event names are reported, never fatal to the connection.
func DecodeInbound(data []byte) (InboundEvent, error) {
	var ev gatewayEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return InboundEvent{}, ErrMalformedEvent
	}

	switch ev.Event {
	case EventStart:
		if ev.Start == nil || ev.Start.CallID == "" || ev.Start.StreamID == "" {
			return InboundEvent{}, ErrMalformedEvent
		}
		return InboundEvent{Kind: EventStart, CallID: ev.Start.CallID, StreamID: ev.Start.StreamID}, nil
	case EventMedia:
		if ev.Media == nil {
			return InboundEvent{}, ErrMalformedEvent
		}
		audio, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
		if err != nil {
			return InboundEvent{}, ErrMalformedEvent
		}
		return InboundEvent{Kind: EventMedia, Audio: audio}, nil
	case EventStop:
		return InboundEvent{Kind: EventStop}, nil
	default:
		return InboundEvent{}, ErrUnknownEvent
	}
}

// EncodeClear builds the control frame that flushes buffered audio on the
// gateway side.
func EncodeClear(streamID string) ([]byte, error) {
	return json.Marshal(gatewayEvent{Event: EventClear, StreamID: streamID})
}

// EncodeMedia builds an outbound audio frame.
func EncodeMedia(streamID string, audio []byte) ([]byte, error) {
	return json.Marshal(gatewayEvent{
		Event:    EventMedia,
		StreamID: streamID,
		Media:    &mediaPayload{Payload: base64.StdEncoding.EncodeToString(audio)},
	})
}

// EncodeMark builds the control frame signaling utterance completion.
func EncodeMark(streamID, name string) ([]byte, error) {
	return json.Marshal(gatewayEvent{
		Event:    EventMark,
		StreamID: streamID,
		Mark:     &markPayload{Name: name},
	})
}
