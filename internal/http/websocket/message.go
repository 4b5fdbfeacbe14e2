package websocket

import (
	"fmt"

	"github.com/google/uuid"
)

type socketMessageType int

const (
	Update socketMessageType = iota
	Command
	Response
	ErrorResponse
	Welcome
)

// SocketMessage is the envelope for every message exchanged over a socket.
// Replies carry the Id of the message they answer. Origin is set on
// received messages to the client which sent it, and Target restricts a
// sent message to a single client.
type SocketMessage struct {
	Title  string            `json:"title"`
	Body   map[string]any    `json:"arguments"`
	Id     int               `json:"id"`
	Type   socketMessageType `json:"type"`
	Origin *uuid.UUID        `json:"-"`
	Target *uuid.UUID        `json:"-"`
}

// ValidateArguments checks that each key in required is present in the
// body, with a value of the named primitive type ("string" or "number").
func (message *SocketMessage) ValidateArguments(required map[string]string) error {
	const errFmt = "failed to validate key '%v' with type '%v' - %#v"

	for key, kind := range required {
		v, ok := message.Body[key]
		if !ok {
			return fmt.Errorf("failed to validate key '%v' - key is missing", key)
		}

		switch kind {
		case "number", "int":
			if _, ok := v.(float64); !ok {
				return fmt.Errorf(errFmt, key, kind, v)
			}
		case "string":
			if s, ok := v.(string); !ok || s == "" {
				return fmt.Errorf(errFmt, key, kind, v)
			}
		default:
			return fmt.Errorf(errFmt, key, kind, "unknown type")
		}
	}

	return nil
}

// FormReply returns a NEW message addressed to the sender of this one,
// with the same Id so the client can pair the two.
func (message *SocketMessage) FormReply(replyTitle string, replyBody map[string]any, replyType socketMessageType) *SocketMessage {
	if replyBody == nil {
		replyBody = make(map[string]any)
	}
	replyBody["command"] = message.Body

	return &SocketMessage{
		Title:  replyTitle,
		Body:   replyBody,
		Type:   replyType,
		Id:     message.Id,
		Target: message.Origin,
	}
}
