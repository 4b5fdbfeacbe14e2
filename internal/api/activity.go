package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/api/acquisitions"
	"github.com/hbomb79/mediagetter/internal/api/util"
	"github.com/hbomb79/mediagetter/internal/http/websocket"
)

const (
	TITLE_ACQUISITION_UPDATE  = "ACQUISITION_UPDATE"
	TITLE_ACQUISITION_REMOVED = "ACQUISITION_REMOVED"
)

type broadcaster struct {
	socketHub          *websocket.SocketHub
	acquisitionService acquisitions.Service
}

func newBroadcaster(socketHub *websocket.SocketHub, acquisitionService acquisitions.Service) *broadcaster {
	return &broadcaster{socketHub, acquisitionService}
}

func (hub *broadcaster) BroadcastAcquisitionUpdate(id uuid.UUID) error {
	acquisition := hub.acquisitionService.GetAcquisition(id)
	if acquisition == nil {
		return fmt.Errorf("acquisition %s no longer exists", id)
	}

	hub.broadcast(TITLE_ACQUISITION_UPDATE, map[string]any{
		"acquisition_id": id,
		"acquisition":    acquisitions.NewDto(acquisition),
	})

	return nil
}

func (hub *broadcaster) BroadcastAcquisitionRemoved(id uuid.UUID) error {
	hub.broadcast(TITLE_ACQUISITION_REMOVED, map[string]any{"acquisition_id": id})
	return nil
}

func (hub *broadcaster) broadcast(title string, body map[string]any) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  body,
		Type:  websocket.Update,
	})
}

// connectionPayload furnishes newly connected clients with every
// acquisition currently known.
func (hub *broadcaster) connectionPayload() map[string]any {
	all := hub.acquisitionService.GetAllAcquisitions()
	return map[string]any{"acquisitions": util.ApplyConversion(all, acquisitions.NewDto)}
}

func (hub *broadcaster) listAcquisitions(socket *websocket.SocketHub, command *websocket.SocketMessage) error {
	socket.Send(command.FormReply("ACQUISITIONS", hub.connectionPayload(), websocket.Response))
	return nil
}
