package models

import (
	"strings"

	"github.com/dyluth/cantas/pkg/board"
)

const roomPrefix = "board:"

// BoardRoom names the realtime room of a board.
func BoardRoom(boardID string) string {
	return roomPrefix + boardID
}

// BroadcastRoom returns the room of the board a broadcast concerns: the board
// itself for board channels, otherwise the payload's "boardId". Broadcasts
// about entities outside any board have no room.
func BroadcastRoom(b board.Broadcast) string {
	payload, ok := b.Payload.(map[string]any)
	if !ok {
		return ""
	}
	if strings.HasPrefix(b.Channel, "/"+Type(Board).WireName()+"/") || strings.HasPrefix(b.Channel, "/"+Type(Board).WireName()+":") {
		if id, _ := payload[board.IDKey].(string); id != "" {
			return BoardRoom(id)
		}
		return ""
	}
	if id, _ := payload["boardId"].(string); id != "" {
		return BoardRoom(id)
	}
	return ""
}
