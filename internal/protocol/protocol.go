package protocol

import (
	json "github.com/goccy/go-json"
)

const Version = "1.0"

// Client -> server.
const (
	TypeAuth         = "AUTH"
	TypeSetUsername  = "SET_USERNAME"
	TypeMove         = "MOVE"
	TypeOrbitControl = "ORBIT_CONTROL"
	TypePickup       = "PICKUP"
	TypeEquip        = "EQUIP"
	TypeUnequip      = "UNEQUIP"
	TypeRespawn      = "RESPAWN"
	TypeChat         = "CHAT"
)

// Server -> client.
const (
	TypeAuthOK          = "AUTH_OK"
	TypeError           = "ERROR"
	TypeWorldSnapshot   = "WORLD_SNAPSHOT"
	TypePlayerUpdate    = "PLAYER_UPDATE"
	TypeItemsUpdate     = "ITEMS_UPDATE"
	TypeMobsUpdate      = "MOBS_UPDATE"
	TypePlayerJoin      = "PLAYER_JOIN"
	TypePlayerLeave     = "PLAYER_LEAVE"
	TypePlayerDead      = "PLAYER_DEAD"
	TypeRespawnSuccess  = "RESPAWN_SUCCESS"
	TypeItemSpawn       = "ITEM_SPAWN"
	TypeMobDead         = "MOB_DEAD"
	TypeInventoryUpdate = "INVENTORY_UPDATE"
	TypeHotbarUpdate    = "HOTBAR_UPDATE"
	TypeChatMessage     = "CHAT_MESSAGE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
