package protocol

// AUTH (client -> server)
type AuthMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Username        string `json:"username"`
	Token           string `json:"token"`
}

// SET_USERNAME (client -> server): finalizes the spawn.
type SetUsernameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Name            string `json:"name"`
}

type MoveMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version,omitempty"`
	DX              float64 `json:"dx"`
	DY              float64 `json:"dy"`
}

type OrbitControlMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version,omitempty"`
	OrbitDist       float64 `json:"orbit_dist"`
}

type PickupMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ItemID          string `json:"item_id"`
}

type EquipMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	InvIndex        int    `json:"inv_index"`
	HotbarIndex     int    `json:"hotbar_index"`
}

type UnequipMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	HotbarIndex     int    `json:"hotbar_index"`
}

type RespawnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

type ChatMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Text            string `json:"text"`
}

// AUTH_OK (server -> client)
type AuthOKMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Username        string `json:"username"`
	ConnID          string `json:"conn_id"`
	Restored        bool   `json:"restored"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// WORLD_SNAPSHOT (server -> joining client): full state on spawn.
type WorldSnapshotMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	SelfID          string          `json:"self_id"`
	World           WorldParams     `json:"world"`
	Catalogs        CatalogDigests  `json:"catalogs"`
	Players         []PlayerView    `json:"players"`
	Items           []WorldItemView `json:"items"`
	Mobs            []MobView       `json:"mobs"`
	Inventory       []*SlotView     `json:"inventory"`
	Hotbar          []*ItemView     `json:"hotbar"`
}

type WorldParams struct {
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Zones      int      `json:"zones"`
	Rarities   []string `json:"rarities"`
	TickRateHz int      `json:"tick_rate_hz"`
}

type CatalogDigests struct {
	Rarities string `json:"rarities"`
	Items    string `json:"items"`
	Mobs     string `json:"mobs"`
}

type PlayerUpdateMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Players         []PlayerView `json:"players"`
}

type ItemsUpdateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	Items           []WorldItemView `json:"items"`
}

type MobsUpdateMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Mobs            []MobView `json:"mobs"`
}

type PlayerJoinMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Player          PlayerView `json:"player"`
}

type PlayerLeaveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
}

type PlayerDeadMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	KillerID        string `json:"killer_id,omitempty"`
}

type RespawnSuccessMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Player          PlayerView `json:"player"`
}

// ITEM_SPAWN is delivered only to the players credited with the kill.
type ItemSpawnMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	MobID           string        `json:"mob_id"`
	Item            WorldItemView `json:"item"`
}

type MobDeadMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	KillerID        string `json:"killer_id,omitempty"`
}

type InventoryUpdateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Inventory       []*SlotView `json:"inventory"`
}

type HotbarUpdateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Hotbar          []*ItemView `json:"hotbar"`
}

type ChatMessageMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	From            string `json:"from"`
	Username        string `json:"username"`
	Text            string `json:"text"`
	At              int64  `json:"at"`
}

type PlayerView struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Radius      float64     `json:"radius"`
	Health      int         `json:"health"`
	MaxHealth   int         `json:"max_health"`
	OrbitAngle  float64     `json:"orbit_angle"`
	OrbitRadius float64     `json:"orbit_radius"`
	Invincible  bool        `json:"invincible,omitempty"`
	Dead        bool        `json:"dead,omitempty"`
	IsAdmin     bool        `json:"is_admin,omitempty"`
	Hotbar      []*ItemView `json:"hotbar"`
}

type ItemView struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	Rarity    string `json:"rarity"`
	Damage    int    `json:"damage"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
	Reloading bool   `json:"reloading,omitempty"`
}

type SlotView struct {
	Item  ItemView `json:"item"`
	Count int      `json:"count"`
}

type WorldItemView struct {
	ID     string   `json:"id"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Radius float64  `json:"radius"`
	Item   ItemView `json:"item"`
}

type MobView struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Rarity    string  `json:"rarity"`
	Health    int     `json:"health"`
	MaxHealth int     `json:"max_health"`
}
