package protocol

import (
	"embed"
	"path"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	ErrUnknownType = eris.New("unknown message type")
	ErrInvalid     = eris.New("message failed validation")
	ErrVersion     = eris.New("unsupported protocol_version")
)

var inboundSchemas = map[string]string{
	TypeAuth:         "auth.schema.json",
	TypeSetUsername:  "set_username.schema.json",
	TypeMove:         "move.schema.json",
	TypeOrbitControl: "orbit_control.schema.json",
	TypePickup:       "pickup.schema.json",
	TypeEquip:        "equip.schema.json",
	TypeUnequip:      "unequip.schema.json",
	TypeRespawn:      "respawn.schema.json",
	TypeChat:         "chat.schema.json",
}

// Decoder validates inbound client messages against the embedded schemas and
// decodes them into their typed structs. It is safe for concurrent use.
type Decoder struct {
	schemas map[string]*jsonschema.Schema
}

func NewDecoder() (*Decoder, error) {
	d := &Decoder{schemas: make(map[string]*jsonschema.Schema, len(inboundSchemas))}
	for typ, name := range inboundSchemas {
		b, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, eris.Wrapf(err, "read schema %s", name)
		}
		s, err := jsonschema.CompileString(name, string(b))
		if err != nil {
			return nil, eris.Wrapf(err, "compile schema %s", name)
		}
		d.schemas[typ] = s
	}
	return d, nil
}

// Decode returns one of the inbound *Msg types.
func (d *Decoder) Decode(raw []byte) (any, error) {
	base, err := DecodeBase(raw)
	if err != nil {
		return nil, eris.Wrap(ErrInvalid, err.Error())
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != Version {
		return nil, eris.Wrapf(ErrVersion, "got %q", base.ProtocolVersion)
	}
	s, ok := d.schemas[base.Type]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownType, "type %q", base.Type)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(ErrInvalid, err.Error())
	}
	if err := s.Validate(doc); err != nil {
		return nil, eris.Wrap(ErrInvalid, err.Error())
	}

	var msg any
	switch base.Type {
	case TypeAuth:
		msg = &AuthMsg{}
	case TypeSetUsername:
		msg = &SetUsernameMsg{}
	case TypeMove:
		msg = &MoveMsg{}
	case TypeOrbitControl:
		msg = &OrbitControlMsg{}
	case TypePickup:
		msg = &PickupMsg{}
	case TypeEquip:
		msg = &EquipMsg{}
	case TypeUnequip:
		msg = &UnequipMsg{}
	case TypeRespawn:
		msg = &RespawnMsg{}
	case TypeChat:
		msg = &ChatMsg{}
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, eris.Wrap(ErrInvalid, err.Error())
	}
	return msg, nil
}
