package protocol_test

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petalarena.io/internal/protocol"
)

func TestDecoder_ValidSamples(t *testing.T) {
	d, err := protocol.NewDecoder()
	require.NoError(t, err)

	cases := []struct {
		raw  string
		want any
	}{
		{`{"type":"AUTH","protocol_version":"1.0","username":"ana","token":"t0k"}`,
			&protocol.AuthMsg{Type: "AUTH", ProtocolVersion: "1.0", Username: "ana", Token: "t0k"}},
		{`{"type":"SET_USERNAME","name":"ana"}`,
			&protocol.SetUsernameMsg{Type: "SET_USERNAME", Name: "ana"}},
		{`{"type":"MOVE","dx":1.5,"dy":-2}`,
			&protocol.MoveMsg{Type: "MOVE", DX: 1.5, DY: -2}},
		{`{"type":"ORBIT_CONTROL","orbit_dist":80}`,
			&protocol.OrbitControlMsg{Type: "ORBIT_CONTROL", OrbitDist: 80}},
		{`{"type":"PICKUP","item_id":"I7"}`,
			&protocol.PickupMsg{Type: "PICKUP", ItemID: "I7"}},
		{`{"type":"EQUIP","inv_index":3,"hotbar_index":0}`,
			&protocol.EquipMsg{Type: "EQUIP", InvIndex: 3, HotbarIndex: 0}},
		{`{"type":"UNEQUIP","hotbar_index":4}`,
			&protocol.UnequipMsg{Type: "UNEQUIP", HotbarIndex: 4}},
		{`{"type":"RESPAWN"}`,
			&protocol.RespawnMsg{Type: "RESPAWN"}},
		{`{"type":"CHAT","text":"hi"}`,
			&protocol.ChatMsg{Type: "CHAT", Text: "hi"}},
	}
	for _, c := range cases {
		got, err := d.Decode([]byte(c.raw))
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}
}

func TestDecoder_Rejects(t *testing.T) {
	d, err := protocol.NewDecoder()
	require.NoError(t, err)

	cases := []struct {
		raw  string
		want error
	}{
		{`not json`, protocol.ErrInvalid},
		{`{"type":"TELEPORT","x":1}`, protocol.ErrUnknownType},
		{`{"type":"MOVE","protocol_version":"0.1","dx":1,"dy":1}`, protocol.ErrVersion},
		{`{"type":"MOVE","dx":"far","dy":1}`, protocol.ErrInvalid},
		{`{"type":"MOVE","dx":1}`, protocol.ErrInvalid},
		{`{"type":"EQUIP","inv_index":-1,"hotbar_index":0}`, protocol.ErrInvalid},
		{`{"type":"EQUIP","inv_index":1.5,"hotbar_index":0}`, protocol.ErrInvalid},
		{`{"type":"PICKUP","item_id":"I1","extra":true}`, protocol.ErrInvalid},
		{`{"type":"AUTH","username":"","token":"x"}`, protocol.ErrInvalid},
	}
	for _, c := range cases {
		_, err := d.Decode([]byte(c.raw))
		require.Error(t, err, c.raw)
		assert.True(t, eris.Is(err, c.want), "%s: %v", c.raw, err)
	}
}

func TestEncode_CarriesType(t *testing.T) {
	b, err := protocol.Encode(protocol.PlayerLeaveMsg{Type: protocol.TypePlayerLeave, ProtocolVersion: protocol.Version, ID: "c1"})
	require.NoError(t, err)
	base, err := protocol.DecodeBase(b)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypePlayerLeave, base.Type)
	assert.Equal(t, protocol.Version, base.ProtocolVersion)
}
