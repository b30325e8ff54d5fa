// Package session runs the per-connection state machine: authentication,
// profile restore, spawn and command dispatch into the arena.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"petalarena.io/internal/persistence/identity"
	"petalarena.io/internal/persistence/profile"
	"petalarena.io/internal/protocol"
	"petalarena.io/internal/sim/arena"
)

type State int

const (
	StatePending State = iota
	StateAuthenticated
	StateSpawned
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateSpawned:
		return "spawned"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

const loadTimeout = 5 * time.Second

type Options struct {
	World    *arena.World
	Hub      *Hub
	Identity identity.Validator
	// Profiles restores loadouts on authentication. Pass the profile.Writer
	// that saves on leave so queued saves are seen. Nil disables restore.
	Profiles profile.Loader
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

type Gateway struct {
	world    *arena.World
	hub      *Hub
	ident    identity.Validator
	profiles profile.Loader
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	// active holds usernames with an authenticated session.
	active map[string]string
}

func NewGateway(opts Options) (*Gateway, error) {
	if opts.World == nil || opts.Hub == nil || opts.Identity == nil {
		return nil, eris.New("gateway needs a world, a hub and an identity validator")
	}
	return &Gateway{
		world:    opts.World,
		hub:      opts.Hub,
		ident:    opts.Identity,
		profiles: opts.Profiles,
		metrics:  opts.Metrics,
		log:      opts.Logger.With().Str("component", "gateway").Logger(),
		sessions: map[string]*Session{},
		active:   map[string]string{},
	}, nil
}

// Open registers a new pending connection. The id doubles as the player id
// once the session spawns.
func (g *Gateway) Open(id string, h Handle) *Session {
	s := &Session{gw: g, id: id, h: h, log: g.log.With().Str("conn_id", id).Logger()}
	g.mu.Lock()
	g.sessions[id] = s
	n := len(g.sessions)
	g.mu.Unlock()
	g.gauge(n)
	return s
}

func (g *Gateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// Shutdown disconnects every session, persisting spawned players.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	all := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		all = append(all, s)
	}
	g.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

func (g *Gateway) claim(username, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.active[username]; taken {
		return false
	}
	g.active[username] = id
	return true
}

func (g *Gateway) forget(s *Session) {
	g.mu.Lock()
	delete(g.sessions, s.id)
	if s.username != "" && g.active[s.username] == s.id {
		delete(g.active, s.username)
	}
	n := len(g.sessions)
	g.mu.Unlock()
	g.gauge(n)
}

func (g *Gateway) gauge(n int) {
	if g.metrics != nil {
		g.metrics.SetGauge([]string{"sessions"}, float32(n))
	}
}

// Session is one connection's state. Commands on a session are serialized;
// different sessions run concurrently.
type Session struct {
	gw  *Gateway
	id  string
	h   Handle
	log zerolog.Logger

	mu       sync.Mutex
	state    State
	username string
	restored *profile.Profile
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle applies one decoded inbound message. The returned error is for
// logging; only auth failures close the connection, and they do so here.
func (s *Session) Handle(ctx context.Context, msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return eris.Wrap(arena.ErrValidation, "session is closed")
	}

	switch m := msg.(type) {
	case *protocol.AuthMsg:
		return s.authenticate(ctx, m)
	case *protocol.SetUsernameMsg:
		return s.spawn(m)
	}
	if s.state != StateSpawned {
		return eris.Wrapf(arena.ErrValidation, "%T before spawn", msg)
	}

	w := s.gw.world
	switch m := msg.(type) {
	case *protocol.MoveMsg:
		return w.Move(s.id, m.DX, m.DY)
	case *protocol.OrbitControlMsg:
		return w.SetOrbit(s.id, m.OrbitDist)
	case *protocol.PickupMsg:
		return w.Pickup(s.id, m.ItemID)
	case *protocol.EquipMsg:
		return w.Equip(s.id, m.InvIndex, m.HotbarIndex)
	case *protocol.UnequipMsg:
		return w.Unequip(s.id, m.HotbarIndex)
	case *protocol.RespawnMsg:
		return w.Respawn(s.id)
	case *protocol.ChatMsg:
		return w.Chat(s.id, m.Text)
	}
	return eris.Wrapf(arena.ErrValidation, "unhandled message %T", msg)
}

func (s *Session) authenticate(ctx context.Context, m *protocol.AuthMsg) error {
	if s.state != StatePending {
		s.reply(protocol.NewError(protocol.ErrBadState, "already authenticated"))
		return eris.Wrap(arena.ErrValidation, "duplicate AUTH")
	}
	username := strings.TrimSpace(m.Username)
	ok, err := s.gw.ident.Validate(ctx, username, m.Token)
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("identity lookup failed")
	}
	if err != nil || !ok {
		s.reject(protocol.ErrAuthFailed, "invalid credentials")
		return eris.Wrapf(arena.ErrAuth, "bad token for %q", username)
	}
	if !s.gw.claim(username, s.id) {
		s.reject(protocol.ErrDuplicateSession, "username already connected")
		return eris.Wrapf(arena.ErrAuth, "duplicate session for %q", username)
	}
	s.username = username
	s.state = StateAuthenticated

	if s.gw.profiles != nil {
		lctx, cancel := context.WithTimeout(ctx, loadTimeout)
		p, found, err := s.gw.profiles.Load(lctx, username)
		cancel()
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("username", username).Msg("profile load failed; using starter loadout")
		case found:
			s.restored = &p
		}
	}

	s.log.Info().Str("username", username).Bool("restored", s.restored != nil).Msg("authenticated")
	s.reply(protocol.AuthOKMsg{
		Type:            protocol.TypeAuthOK,
		ProtocolVersion: protocol.Version,
		Username:        username,
		ConnID:          s.id,
		Restored:        s.restored != nil,
	})
	return nil
}

func (s *Session) spawn(m *protocol.SetUsernameMsg) error {
	if s.state != StateAuthenticated {
		s.reply(protocol.NewError(protocol.ErrBadState, "SET_USERNAME needs an authenticated, unspawned session"))
		return eris.Wrapf(arena.ErrValidation, "SET_USERNAME in state %s", s.state)
	}
	if strings.TrimSpace(m.Name) != s.username {
		s.reply(protocol.NewError(protocol.ErrBadRequest, "name must match the authenticated username"))
		return eris.Wrap(arena.ErrValidation, "username mismatch")
	}

	req := arena.JoinRequest{ID: s.id, Username: s.username}
	if s.restored != nil {
		req.Hotbar = s.restored.Hotbar
		req.Inventory = s.restored.Inventory
	}
	// Registered first so the joiner receives its own WORLD_SNAPSHOT.
	s.gw.hub.Register(s.id, s.h)
	if _, err := s.gw.world.Join(req); err != nil {
		s.gw.hub.Unregister(s.id)
		s.reply(protocol.NewError(protocol.ErrInternal, "spawn failed"))
		return err
	}
	s.restored = nil
	s.state = StateSpawned
	return nil
}

// reply writes straight to this connection, bypassing the hub.
func (s *Session) reply(msg any) {
	b, err := protocol.Encode(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("encode reply")
		return
	}
	s.h.Send(b)
}

func (s *Session) reject(code, message string) {
	s.reply(protocol.NewError(code, message))
	if protocol.Closes(code) {
		s.closeLocked()
	}
}

// Close disconnects the session. Spawned players are removed from the world
// and their loadout persisted. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.state == StateDisconnected {
		return
	}
	if s.state == StateSpawned {
		s.gw.hub.Unregister(s.id)
		s.gw.world.Leave(s.id)
	}
	s.state = StateDisconnected
	s.gw.forget(s)
	s.h.Close()
	s.log.Debug().Str("username", s.username).Msg("session closed")
}
