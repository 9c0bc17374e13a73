// Package wsserver is the WebSocket transport: cookie-based auth gating,
// game routing (explicit id / "current" / auto-join), the handshake-
// deadline-bound first message, and dispatch of every subsequent client
// envelope to the routed Game.
package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/authn"
	"github.com/Ko-stant/dungeon-ai-server/internal/game"
	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/registry"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Server serves the single auth-guarded WebSocket endpoint every client
// connects to.
type Server struct {
	registry          *registry.Registry
	checker           *authn.Checker
	viewportW         int
	viewportH         int
	handshakeDeadline time.Duration
	writeTimeout      time.Duration
	logger            *zap.Logger
}

// New builds a Server. writeTimeout bounds every outgoing frame;
// handshakeDeadline bounds only the very first inbound message, after
// which a connection can sit idle indefinitely between moves.
func New(reg *registry.Registry, checker *authn.Checker, viewportW, viewportH int, handshakeDeadline, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		registry:          reg,
		checker:           checker,
		viewportW:         viewportW,
		viewportH:         viewportH,
		handshakeDeadline: handshakeDeadline,
		writeTimeout:      writeTimeout,
		logger:            logger,
	}
}

// ServeHTTP upgrades the request to a WebSocket and runs its lifetime.
// Auth and routing failures are reported as WebSocket close codes rather
// than HTTP statuses: the close code is only meaningful once the upgrade
// has already happened.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}

	profile, authErr := s.checker.Authenticate(r)
	if authErr != nil {
		var ae *authn.AuthError
		code := websocket.StatusCode(authn.CloseInvalidToken)
		reason := authErr.Error()
		if errors.As(authErr, &ae) {
			code = websocket.StatusCode(ae.Code)
			reason = ae.Message
		}
		_ = conn.Close(code, reason)
		return
	}

	g, ok := s.resolveGame(r, profile.PlayerToken)
	if !ok {
		_ = conn.Close(websocket.StatusPolicyViolation, "unknown game")
		return
	}

	s.run(conn, g, profile.PlayerToken)
}

// resolveGame honors an explicit game_id query parameter, the literal
// value "current" (the player's previously assigned game), or falls back
// to auto-join. An empty game_id is treated like "current": the previously
// assigned game if there is one, else auto-join.
func (s *Server) resolveGame(r *http.Request, token string) (*game.Game, bool) {
	requested := r.URL.Query().Get("game_id")

	switch requested {
	case "", "current":
		if g, ok := s.registry.GetGameForPlayer(token); ok {
			return g, true
		}
		g := s.registry.GetOrCreateJoinableGame(r.Context())
		if err := s.registry.AssignPlayerToGame(token, g.ID); err != nil {
			return nil, false
		}
		return g, true
	default:
		g, ok := s.registry.GetGame(requested)
		if !ok {
			return nil, false
		}
		if err := s.registry.AssignPlayerToGame(token, requested); err != nil {
			return nil, false
		}
		return g, true
	}
}

// run drives one connection's lifetime: the deadline-bound first message,
// the welcome reply, then an unbounded read loop dispatching every
// subsequent envelope until the socket closes.
func (s *Server) run(conn *websocket.Conn, g *game.Game, token string) {
	out := newConnection(conn, s.writeTimeout)

	firstCtx, cancel := context.WithTimeout(context.Background(), s.handshakeDeadline)
	_, firstData, err := conn.Read(firstCtx)
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "handshake timeout")
		return
	}

	var firstEnvelope protocol.ClientEnvelope
	existingPlayerID := ""
	deferredFirst := false
	if json.Unmarshal(firstData, &firstEnvelope) == nil && firstEnvelope.Type == protocol.MsgReconnect {
		var payload protocol.ReconnectPayload
		if json.Unmarshal(firstEnvelope.Payload, &payload) == nil {
			existingPlayerID = payload.PlayerID
		}
	} else {
		deferredFirst = true
	}

	playerID, isReconnection := g.AddPlayer(out, token, existingPlayerID)

	defer func() {
		g.Disconnect(playerID)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	welcome, ok := s.buildWelcome(g, playerID, isReconnection)
	if !ok {
		return
	}
	if err := out.Send(welcome); err != nil {
		return
	}

	if deferredFirst {
		s.dispatch(g, playerID, firstEnvelope)
	}

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			return
		}
		var envelope protocol.ClientEnvelope
		if json.Unmarshal(data, &envelope) != nil {
			continue
		}
		s.dispatch(g, playerID, envelope)
	}
}

func (s *Server) buildWelcome(g *game.Game, playerID string, isReconnection bool) (protocol.ServerEnvelope, bool) {
	vs, ok := g.GetViewportState(playerID, s.viewportW, s.viewportH)
	if !ok {
		return protocol.ServerEnvelope{}, false
	}
	state := map[string]any{
		"gameId":   g.ID,
		"gameName": g.Name,
		"playerId": playerID,
		"viewport": vs,
		"players":  g.Players(),
		"monsters": g.Monsters(),
	}
	return protocol.ServerEnvelope{
		Type: protocol.MsgWelcome,
		Payload: protocol.WelcomePayload{
			PlayerID:       playerID,
			IsReconnection: isReconnection,
			State:          state,
		},
	}, true
}

// dispatch routes one decoded client envelope to the matching Game
// operation and, where the operation produces a direct reply rather than
// only a broadcast, sends it back to playerID alone.
func (s *Server) dispatch(g *game.Game, playerID string, env protocol.ClientEnvelope) {
	switch env.Type {
	case protocol.MsgMove:
		var p protocol.MovePayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		if res := g.MovePlayer(playerID, p.DX, p.DY); !res.Success {
			s.sendTo(g, playerID, protocol.MsgError, protocol.ErrorPayload{Error: "invalid_move"})
		}

	case protocol.MsgInteract:
		outcome := g.Interact(playerID)
		s.sendInteractOutcome(g, playerID, outcome)

	case protocol.MsgRequestFight:
		var p protocol.RequestFightPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.sendIfFailed(g, playerID, g.StartFight(playerID, p.MonsterID))

	case protocol.MsgJoinFight:
		var p protocol.JoinFightPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.sendIfFailed(g, playerID, g.JoinFight(playerID, p.FightID))

	case protocol.MsgDeclineFight:
		s.sendTo(g, playerID, protocol.MsgFightDeclined, protocol.FightDeclinedPayload{})

	case protocol.MsgFleeFight:
		var p protocol.FleeFightPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.sendIfFailed(g, playerID, g.FleeFight(playerID, p.FightID))

	case protocol.MsgCombatAction:
		var p protocol.CombatActionPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.sendIfFailed(g, playerID, g.ProcessCombatAction(playerID, p.FightID, p.Action))

	case protocol.MsgPing:
		s.sendTo(g, playerID, protocol.MsgPong, nil)
	}
}

// sendIfFailed reports a combat ActionResult's validation failure back to
// the acting player alone; successful results already broadcast their own
// state_update/fight_* messages from within the Game method that produced
// them.
func (s *Server) sendIfFailed(g *game.Game, playerID string, res game.ActionResult) {
	if res.Success {
		return
	}
	s.sendTo(g, playerID, protocol.MsgError, protocol.ErrorPayload{Error: res.Error})
}

// sendInteractOutcome turns an Interact result that doesn't already
// broadcast itself into the matching direct reply to the acting player.
// "door_toggled" and "nothing" need no further message: the door toggle
// already broadcast its own state_update.
func (s *Server) sendInteractOutcome(g *game.Game, playerID string, outcome game.InteractOutcome) {
	switch outcome.Result {
	case "fight_request":
		monster, _ := g.Monster(outcome.MonsterID)
		s.sendTo(g, playerID, protocol.MsgFightRequest, protocol.FightRequestPayload{
			Monster: monster, MonsterID: outcome.MonsterID,
		})
	case "can_join_fight":
		fight, _ := g.Fight(outcome.FightID)
		monster, _ := g.Monster(outcome.MonsterID)
		s.sendTo(g, playerID, protocol.MsgCanJoinFight, protocol.CanJoinFightPayload{
			FightID: outcome.FightID, Fight: fight, Monster: monster,
		})
	case "already_in_fight":
		s.sendTo(g, playerID, protocol.MsgError, protocol.ErrorPayload{Error: "already_in_fight"})
	}
}

func (s *Server) sendTo(g *game.Game, playerID, msgType string, payload any) {
	g.SendTo(playerID, protocol.ServerEnvelope{Type: msgType, Payload: payload})
}
