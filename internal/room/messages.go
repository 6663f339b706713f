package room

import (
	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/pkg/types"
)

// Msg is the actor's inbound message union. Every connection handler talks
// to a room exclusively through these, so per-room orchestration is
// serialized without any in-process locks.
type Msg interface{ isRoomMsg() }

// Join is a socket arriving. It always lands on the waitlist first;
// admission follows immediately when the phase is safe.
type Join struct {
	SocketID  string
	Nickname  string
	ProfileID string
	Outbox    chan types.Outbound // where this client receives events
}

func (Join) isRoomMsg() {}

// Leave is a socket disconnecting. Its side effects (roster removal, host
// handover) complete even though no response channel exists anymore.
type Leave struct{ SocketID string }

func (Leave) isRoomMsg() {}

// Start is the host launching the game from WAITING.
type Start struct{ SocketID string }

func (Start) isRoomMsg() {}

// Submit is a round submission; the strokes are scored server-side.
type Submit struct {
	SocketID string
	Strokes  []game.Stroke
}

func (Submit) isRoomMsg() {}

// Kick is the host removing another player.
type Kick struct {
	SocketID string // issuer
	TargetID string
}

func (Kick) isRoomMsg() {}

// Practice asks for a private prompt; it never touches the shared round.
type Practice struct{ SocketID string }

func (Practice) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// GetState reflects internal state without data races; used by tests.
type GetState struct{ Reply chan View }

func (GetState) isRoomMsg() {}

type View struct {
	Phase      game.Phase
	Round      int
	Players    []game.Player
	NumClients int
	Waitlisted int
	TimeLeft   int
}
