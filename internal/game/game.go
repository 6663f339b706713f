package game

// Phase is one stage of a room's round lifecycle.
type Phase string

const (
	PhaseWaiting       Phase = "WAITING"
	PhasePrompt        Phase = "PROMPT"
	PhaseDrawing       Phase = "DRAWING"
	PhaseRoundReplay   Phase = "ROUND_REPLAY"
	PhaseRoundStanding Phase = "ROUND_STANDING"
	PhaseGameEnd       Phase = "GAME_END"
)

// MidRound reports whether a round is in flight. Joins during a mid-round
// phase must go through the waitlist, never straight into the roster.
func (p Phase) MidRound() bool {
	return p == PhasePrompt || p == PhaseDrawing
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhasePrompt, PhaseDrawing, PhaseRoundReplay, PhaseRoundStanding, PhaseGameEnd:
		return true
	}
	return false
}

// Settings are the per-room knobs fixed at creation time.
type Settings struct {
	DrawingTime int `json:"drawingTime"` // seconds
	TotalRounds int `json:"totalRounds"`
	MaxPlayers  int `json:"maxPlayer"`
}

// Bounds are the site-configured limits on room settings.
type Bounds struct {
	MinPlayers     int
	MaxPlayers     int
	MinRounds      int
	MaxRounds      int
	MinDrawingTime int
	MaxDrawingTime int
}

func DefaultBounds() Bounds {
	return Bounds{
		MinPlayers:     2,
		MaxPlayers:     8,
		MinRounds:      1,
		MaxRounds:      10,
		MinDrawingTime: 10,
		MaxDrawingTime: 120,
	}
}

// Validate checks s against b, returning ErrConfigInvalid with the offending
// field named.
func (s Settings) Validate(b Bounds) error {
	if s.MaxPlayers < b.MinPlayers || s.MaxPlayers > b.MaxPlayers {
		return configErr("maxPlayer", s.MaxPlayers, b.MinPlayers, b.MaxPlayers)
	}
	if s.TotalRounds < b.MinRounds || s.TotalRounds > b.MaxRounds {
		return configErr("totalRounds", s.TotalRounds, b.MinRounds, b.MaxRounds)
	}
	if s.DrawingTime < b.MinDrawingTime || s.DrawingTime > b.MaxDrawingTime {
		return configErr("drawingTime", s.DrawingTime, b.MinDrawingTime, b.MaxDrawingTime)
	}
	return nil
}

// Player is one roster slot. IsHost is derived from roster order on read:
// the earliest-joined player is host.
type Player struct {
	SocketID  string `json:"socketId"`
	Nickname  string `json:"nickname"`
	ProfileID string `json:"profileId"`
	IsHost    bool   `json:"isHost"`
}

// WaitlistEntry is a join request parked until the room reaches a safe phase.
type WaitlistEntry struct {
	SocketID  string `json:"socketId"`
	Nickname  string `json:"nickname"`
	ProfileID string `json:"profileId"`
}

// Room is the authoritative record as read back from the shared store.
type Room struct {
	ID           string   `json:"roomId"`
	Players      []Player `json:"players"`
	Phase        Phase    `json:"phase"`
	CurrentRound int      `json:"currentRound"`
	Settings     Settings `json:"settings"`
}

// Host returns the current host, or nil for an empty room.
func (r *Room) Host() *Player {
	if len(r.Players) == 0 {
		return nil
	}
	return &r.Players[0]
}

// HasPlayer reports whether socketID is on the roster.
func (r *Room) HasPlayer(socketID string) bool {
	for _, p := range r.Players {
		if p.SocketID == socketID {
			return true
		}
	}
	return false
}

// RGB is a stroke color channel triple.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Stroke is one continuous pen-down-to-pen-up path, stored as parallel
// coordinate slices. Immutable once submitted.
type Stroke struct {
	Xs    []float64 `json:"xs"`
	Ys    []float64 `json:"ys"`
	Color RGB       `json:"color"`
}

// Len returns the number of points in the stroke.
func (s Stroke) Len() int { return len(s.Xs) }

// WellFormed reports whether the stroke has matching, non-empty coordinate
// slices.
func (s Stroke) WellFormed() bool {
	return len(s.Xs) >= 1 && len(s.Xs) == len(s.Ys)
}
