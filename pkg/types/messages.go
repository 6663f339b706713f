// Package types defines the JSON contracts exchanged over the room's
// websocket channel and the create-room endpoint.
package types

import (
	"encoding/json"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
)

// Client -> server event names.
const (
	EvtUserJoin     = "user:join"
	EvtRoomStart    = "room:start"
	EvtUserDrawing  = "user:drawing"
	EvtUserKick     = "user:kick"
	EvtUserPractice = "user:practice"
)

// Server -> client event names.
const (
	EvtRoomMetadata      = "room:metadata"
	EvtRoomPrompt        = "room:prompt"
	EvtRoomTimer         = "room:timer"
	EvtRoomLeaderboard   = "room:leaderboard"
	EvtRoomRoundReplay   = "room:round_replay"
	EvtRoomRoundStanding = "room:round_standing"
	EvtRoomGameEnd       = "room:game_end"
	EvtRoomKicked        = "room:kicked"
	EvtUserWaitlist      = "user:waitlist"
	EvtError             = "error"
)

// Envelope is the inbound frame: a type tag plus an event-specific payload,
// validated before any state is touched.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is the server frame.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type JoinPayload struct {
	RoomID    string `json:"roomId" validate:"required"`
	Nickname  string `json:"nickname" validate:"required,min=1,max=10"`
	ProfileID string `json:"profileId" validate:"required"`
}

type StartPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type DrawingPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	// Similarity is the client's own estimate, carried for display only;
	// the server always rescores.
	Similarity float64       `json:"similarity"`
	Strokes    []game.Stroke `json:"strokes"`
}

type KickPayload struct {
	RoomID         string `json:"roomId" validate:"required"`
	TargetPlayerID string `json:"targetPlayerId" validate:"required"`
}

type PracticePayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// CreateRoomRequest is the body of POST /rooms.
type CreateRoomRequest struct {
	MaxPlayer   int `json:"maxPlayer"`
	TotalRounds int `json:"totalRounds"`
	DrawingTime int `json:"drawingTime"`
}

type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RoomMetadata is broadcast on every membership or phase change.
type RoomMetadata struct {
	RoomID       string        `json:"roomId"`
	Players      []game.Player `json:"players"`
	Phase        game.Phase    `json:"phase"`
	CurrentRound int           `json:"currentRound"`
	Settings     game.Settings `json:"settings"`
}

type PromptData struct {
	PromptStrokes []game.Stroke `json:"promptStrokes"`
}

type TimerData struct {
	TimeLeft int `json:"timeLeft"`
}

// RankingEntry is one row of a leaderboard or standings payload.
type RankingEntry struct {
	SocketID string  `json:"socketId"`
	Nickname string  `json:"nickname"`
	Score    float64 `json:"score"`
}

type LeaderboardData struct {
	Rankings []RankingEntry `json:"rankings"`
}

type RoundReplayData struct {
	Rankings      []RankingEntry `json:"rankings"`
	PromptStrokes []game.Stroke  `json:"promptStrokes"`
}

type RoundStandingData struct {
	Rankings []RankingEntry `json:"rankings"`
}

// HighlightData is the single best submission of the game.
type HighlightData struct {
	SocketID   string        `json:"socketId"`
	Nickname   string        `json:"nickname"`
	Round      int           `json:"round"`
	Similarity float64       `json:"similarity"`
	Strokes    []game.Stroke `json:"strokes"`
}

type GameEndData struct {
	FinalRankings []RankingEntry `json:"finalRankings"`
	Highlight     *HighlightData `json:"highlight,omitempty"`
}

type KickedData struct {
	KickedPlayer game.Player `json:"kickedPlayer"`
}

type WaitlistData struct {
	CurrentRound int `json:"currentRound"`
	TotalRounds  int `json:"totalRounds"`
}

type ErrorData struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}
