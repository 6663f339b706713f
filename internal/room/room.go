// Package room runs one actor goroutine per live room. The actor owns the
// room's phase machine and timers; all shared state lives in the store, so
// the actor is an orchestrator, not a source of truth. Inbound work arrives
// as typed messages on an inbox channel and connected clients receive
// events through per-socket outbox channels.
package room

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/prompt"
	"github.com/sketchmatch/sketchmatch-backend/internal/similarity"
	"github.com/sketchmatch/sketchmatch-backend/internal/store"
	"github.com/sketchmatch/sketchmatch-backend/pkg/types"
)

// Timing fixes the lengths of the server-driven phases. The drawing phase
// length comes from room settings instead.
type Timing struct {
	PromptSeconds     int
	ReplaySeconds     int
	StandingSeconds   int
	MinPlayersToStart int
	TickInterval      time.Duration
	EndGrace          time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		PromptSeconds:     15,
		ReplaySeconds:     10,
		StandingSeconds:   7,
		MinPlayersToStart: 2,
		TickInterval:      time.Second,
		EndGrace:          5 * time.Minute,
	}
}

// Deps is everything a room actor needs, injected at construction.
type Deps struct {
	Store   *store.Store
	Prompts *prompt.Generator
	Weights similarity.Weights
	Timing  Timing
	Log     *zap.Logger
	OnEmpty func(roomID string) // notified when the actor tears itself down
}

type Room struct {
	id    string
	inbox chan Msg
	deps  Deps

	clients    map[string]chan types.Outbound
	waitlisted map[string]bool
	rng        *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc

	// cached view of the store record, refreshed after every mutation
	phase    game.Phase
	round    int
	settings game.Settings
	players  []game.Player

	promptStrokes []game.Stroke
	timeLeft      int
}

func NewRoom(parent context.Context, id string, deps Deps) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:         id,
		inbox:      make(chan Msg, 64),
		deps:       deps,
		clients:    make(map[string]chan types.Outbound),
		waitlisted: make(map[string]bool),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:        ctx,
		cancel:     cancel,
		phase:      game.PhaseWaiting,
	}
	go r.loop()
	return r
}

// Inbox exposes the actor's message channel to the transport layer.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	ticker := time.NewTicker(r.deps.Timing.TickInterval)
	defer ticker.Stop()

	if err := r.refresh(); err != nil {
		r.deps.Log.Error("initial room read failed", zap.String("room_id", r.id), zap.Error(err))
	}

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown(false)
			return

		case <-ticker.C:
			r.tick()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg.SocketID)
			case Start:
				r.handleStart(msg)
			case Submit:
				r.handleSubmit(msg)
			case Kick:
				r.handleKick(msg)
			case Practice:
				r.handlePractice(msg)
			case GetState:
				msg.Reply <- View{
					Phase:      r.phase,
					Round:      r.round,
					Players:    append([]game.Player(nil), r.players...),
					NumClients: len(r.clients),
					Waitlisted: len(r.waitlisted),
					TimeLeft:   r.timeLeft,
				}
			case Shutdown:
				r.shutdown(false)
				return
			}
		}

		if r.ctx.Err() != nil {
			return
		}
	}
}

// tick drives the countdown of the timed phases. WAITING and GAME_END sit
// still until an event moves them.
func (r *Room) tick() {
	switch r.phase {
	case game.PhasePrompt, game.PhaseDrawing, game.PhaseRoundReplay, game.PhaseRoundStanding:
	default:
		return
	}

	r.timeLeft--
	r.broadcast(types.Outbound{Type: types.EvtRoomTimer, Data: types.TimerData{TimeLeft: r.timeLeft}})
	if r.timeLeft <= 0 {
		r.advance()
	}
}

// advance moves to the next phase when the current one's window closes.
func (r *Room) advance() {
	switch r.phase {
	case game.PhasePrompt:
		r.enterDrawing()
	case game.PhaseDrawing:
		r.enterRoundReplay()
	case game.PhaseRoundReplay:
		r.enterRoundStanding()
	case game.PhaseRoundStanding:
		if r.round < r.settings.TotalRounds {
			r.enterPrompt()
		} else {
			r.enterGameEnd()
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	r.clients[msg.SocketID] = msg.Outbox
	r.waitlisted[msg.SocketID] = true

	err := r.deps.Store.EnqueueWaitlist(r.ctx, r.id, game.WaitlistEntry{
		SocketID:  msg.SocketID,
		Nickname:  msg.Nickname,
		ProfileID: msg.ProfileID,
	})
	if err != nil {
		r.sendError(msg.SocketID, err)
		r.dropClient(msg.SocketID)
		return
	}

	r.drainWaitlist()

	if r.waitlisted[msg.SocketID] {
		r.sendTo(msg.SocketID, types.Outbound{Type: types.EvtUserWaitlist, Data: types.WaitlistData{
			CurrentRound: r.round,
			TotalRounds:  r.settings.TotalRounds,
		}})
	}
}

// drainWaitlist admits parked entries one at a time while the phase is
// safe and seats remain. Admission order follows the queue; nothing is
// ever silently dropped.
func (r *Room) drainWaitlist() {
	if r.phase.MidRound() {
		return
	}

	admitted := 0
	for {
		p, err := r.deps.Store.PopAndAdmitOneFromWaitlist(r.ctx, r.id)
		if errors.Is(err, game.ErrRoomFull) || (err == nil && p == nil) {
			break
		}
		if err != nil {
			r.deps.Log.Error("waitlist admission failed", zap.String("room_id", r.id), zap.Error(err))
			break
		}
		if err := r.deps.Store.SeedScore(r.ctx, r.id, p.SocketID); err != nil {
			r.deps.Log.Error("seeding score failed", zap.String("room_id", r.id),
				zap.String("socket_id", p.SocketID), zap.Error(err))
		}
		delete(r.waitlisted, p.SocketID)
		admitted++
		r.deps.Log.Info("player admitted",
			zap.String("room_id", r.id),
			zap.String("socket_id", p.SocketID),
			zap.String("nickname", p.Nickname))
	}

	if admitted > 0 {
		if err := r.refresh(); err != nil {
			return
		}
		r.broadcastMetadata()
	}
}

func (r *Room) handleStart(msg Start) {
	if !r.isHost(msg.SocketID) {
		r.sendError(msg.SocketID, game.ErrNotHost)
		return
	}
	if r.phase != game.PhaseWaiting {
		r.sendError(msg.SocketID, game.ErrWrongPhase)
		return
	}
	if len(r.players) < r.deps.Timing.MinPlayersToStart {
		r.sendError(msg.SocketID, game.ErrNotEnoughPlayers)
		return
	}
	r.enterPrompt()
}

func (r *Room) handleSubmit(msg Submit) {
	if r.phase != game.PhaseDrawing {
		r.sendError(msg.SocketID, game.ErrWrongPhase)
		return
	}
	player := r.findPlayer(msg.SocketID)
	if player == nil {
		r.sendError(msg.SocketID, game.ErrValidation)
		return
	}

	// The client reports a similarity of its own; the server's score is
	// the one that counts.
	result := similarity.Score(r.promptStrokes, msg.Strokes, r.deps.Weights)

	err := r.deps.Store.SubmitRoundResult(r.ctx, r.id, r.round, store.Submission{
		SocketID: msg.SocketID,
		Result:   result,
		Strokes:  msg.Strokes,
	})
	if err != nil {
		r.sendError(msg.SocketID, err)
		return
	}
	if err := r.deps.Store.SetLiveScore(r.ctx, r.id, msg.SocketID, result.Similarity); err != nil {
		r.deps.Log.Error("live score update failed", zap.String("room_id", r.id), zap.Error(err))
	}
	if err := r.deps.Store.OfferHighlight(r.ctx, r.id, store.Highlight{
		SocketID:   msg.SocketID,
		Nickname:   player.Nickname,
		Round:      r.round,
		Similarity: result.Similarity,
		Strokes:    msg.Strokes,
	}); err != nil {
		r.deps.Log.Error("highlight update failed", zap.String("room_id", r.id), zap.Error(err))
	}

	r.broadcastLeaderboard()

	done, err := r.deps.Store.AllSubmitted(r.ctx, r.id, r.round, len(r.players))
	if err != nil {
		r.deps.Log.Error("progress check failed", zap.String("room_id", r.id), zap.Error(err))
		return
	}
	if done {
		r.enterRoundReplay()
	}
}

func (r *Room) handleKick(msg Kick) {
	if !r.isHost(msg.SocketID) {
		r.sendError(msg.SocketID, game.ErrNotHost)
		return
	}
	target := r.findPlayer(msg.TargetID)
	if target == nil {
		r.sendError(msg.SocketID, game.ErrValidation)
		return
	}

	// The broadcast still includes the target, so one notice reaches
	// everyone, the kicked player included.
	r.broadcast(types.Outbound{Type: types.EvtRoomKicked, Data: types.KickedData{KickedPlayer: *target}})
	r.removeFromRoom(msg.TargetID)
}

func (r *Room) handlePractice(msg Practice) {
	strokes, err := r.deps.Prompts.Generate(r.rng.Int63())
	if err != nil {
		r.sendError(msg.SocketID, err)
		return
	}
	r.sendTo(msg.SocketID, types.Outbound{Type: types.EvtUserPractice, Data: types.PromptData{PromptStrokes: strokes}})
}

func (r *Room) handleLeave(socketID string) {
	if r.waitlisted[socketID] {
		if err := r.deps.Store.RemoveWaitlisted(r.ctx, r.id, socketID); err != nil {
			r.deps.Log.Error("waitlist removal failed", zap.String("room_id", r.id), zap.Error(err))
		}
		r.dropClient(socketID)
		return
	}
	r.removeFromRoom(socketID)
}

// removeFromRoom completes every removal side effect: roster and ranking
// cleanup, host handover by position, empty-room teardown, and the early
// advance that becomes possible when the last non-submitter departs.
func (r *Room) removeFromRoom(socketID string) {
	remaining, err := r.deps.Store.RemovePlayer(r.ctx, r.id, socketID)
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			r.dropClient(socketID)
			r.shutdown(false)
			return
		}
		// The roster was not touched; the room keeps running with the
		// entry still on it rather than tearing down on a store blip.
		r.deps.Log.Error("roster removal failed", zap.String("room_id", r.id), zap.Error(err))
		r.dropClient(socketID)
		return
	}
	if err := r.deps.Store.RemoveScores(r.ctx, r.id, socketID); err != nil {
		r.deps.Log.Error("ranking cleanup failed", zap.String("room_id", r.id), zap.Error(err))
	}
	r.dropClient(socketID)

	if remaining == 0 {
		r.shutdown(true)
		return
	}

	if err := r.refresh(); err != nil {
		return
	}
	r.broadcastMetadata()
	r.drainWaitlist()

	if r.phase == game.PhaseDrawing {
		done, err := r.deps.Store.AllSubmitted(r.ctx, r.id, r.round, len(r.players))
		if err == nil && done {
			r.enterRoundReplay()
		}
	}
}

func (r *Room) enterPrompt() {
	round, err := r.deps.Store.AdvanceRound(r.ctx, r.id)
	if err != nil {
		r.deps.Log.Error("round advance failed", zap.String("room_id", r.id), zap.Error(err))
		return
	}
	r.round = round

	strokes, err := r.deps.Prompts.Generate(r.rng.Int63())
	if err != nil {
		// A round without a prompt cannot be played; end it early
		// instead of hanging the room.
		r.deps.Log.Error("prompt generation failed, ending round early",
			zap.String("room_id", r.id), zap.Int("round", r.round), zap.Error(err))
		r.promptStrokes = nil
		r.enterRoundStanding()
		return
	}
	r.promptStrokes = strokes

	if err := r.deps.Store.SetPrompt(r.ctx, r.id, strokes); err != nil {
		r.deps.Log.Error("prompt publish failed", zap.String("room_id", r.id), zap.Error(err))
	}
	if err := r.deps.Store.ResetProgress(r.ctx, r.id, r.round); err != nil {
		r.deps.Log.Error("progress reset failed", zap.String("room_id", r.id), zap.Error(err))
	}
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.SocketID
	}
	if err := r.deps.Store.ResetLeaderboard(r.ctx, r.id, ids); err != nil {
		r.deps.Log.Error("leaderboard reset failed", zap.String("room_id", r.id), zap.Error(err))
	}

	r.setPhase(game.PhasePrompt, r.deps.Timing.PromptSeconds)
	r.broadcast(types.Outbound{Type: types.EvtRoomPrompt, Data: types.PromptData{PromptStrokes: strokes}})
}

func (r *Room) enterDrawing() {
	r.setPhase(game.PhaseDrawing, r.settings.DrawingTime)
}

// enterRoundReplay settles the round: non-submitters stay frozen at their
// seeded zero, the live ranking is folded into the standings, and the
// replay payload is broadcast. Leaving DRAWING also makes admission safe
// again, so the waitlist drains here.
func (r *Room) enterRoundReplay() {
	rankings, err := r.deps.Store.GetLeaderboard(r.ctx, r.id, r.round)
	if err != nil {
		r.deps.Log.Error("leaderboard read failed", zap.String("room_id", r.id), zap.Error(err))
	}
	for _, e := range rankings {
		if e.Score == 0 {
			continue
		}
		if err := r.deps.Store.AddStanding(r.ctx, r.id, e.SocketID, e.Score); err != nil {
			r.deps.Log.Error("standings update failed", zap.String("room_id", r.id), zap.Error(err))
		}
	}

	r.setPhase(game.PhaseRoundReplay, r.deps.Timing.ReplaySeconds)
	r.broadcast(types.Outbound{Type: types.EvtRoomRoundReplay, Data: types.RoundReplayData{
		Rankings:      r.named(rankings),
		PromptStrokes: r.promptStrokes,
	}})
	r.drainWaitlist()
}

func (r *Room) enterRoundStanding() {
	standings, err := r.deps.Store.GetStandings(r.ctx, r.id)
	if err != nil {
		r.deps.Log.Error("standings read failed", zap.String("room_id", r.id), zap.Error(err))
	}
	r.setPhase(game.PhaseRoundStanding, r.deps.Timing.StandingSeconds)
	r.broadcast(types.Outbound{Type: types.EvtRoomRoundStanding, Data: types.RoundStandingData{
		Rankings: r.named(standings),
	}})
	r.drainWaitlist()
}

func (r *Room) enterGameEnd() {
	standings, err := r.deps.Store.GetStandings(r.ctx, r.id)
	if err != nil {
		r.deps.Log.Error("standings read failed", zap.String("room_id", r.id), zap.Error(err))
	}
	var highlight *types.HighlightData
	if h, err := r.deps.Store.GetHighlight(r.ctx, r.id); err == nil && h != nil {
		highlight = &types.HighlightData{
			SocketID:   h.SocketID,
			Nickname:   h.Nickname,
			Round:      h.Round,
			Similarity: h.Similarity,
			Strokes:    h.Strokes,
		}
	}

	r.setPhase(game.PhaseGameEnd, 0)
	r.broadcast(types.Outbound{Type: types.EvtRoomGameEnd, Data: types.GameEndData{
		FinalRankings: r.named(standings),
		Highlight:     highlight,
	}})
	r.drainWaitlist()

	// Keep the record readable for stragglers, then let Redis reap it.
	if err := r.deps.Store.ExpireRoom(r.ctx, r.id, r.deps.Timing.EndGrace); err != nil {
		r.deps.Log.Error("room expiry failed", zap.String("room_id", r.id), zap.Error(err))
	}
}

// setPhase writes the phase to the store, updates the cached view, and
// broadcasts fresh metadata.
func (r *Room) setPhase(phase game.Phase, seconds int) {
	if err := r.deps.Store.SetPhase(r.ctx, r.id, phase); err != nil {
		r.deps.Log.Error("phase write failed", zap.String("room_id", r.id), zap.Error(err))
	}
	r.phase = phase
	r.timeLeft = seconds
	r.deps.Log.Info("phase change",
		zap.String("room_id", r.id),
		zap.String("phase", string(phase)),
		zap.Int("round", r.round))
	r.broadcastMetadata()
	r.notifyWaitlisted()
}

func (r *Room) refresh() error {
	room, err := r.deps.Store.GetRoom(r.ctx, r.id)
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			r.shutdown(false)
			return err
		}
		r.deps.Log.Error("room read failed", zap.String("room_id", r.id), zap.Error(err))
		return err
	}
	r.phase = room.Phase
	r.round = room.CurrentRound
	r.settings = room.Settings
	r.players = room.Players

	// Mid-round the prompt must come from the store, not actor memory: an
	// actor picking the room up after a restart has never seen it.
	if room.Phase.MidRound() {
		strokes, err := r.deps.Store.GetPrompt(r.ctx, r.id)
		if err != nil {
			r.deps.Log.Error("prompt read failed", zap.String("room_id", r.id), zap.Error(err))
		} else {
			r.promptStrokes = strokes
		}
	}
	return nil
}

func (r *Room) isHost(socketID string) bool {
	return len(r.players) > 0 && r.players[0].SocketID == socketID
}

func (r *Room) findPlayer(socketID string) *game.Player {
	for i := range r.players {
		if r.players[i].SocketID == socketID {
			return &r.players[i]
		}
	}
	return nil
}

// named joins ranking rows with roster nicknames for display.
func (r *Room) named(entries []store.Entry) []types.RankingEntry {
	out := make([]types.RankingEntry, 0, len(entries))
	for _, e := range entries {
		row := types.RankingEntry{SocketID: e.SocketID, Score: e.Score}
		if p := r.findPlayer(e.SocketID); p != nil {
			row.Nickname = p.Nickname
		}
		out = append(out, row)
	}
	return out
}

func (r *Room) broadcastMetadata() {
	r.broadcast(types.Outbound{Type: types.EvtRoomMetadata, Data: types.RoomMetadata{
		RoomID:       r.id,
		Players:      r.players,
		Phase:        r.phase,
		CurrentRound: r.round,
		Settings:     r.settings,
	}})
}

func (r *Room) broadcastLeaderboard() {
	entries, err := r.deps.Store.GetLeaderboard(r.ctx, r.id, r.round)
	if err != nil {
		r.deps.Log.Error("leaderboard read failed", zap.String("room_id", r.id), zap.Error(err))
		return
	}
	r.broadcast(types.Outbound{Type: types.EvtRoomLeaderboard, Data: types.LeaderboardData{Rankings: r.named(entries)}})
}

// broadcast sends to every admitted socket, dropping clients whose outbox
// is full rather than stalling the whole room.
func (r *Room) broadcast(ev types.Outbound) {
	for id, ch := range r.clients {
		if r.waitlisted[id] {
			continue
		}
		select {
		case ch <- ev:
		default:
			r.deps.Log.Warn("dropping slow client", zap.String("room_id", r.id), zap.String("socket_id", id))
			close(ch)
			delete(r.clients, id)
		}
	}
}

// notifyWaitlisted refreshes parked sockets on each phase change so they
// can show progress while they wait.
func (r *Room) notifyWaitlisted() {
	for id := range r.waitlisted {
		r.sendTo(id, types.Outbound{Type: types.EvtUserWaitlist, Data: types.WaitlistData{
			CurrentRound: r.round,
			TotalRounds:  r.settings.TotalRounds,
		}})
	}
}

func (r *Room) sendTo(socketID string, ev types.Outbound) {
	ch, ok := r.clients[socketID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		close(ch)
		delete(r.clients, socketID)
		delete(r.waitlisted, socketID)
	}
}

func (r *Room) sendError(socketID string, err error) {
	msg := "internal server error"
	switch {
	case errors.Is(err, game.ErrRoomNotFound),
		errors.Is(err, game.ErrNotHost),
		errors.Is(err, game.ErrDuplicateSubmission),
		errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, game.ErrConfigInvalid),
		errors.Is(err, game.ErrValidation),
		errors.Is(err, prompt.ErrNoFigures):
		msg = err.Error()
	default:
		r.deps.Log.Error("internal error", zap.String("room_id", r.id), zap.Error(err))
	}
	r.sendTo(socketID, types.Outbound{Type: types.EvtError, Data: types.ErrorData{Message: msg}})
}

func (r *Room) dropClient(socketID string) {
	if ch, ok := r.clients[socketID]; ok {
		close(ch)
		delete(r.clients, socketID)
	}
	delete(r.waitlisted, socketID)
}

// shutdown releases timers and outboxes; when the room emptied out it also
// deletes the store record.
func (r *Room) shutdown(deleteStore bool) {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	if deleteStore {
		// The actor context is already being torn down; give the
		// delete its own short deadline.
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := r.deps.Store.DeleteRoom(ctx, r.id); err != nil {
			r.deps.Log.Error("room delete failed", zap.String("room_id", r.id), zap.Error(err))
		}
		cancel()
	}
	r.cancel()
	if r.deps.OnEmpty != nil {
		r.deps.OnEmpty(r.id)
	}
}
