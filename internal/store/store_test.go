package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/similarity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, zap.NewNop(), game.DefaultBounds())
}

func validSettings() game.Settings {
	return game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 4}
}

func player(n int) game.Player {
	return game.Player{
		SocketID:  fmt.Sprintf("sock-%d", n),
		Nickname:  fmt.Sprintf("p%d", n),
		ProfileID: fmt.Sprintf("profile-%d", n),
	}
}

func TestCreateRoomValidatesBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		settings game.Settings
		wantErr  bool
	}{
		{"valid", game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 4}, false},
		{"valid at lower bounds", game.Settings{DrawingTime: 10, TotalRounds: 1, MaxPlayers: 2}, false},
		{"valid at upper bounds", game.Settings{DrawingTime: 120, TotalRounds: 10, MaxPlayers: 8}, false},
		{"too few players", game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 1}, true},
		{"too many players", game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 9}, true},
		{"zero rounds", game.Settings{DrawingTime: 60, TotalRounds: 0, MaxPlayers: 4}, true},
		{"too many rounds", game.Settings{DrawingTime: 60, TotalRounds: 11, MaxPlayers: 4}, true},
		{"drawing time too short", game.Settings{DrawingTime: 9, TotalRounds: 3, MaxPlayers: 4}, true},
		{"drawing time too long", game.Settings{DrawingTime: 121, TotalRounds: 3, MaxPlayers: 4}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := s.CreateRoom(ctx, tc.settings)
			if tc.wantErr {
				assert.ErrorIs(t, err, game.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			require.Len(t, id, roomIDLength)

			room, err := s.GetRoom(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, game.PhaseWaiting, room.Phase)
			assert.Zero(t, room.CurrentRound)
			assert.Empty(t, room.Players)
			assert.Equal(t, tc.settings, room.Settings)
		})
	}
}

func TestOperationsOnMissingRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRoom(ctx, "NOPE42")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	_, err = s.AdmitPlayer(ctx, "NOPE42", player(1))
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	_, err = s.RemovePlayer(ctx, "NOPE42", "sock-1")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	assert.ErrorIs(t, s.SetPhase(ctx, "NOPE42", game.PhasePrompt), game.ErrRoomNotFound)

	_, err = s.AdvanceRound(ctx, "NOPE42")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	assert.ErrorIs(t, s.EnqueueWaitlist(ctx, "NOPE42", game.WaitlistEntry{SocketID: "x"}), game.ErrRoomNotFound)
}

func TestAdmitUntilFull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 2})
	require.NoError(t, err)

	roster, err := s.AdmitPlayer(ctx, id, player(1))
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.True(t, roster[0].IsHost, "first player into an empty room becomes host")

	roster, err = s.AdmitPlayer(ctx, id, player(2))
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.True(t, roster[0].IsHost)
	assert.False(t, roster[1].IsHost)

	_, err = s.AdmitPlayer(ctx, id, player(3))
	assert.ErrorIs(t, err, game.ErrRoomFull)
}

func TestHostTransferOnRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)
	for n := 1; n <= 3; n++ {
		_, err = s.AdmitPlayer(ctx, id, player(n))
		require.NoError(t, err)
	}

	remaining, err := s.RemovePlayer(ctx, id, "sock-1")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	room, err := s.GetRoom(ctx, id)
	require.NoError(t, err)
	require.Len(t, room.Players, 2)
	host := room.Host()
	require.NotNil(t, host)
	assert.Equal(t, "sock-2", host.SocketID, "host moves to earliest-joined survivor")
	assert.True(t, host.IsHost)
	assert.False(t, room.Players[1].IsHost)
	assert.False(t, room.HasPlayer("sock-1"))
	assert.True(t, room.HasPlayer("sock-3"))
}

func TestGetRoomRejectsCorruptPhase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)
	require.NoError(t, s.rdb.HSet(ctx, roomKey(id), "phase", "LIMBO").Err())

	_, err = s.GetRoom(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase")
}

func TestRemoveUnknownPlayerKeepsRoster(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)
	_, err = s.AdmitPlayer(ctx, id, player(1))
	require.NoError(t, err)

	remaining, err := s.RemovePlayer(ctx, id, "sock-99")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestWaitlistEnqueueIsDeduplicated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	entry := game.WaitlistEntry{SocketID: "sock-1", Nickname: "p1", ProfileID: "profile-1"}
	require.NoError(t, s.EnqueueWaitlist(ctx, id, entry))
	require.NoError(t, s.EnqueueWaitlist(ctx, id, entry))

	size, err := s.WaitlistSize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestPopAndAdmitDrainsWaitlistExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 8})
	require.NoError(t, err)

	const waiting = 6
	for n := 1; n <= waiting; n++ {
		p := player(n)
		require.NoError(t, s.EnqueueWaitlist(ctx, id, game.WaitlistEntry{
			SocketID: p.SocketID, Nickname: p.Nickname, ProfileID: p.ProfileID,
		}))
	}

	var mu sync.Mutex
	admitted := make(map[string]int)
	var wg sync.WaitGroup
	for i := 0; i < waiting; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.PopAndAdmitOneFromWaitlist(ctx, id)
			if err != nil || p == nil {
				return
			}
			mu.Lock()
			admitted[p.SocketID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, admitted, waiting, "every entry admitted, none dropped")
	for sid, count := range admitted {
		assert.Equal(t, 1, count, "entry %s admitted more than once", sid)
	}

	size, err := s.WaitlistSize(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, size)

	room, err := s.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.Len(t, room.Players, waiting)
}

func TestPopAndAdmitStopsWhenFull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 2})
	require.NoError(t, err)
	_, err = s.AdmitPlayer(ctx, id, player(1))
	require.NoError(t, err)
	_, err = s.AdmitPlayer(ctx, id, player(2))
	require.NoError(t, err)

	p3 := player(3)
	require.NoError(t, s.EnqueueWaitlist(ctx, id, game.WaitlistEntry{
		SocketID: p3.SocketID, Nickname: p3.Nickname, ProfileID: p3.ProfileID,
	}))

	_, err = s.PopAndAdmitOneFromWaitlist(ctx, id)
	assert.ErrorIs(t, err, game.ErrRoomFull)

	// The full room must not have consumed the entry.
	size, err := s.WaitlistSize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestPopAndAdmitEmptyWaitlist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	p, err := s.PopAndAdmitOneFromWaitlist(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestIsRoomFullCountsWaitlist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 2})
	require.NoError(t, err)

	full, err := s.IsRoomFull(ctx, id)
	require.NoError(t, err)
	assert.False(t, full)

	_, err = s.AdmitPlayer(ctx, id, player(1))
	require.NoError(t, err)
	require.NoError(t, s.EnqueueWaitlist(ctx, id, game.WaitlistEntry{SocketID: "sock-2"}))

	full, err = s.IsRoomFull(ctx, id)
	require.NoError(t, err)
	assert.True(t, full, "roster plus waitlist covers every seat")
}

func TestLiveScoreUpsertsInsteadOfAppending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	require.NoError(t, s.SetLiveScore(ctx, id, "sock-1", 40))
	require.NoError(t, s.SetLiveScore(ctx, id, "sock-1", 75))

	entries, err := s.GetLeaderboard(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{SocketID: "sock-1", Score: 75}, entries[0])
}

func TestStandingsAccumulateAcrossRounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	require.NoError(t, s.AddStanding(ctx, id, "sock-1", 40))
	require.NoError(t, s.AddStanding(ctx, id, "sock-1", 35))
	require.NoError(t, s.AddStanding(ctx, id, "sock-2", 60))

	entries, err := s.GetStandings(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{SocketID: "sock-1", Score: 75}, entries[0])
	assert.Equal(t, Entry{SocketID: "sock-2", Score: 60}, entries[1])
}

func TestRankingBreaksTiesBySubmissionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	// sock-2 submits first, then sock-1; both land on the same score.
	require.NoError(t, s.SubmitRoundResult(ctx, id, 1, Submission{SocketID: "sock-2"}))
	require.NoError(t, s.SubmitRoundResult(ctx, id, 1, Submission{SocketID: "sock-1"}))
	require.NoError(t, s.SetLiveScore(ctx, id, "sock-1", 50))
	require.NoError(t, s.SetLiveScore(ctx, id, "sock-2", 50))

	entries, err := s.GetLeaderboard(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "sock-2", entries[0].SocketID, "first submitted ranks higher on a tie")
	assert.Equal(t, "sock-1", entries[1].SocketID)
}

func TestSeedAndResetLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	require.NoError(t, s.SeedScore(ctx, id, "sock-1"))
	require.NoError(t, s.SetLiveScore(ctx, id, "sock-1", 90))
	require.NoError(t, s.SeedScore(ctx, id, "sock-1"))

	entries, err := s.GetLeaderboard(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 90.0, entries[0].Score, "reseeding must not clobber an existing score")

	require.NoError(t, s.ResetLeaderboard(ctx, id, []string{"sock-1", "sock-2"}))
	entries, err = s.GetLeaderboard(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Zero(t, e.Score)
	}
}

func TestDuplicateSubmissionIsRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	sub := Submission{SocketID: "sock-1", Result: similarity.Result{Similarity: 80}}
	require.NoError(t, s.SubmitRoundResult(ctx, id, 1, sub))

	again := Submission{SocketID: "sock-1", Result: similarity.Result{Similarity: 99}}
	assert.ErrorIs(t, s.SubmitRoundResult(ctx, id, 1, again), game.ErrDuplicateSubmission)

	results, err := s.RoundResults(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 80.0, results["sock-1"].Result.Similarity, "original result stands")
}

func TestAllSubmitted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	ok, err := s.AllSubmitted(ctx, id, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SubmitRoundResult(ctx, id, 1, Submission{SocketID: "sock-1"}))
	ok, err = s.AllSubmitted(ctx, id, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SubmitRoundResult(ctx, id, 1, Submission{SocketID: "sock-2"}))
	ok, err = s.AllSubmitted(ctx, id, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AllSubmitted(ctx, id, 1, 0)
	require.NoError(t, err)
	assert.False(t, ok, "an empty room never counts as all-submitted")
}

func TestHighlightKeepsBestSubmission(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	h, err := s.GetHighlight(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, h)

	require.NoError(t, s.OfferHighlight(ctx, id, Highlight{SocketID: "sock-1", Round: 1, Similarity: 50}))
	require.NoError(t, s.OfferHighlight(ctx, id, Highlight{SocketID: "sock-2", Round: 2, Similarity: 80}))
	require.NoError(t, s.OfferHighlight(ctx, id, Highlight{SocketID: "sock-3", Round: 3, Similarity: 60}))

	h, err = s.GetHighlight(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "sock-2", h.SocketID)
	assert.Equal(t, 80.0, h.Similarity)
}

func TestDeleteRoomRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)
	_, err = s.AdmitPlayer(ctx, id, player(1))
	require.NoError(t, err)
	require.NoError(t, s.SetLiveScore(ctx, id, "sock-1", 50))

	require.NoError(t, s.DeleteRoom(ctx, id))

	_, err = s.GetRoom(ctx, id)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	entries, err := s.GetLeaderboard(ctx, id, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPromptRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRoom(ctx, validSettings())
	require.NoError(t, err)

	got, err := s.GetPrompt(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	strokes := []game.Stroke{{Xs: []float64{0, 1}, Ys: []float64{0, 1}, Color: game.RGB{R: 10, G: 20, B: 30}}}
	require.NoError(t, s.SetPrompt(ctx, id, strokes))

	got, err = s.GetPrompt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, strokes, got)
}
