package orch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type testLink struct {
	id   domain.LinkID
	once sync.Once
	done chan struct{}
}

func newLink(id string) *testLink {
	return &testLink{id: domain.LinkID(id), done: make(chan struct{})}
}

func (l *testLink) ID() domain.LinkID      { return l.id }
func (l *testLink) Done() <-chan struct{} { return l.done }
func (l *testLink) Close()                { l.once.Do(func() { close(l.done) }) }

type fixture struct {
	orch *Orchestrator
	bus  *app.Bus
}

func setup(t *testing.T, maxRooms int) fixture {
	t.Helper()
	bus := app.NewBus(64, nil)
	rooms := app.NewRoomManager(context.Background(), app.ManagerOptions{
		MaxRooms: maxRooms,
		Bus:      bus,
		Presence: app.NewPresenceSet(),
	})
	t.Cleanup(rooms.Shutdown)
	return fixture{orch: New(rooms), bus: bus}
}

func TestVotingRound(t *testing.T) {
	f := setup(t, 10)
	ctx := context.Background()
	sub := f.bus.Subscribe(core.Topic("r1"))

	_, err := f.orch.Join(ctx, "r1", "a", "Ann", domain.Participant, nil)
	require.NoError(t, err)
	_, err = f.orch.Join(ctx, "r1", "b", "Bob", domain.Participant, nil)
	require.NoError(t, err)

	_, err = f.orch.Vote(ctx, "r1", "a", "5")
	require.NoError(t, err)
	room, err := f.orch.Vote(ctx, "r1", "b", "8")
	require.NoError(t, err)
	assert.True(t, room.AllVoted())

	room, err = f.orch.Reveal(ctx, "r1")
	require.NoError(t, err)
	stats, ok := room.Statistics()
	require.True(t, ok)
	require.NotNil(t, stats.Average)
	assert.InDelta(t, 6.5, *stats.Average, 1e-9)

	room, err = f.orch.Reset(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, room.Revealed)
	require.Len(t, room.History, 1)
	assert.Len(t, room.History[0].Votes, 2)

	// join, join, vote, vote, reveal, reset
	for i := 0; i < 6; i++ {
		select {
		case <-sub.C():
		case <-time.After(time.Second):
			t.Fatalf("snapshot %d not published", i)
		}
	}
}

func TestOperationsOnUnknownRoom(t *testing.T) {
	f := setup(t, 10)
	ctx := context.Background()

	_, err := f.orch.Vote(ctx, "nope", "a", "1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = f.orch.Reveal(ctx, "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = f.orch.GetState(ctx, "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NoError(t, f.orch.Leave(ctx, "nope", "a"))
	assert.False(t, f.orch.RoomExists("nope"))
}

func TestJoinCreatesRoomAndRespectsCap(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	_, err := f.orch.Join(ctx, "first", "a", "Ann", domain.Participant, nil)
	require.NoError(t, err)
	assert.True(t, f.orch.RoomExists("first"))

	_, err = f.orch.Join(ctx, "second", "b", "Bob", domain.Participant, nil)
	assert.ErrorIs(t, err, app.ErrTooManyRooms)
	assert.Equal(t, 1, f.orch.CountRooms())
}

func TestJoinAfterRoomEmptied(t *testing.T) {
	f := setup(t, 10)
	ctx := context.Background()

	_, err := f.orch.Join(ctx, "r", "a", "Ann", domain.Participant, nil)
	require.NoError(t, err)
	_, err = f.orch.SetTopic(ctx, "r", "login page")
	require.NoError(t, err)
	require.NoError(t, f.orch.Leave(ctx, "r", "a"))

	room, err := f.orch.Join(ctx, "r", "b", "Bob", domain.Participant, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, room.PlayerCount())
	assert.Empty(t, room.Topic, "a recreated room starts fresh")
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	f := setup(t, 10)
	ctx := context.Background()

	la, lb := newLink("la"), newLink("lb")
	_, err := f.orch.Join(ctx, "r", "a", "Ann", domain.Participant, la)
	require.NoError(t, err)
	_, err = f.orch.Join(ctx, "r", "b", "Bob", domain.Participant, lb)
	require.NoError(t, err)

	la.Close()
	require.Eventually(t, func() bool {
		room, err := f.orch.GetState(ctx, "r")
		return err == nil && room.PlayerCount() == 1
	}, time.Second, 5*time.Millisecond)

	lb.Close()
	require.Eventually(t, func() bool { return !f.orch.RoomExists("r") }, time.Second, 5*time.Millisecond)
}

func TestConcurrentJoins(t *testing.T) {
	f := setup(t, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 25)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.orch.Join(ctx, "busy", domain.ParticipantID(fmt.Sprintf("p%d", i)), fmt.Sprintf("P%d", i), domain.Participant, nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	full := 0
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrRoomFull)
			full++
		}
	}
	assert.Equal(t, 5, full)
	room, err := f.orch.GetState(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxPlayers, room.PlayerCount())
	assert.Equal(t, 1, f.orch.CountRooms())
}

func TestNewRoomID(t *testing.T) {
	f := setup(t, 10)

	id, err := f.orch.NewRoomID()
	require.NoError(t, err)
	assert.Len(t, string(id), roomIDLen)

	_, err = f.orch.CreateRoom("taken")
	require.NoError(t, err)
	f.orch.NewID = func() string { return "taken" }
	_, err = f.orch.NewRoomID()
	assert.ErrorIs(t, err, ErrIDGeneration)

	calls := 0
	f.orch.NewID = func() string {
		calls++
		if calls < 3 {
			return "taken"
		}
		return "fresh"
	}
	id, err = f.orch.CreateUniqueRoom()
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("fresh"), id)
	assert.True(t, f.orch.RoomExists("fresh"))
}

func TestListRooms(t *testing.T) {
	f := setup(t, 10)
	ctx := context.Background()

	_, err := f.orch.Join(ctx, "b", "p1", "Ann", domain.Participant, nil)
	require.NoError(t, err)
	_, err = f.orch.Join(ctx, "b", "p2", "Bob", domain.Observer, nil)
	require.NoError(t, err)
	_, err = f.orch.CreateRoom("a")
	require.NoError(t, err)

	assert.Equal(t, []core.RoomInfo{{ID: "a", PlayerCount: 0}, {ID: "b", PlayerCount: 2}}, f.orch.ListRooms(ctx))
}
