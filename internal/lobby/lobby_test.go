package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/deck"
	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/roster"
	"github.com/DoyleJ11/deckbp/internal/session"
)

type nopStore struct{}

func (nopStore) LoadFriendly(context.Context) ([]deck.Record, error) { return nil, nil }
func (nopStore) SaveFriendly(context.Context, []deck.Record) error   { return nil }

func newSession(t *testing.T) *session.Session {
	t.Helper()
	pool := make(deck.Pool, 10)
	for i := range pool {
		pool[i] = deck.Record{Name: fmt.Sprintf("deck-%d", i), IconPath: fmt.Sprintf("icons/%d.png", i)}
	}
	m, err := roster.New(pool, nopStore{}, pool[:deck.FriendlyRosterSize])
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	return session.New("t", m, rand.New(rand.NewPCG(1, 2)))
}

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recvInfo(t *testing.T, ch <-chan Info, within time.Duration) Info {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for info")
		return Info{} // unreachable
	}
}

func TestLobby_StartRound_BroadcastsSnapshotAndVersionIncrements(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "ABC123", newSession(t), nil)

	clientOut := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Lang: language.English, Outbox: clientOut}

	first := recvSnapshot(t, clientOut, 100*time.Millisecond)
	if first.Version != 0 {
		t.Fatalf("after join: want version=0, got %d", first.Version)
	}
	if first.View.Phase != engine.PhaseSetup {
		t.Fatalf("after join: want setup, got %s", first.View.Phase)
	}

	l.Inbox() <- FromClient{ClientID: "c1", Cmd: session.Command{Type: session.CmdStartRound}}

	next := recvSnapshot(t, clientOut, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after start: want version=1, got %d", next.Version)
	}
	if next.View.Phase != engine.PhaseBan || len(next.View.Opponent) != roster.DefaultOpponentCount {
		t.Fatalf("after start: unexpected view %+v", next.View)
	}

	l.Inbox() <- Shutdown{}
}

func TestLobby_RejectedCommand_RepliesToSenderOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "ABC123", newSession(t), nil)

	a := make(chan Snapshot, 4)
	b := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "a", Lang: language.English, Outbox: a}
	l.Inbox() <- Join{ClientID: "b", Lang: language.English, Outbox: b}
	_ = recvSnapshot(t, a, 100*time.Millisecond)
	_ = recvSnapshot(t, b, 100*time.Millisecond)

	// Clicking in setup is out of phase.
	l.Inbox() <- FromClient{ClientID: "a", Cmd: session.Command{Type: session.CmdClick, Side: engine.SideOpponent}}

	errSnap := recvSnapshot(t, a, 100*time.Millisecond)
	if errSnap.Err == nil || errSnap.Err.Kind != apperrors.KindInvalidState {
		t.Fatalf("want invalid_state error for sender, got %+v", errSnap.Err)
	}
	if snap := recvSnapshot(t, a, 100*time.Millisecond); snap.Err != nil || snap.Version != 1 {
		t.Fatalf("sender: want view version=1, got %+v", snap)
	}

	snap := recvSnapshot(t, b, 100*time.Millisecond)
	if snap.Err != nil {
		t.Fatalf("other client must not see the error: %+v", snap.Err)
	}
	if snap.View.Phase != engine.PhaseSetup {
		t.Fatalf("rejected command changed phase to %s", snap.View.Phase)
	}
	recvNoSnapshot(t, b, 50*time.Millisecond)
}

func TestLobby_ViewsFollowClientLanguage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "ABC123", newSession(t), nil)

	en := make(chan Snapshot, 2)
	zh := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "en", Lang: language.English, Outbox: en}
	l.Inbox() <- Join{ClientID: "zh", Lang: language.SimplifiedChinese, Outbox: zh}

	gotEN := recvSnapshot(t, en, 100*time.Millisecond).View.Status
	gotZH := recvSnapshot(t, zh, 100*time.Millisecond).View.Status
	if gotEN != "Set up the rosters, then start the round" {
		t.Fatalf("en status: %q", gotEN)
	}
	if gotZH != "请设置卡组，然后点击'生成对局'" {
		t.Fatalf("zh status: %q", gotZH)
	}
}

func TestLobby_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "ABC123", newSession(t), nil)

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "c1", Lang: language.English, Outbox: clientOut}

	l.Inbox() <- FromClient{ClientID: "c1", Cmd: session.Command{Type: session.CmdStartRound}}

	reply := make(chan Info, 1)
	l.Inbox() <- GetState{Reply: reply}
	info := recvInfo(t, reply, 100*time.Millisecond)

	if info.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", info.NumClients)
	}
	if info.Phase != engine.PhaseBan {
		t.Fatalf("want ban, got %s", info.Phase)
	}
}

func TestLobby_Shutdown_ClosesOutboxes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "ABC123", newSession(t), nil)

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Lang: language.English, Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond) // drain join snapshot

	l.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("outbox not closed")
	}

	select {
	case <-l.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("lobby loop did not exit")
	}
	if err := l.Send(Leave{ClientID: "c1"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after shutdown: want ErrClosed, got %v", err)
	}
}

func TestLobby_Leave_ClosesOutbox(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "ABC123", newSession(t), nil)

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Lang: language.English, Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	l.Inbox() <- Leave{ClientID: "c1"}

	// A writer ranging over the outbox must be released.
	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox, got a snapshot")
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("outbox not closed after leave")
	}

	reply := make(chan Info, 1)
	l.Inbox() <- GetState{Reply: reply}
	if info := recvInfo(t, reply, 100*time.Millisecond); info.NumClients != 0 {
		t.Fatalf("want 0 clients, got %d", info.NumClients)
	}
}

func TestLobby_IdleTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan *Lobby, 1)
	l := NewLobby(ctx, "IDLE01", newSession(t), nil,
		WithIdleTimeout(50*time.Millisecond),
		WithOnIdle(func(lb *Lobby) { idled <- lb }),
	)

	select {
	case got := <-idled:
		if got != l {
			t.Fatalf("idle callback got another lobby")
		}
	case <-time.After(time.Second):
		t.Fatalf("empty lobby never went idle")
	}
	select {
	case <-l.Done():
	default:
		t.Fatalf("done must be closed before the idle callback runs")
	}
}

func TestLobby_IdleTimerWaitsForLastClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan struct{}, 1)
	l := NewLobby(ctx, "IDLE02", newSession(t), nil,
		WithIdleTimeout(80*time.Millisecond),
		WithOnIdle(func(*Lobby) { idled <- struct{}{} }),
	)

	out := make(chan Snapshot, 8)
	l.Inbox() <- Join{ClientID: "c1", Lang: language.English, Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	select {
	case <-idled:
		t.Fatalf("lobby with a client went idle")
	case <-time.After(200 * time.Millisecond):
	}

	l.Inbox() <- Leave{ClientID: "c1"}
	select {
	case <-idled:
	case <-time.After(time.Second):
		t.Fatalf("lobby did not go idle after the last client left")
	}
}

func TestLobby_ShutdownIsNotIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan struct{}, 1)
	l := NewLobby(ctx, "IDLE03", newSession(t), nil,
		WithIdleTimeout(time.Hour),
		WithOnIdle(func(*Lobby) { idled <- struct{}{} }),
	)
	l.Inbox() <- Shutdown{}

	select {
	case <-l.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("lobby loop did not exit")
	}
	select {
	case <-idled:
		t.Fatalf("explicit shutdown must not report idle")
	case <-time.After(50 * time.Millisecond):
	}
}
