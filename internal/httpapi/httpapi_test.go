package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/deckbp/internal/deck"
	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/hub"
	"github.com/DoyleJ11/deckbp/internal/icon"
	"github.com/DoyleJ11/deckbp/internal/roster"
	"github.com/DoyleJ11/deckbp/internal/session"
	"github.com/DoyleJ11/deckbp/internal/types"
	wire "github.com/DoyleJ11/deckbp/pkg/types"
)

type nopStore struct{}

func (nopStore) LoadFriendly(context.Context) ([]deck.Record, error) { return nil, nil }
func (nopStore) SaveFriendly(context.Context, []deck.Record) error   { return nil }

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, deck.Pool) {
	t.Helper()
	pool := make(deck.Pool, 8)
	for i := range pool {
		pool[i] = deck.Record{Name: fmt.Sprintf("deck-%d", i), IconPath: fmt.Sprintf("/nonexistent/%d.png", i)}
	}
	factory := func(_ context.Context, code string) (*session.Session, error) {
		m, err := roster.New(pool, nopStore{}, pool[:deck.FriendlyRosterSize])
		if err != nil {
			return nil, err
		}
		return session.New(code, m, rand.New(rand.NewPCG(1, 2))), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, factory, nil)

	srv := httptest.NewServer(NewServer(h, pool, icon.NewRenderer(32, 32), opts...).Routes())
	t.Cleanup(srv.Close)
	return srv, pool
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	res, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Len(t, body.Code, 6)
	return body.Code
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	lobbies := func() int {
		t.Helper()
		res, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body struct {
			Status  string `json:"status"`
			Lobbies int    `json:"lobbies"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		return body.Lobbies
	}

	assert.Equal(t, 0, lobbies())
	createSession(t, srv)
	assert.Equal(t, 1, lobbies())
}

func TestListDecks(t *testing.T) {
	srv, pool := newTestServer(t)
	res, err := http.Get(srv.URL + "/decks")
	require.NoError(t, err)
	defer res.Body.Close()

	var decks []wire.Deck
	require.NoError(t, json.NewDecoder(res.Body).Decode(&decks))
	require.Len(t, decks, len(pool))
	assert.Equal(t, wire.Deck{Index: 3, Name: "deck-3", IconPath: "/nonexistent/3.png", IconURL: "/decks/3/icon"}, decks[3])
}

func TestDeckIcon(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/decks/2/icon")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	img, err := png.Decode(res.Body)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())

	for _, path := range []string{"/decks/99/icon", "/decks/x/icon", "/decks/-1/icon"} {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode, path)
	}
}

func TestCreateSessionRetriesCollisions(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	next := 0
	gen := func() (string, error) {
		c := codes[next]
		next++
		return c, nil
	}
	srv, _ := newTestServer(t, WithCodeGenerator(gen))

	assert.Equal(t, "AAAAAA", createSession(t, srv))
	assert.Equal(t, "BBBBBB", createSession(t, srv))
}

func TestWebsocketUnknownLobby(t *testing.T) {
	srv, _ := newTestServer(t)
	for path, want := range map[string]int{
		"/ws":             http.StatusBadRequest,
		"/ws?code=NOPE00": http.StatusNotFound,
	} {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, want, res.StatusCode, path)
	}
}

func readMessage(t *testing.T, ctx context.Context, c *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var msg types.ServerMessage
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	return msg
}

func TestWebsocketRound(t *testing.T) {
	srv, _ := newTestServer(t)
	code := createSession(t, srv)

	ctx := context.Background()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + code + "&lang=zh-Hans"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	first := readMessage(t, ctx, c)
	require.Equal(t, wire.TypeStateSnapshot, first.Type)
	require.Equal(t, engine.PhaseSetup, first.View.Phase)
	assert.Equal(t, "请设置卡组，然后点击'生成对局'", first.View.Status)

	require.NoError(t, wsjson.Write(ctx, c, wire.ClientMessage{Type: "StartRound"}))
	msg := readMessage(t, ctx, c)
	require.Equal(t, wire.TypeStateSnapshot, msg.Type)
	assert.Equal(t, 1, msg.Version)
	assert.Equal(t, engine.PhaseBan, msg.View.Phase)

	// Out of turn: the friendly side cannot be clicked during the ban.
	require.NoError(t, wsjson.Write(ctx, c, wire.ClientMessage{Type: "Click", Side: "friendly", Slot: 0}))
	msg = readMessage(t, ctx, c)
	require.Equal(t, wire.TypeError, msg.Type)
	assert.Equal(t, "invalid_state", string(msg.Kind))
	msg = readMessage(t, ctx, c)
	assert.Equal(t, engine.PhaseBan, msg.View.Phase)

	require.NoError(t, wsjson.Write(ctx, c, wire.ClientMessage{Type: "Fly"}))
	msg = readMessage(t, ctx, c)
	require.Equal(t, wire.TypeError, msg.Type)

	require.NoError(t, wsjson.Write(ctx, c, wire.ClientMessage{Type: "Click", Side: "opponent", Slot: 1}))
	msg = readMessage(t, ctx, c)
	assert.Equal(t, engine.PhasePick, msg.View.Phase)
}
