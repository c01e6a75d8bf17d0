package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/storage"
)

type fakeSeats struct{ seats []game.SlotSeat }

func (f fakeSeats) Seats(ctx context.Context) ([]game.SlotSeat, error) { return f.seats, nil }

type testServer struct {
	router   *gin.Engine
	repo     storage.Repository
	sessions *Sessions
	auth     *AuthHandler
}

func isGM(userID string) bool { return userID == "gm" }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := storage.OpenAndMigrate(storage.DriverSQLite, fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name), storage.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := storage.NewGormRepository(db)
	sessions, err := NewSessions("test-secret", time.Hour)
	require.NoError(t, err)
	auth := NewAuthHandler(sessions, "client", "secret", "http://localhost/auth/discord/callback", isGM)
	h := NewStatusHandler(repo, fakeSeats{seats: []game.SlotSeat{{SeatID: 1, Jackpot: 900}, {SeatID: 2, OccupantID: "bob"}}})
	return &testServer{router: NewRouter(h, auth, sessions, isGM), repo: repo, sessions: sessions, auth: auth}
}

func (s *testServer) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) sessionCookie(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	tok, err := s.sessions.Mint(userID, userID)
	require.NoError(t, err)
	return &http.Cookie{Name: constants.CookieSessionName, Value: tok}
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)
	w := s.get(t, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, constants.CacheControlNoCache, w.Header().Get(constants.CacheControlHeader))
	w = s.get(t, "/api/version")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"version"`)
}

func TestLeaderboardOrdersByWins(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.repo.CreateProfile(ctx, &game.Profile{UserID: "a", Name: "Alice", PvPWins: 3}))
	require.NoError(t, s.repo.CreateProfile(ctx, &game.Profile{UserID: "b", Name: "Bob", PvPWins: 7}))
	require.NoError(t, s.repo.CreateProfile(ctx, &game.Profile{UserID: "c", Name: "Carol", PvPWins: 1}))

	w := s.get(t, "/api/leaderboard?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []struct {
		UserID  string `json:"user_id"`
		PvPWins int    `json:"pvp_wins"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "b", rows[0].UserID)
	require.Equal(t, "a", rows[1].UserID)
}

func TestPlayerTower(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusNotFound, s.get(t, "/api/players/nobody/tower").Code)

	require.NoError(t, s.repo.CreateProfile(context.Background(), &game.Profile{UserID: "a", TowerLevel: 4, TowerPrestige: 2}))
	w := s.get(t, "/api/players/a/tower")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 4, body["level"])
	require.EqualValues(t, 2, body["prestige"])
	require.Equal(t, true, body["started"])
}

func TestSlotSeats(t *testing.T) {
	s := newTestServer(t)
	w := s.get(t, "/api/slots/seats")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"occupant_id":"bob"`)
}

func TestLedgerRequiresGM(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.repo.WriteLedgerEntry(ctx, &game.LedgerEntry{From: "a", To: "b", Subject: constants.SubjectBattle, Amount: 100, IdempotencyKey: "k1"}))
	require.NoError(t, s.repo.WriteLedgerEntry(ctx, &game.LedgerEntry{From: "c", To: "d", Subject: constants.SubjectBattle, Amount: 50, IdempotencyKey: "k2"}))

	require.Equal(t, http.StatusUnauthorized, s.get(t, "/api/ledger").Code)
	require.Equal(t, http.StatusUnauthorized, s.get(t, "/api/ledger", &http.Cookie{Name: constants.CookieSessionName, Value: "junk"}).Code)
	require.Equal(t, http.StatusForbidden, s.get(t, "/api/ledger", s.sessionCookie(t, "player")).Code)

	w := s.get(t, "/api/ledger?user=b", s.sessionCookie(t, "gm"))
	require.Equal(t, http.StatusOK, w.Code)
	var entries []game.LedgerEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.EqualValues(t, 100, entries[0].Amount)
}

func TestEscrows(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.repo.CreateEscrow(ctx, &game.Escrow{EncounterID: "e1", Kind: constants.KindBattle, Stakes: []game.Stake{{UserID: "a", Amount: 10}}}))
	gm := s.sessionCookie(t, "gm")

	w := s.get(t, "/api/escrows", gm)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"encounter_id":"e1"`)
	require.Contains(t, w.Body.String(), `"created_at"`)

	w = s.get(t, "/api/escrows?status=refunded", gm)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", w.Body.String())

	require.Equal(t, http.StatusBadRequest, s.get(t, "/api/escrows?status=bogus", gm).Code)
}

func TestSessionsRejectTamperedAndExpired(t *testing.T) {
	s, err := NewSessions("k", time.Minute)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	tok, err := s.Mint("42", "x")
	require.NoError(t, err)
	claims, err := s.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Sub)

	_, err = s.Parse(tok[:len(tok)-2] + "xx")
	require.ErrorIs(t, err, errTokenSignature)
	_, err = s.Parse("a.b")
	require.ErrorIs(t, err, errTokenFormat)

	other, err := NewSessions("other", time.Minute)
	require.NoError(t, err)
	_, err = other.Parse(tok)
	require.ErrorIs(t, err, errTokenSignature)

	now = now.Add(2 * time.Minute)
	_, err = s.Parse(tok)
	require.ErrorIs(t, err, errTokenExpired)
}

func TestDiscordLoginRedirects(t *testing.T) {
	s := newTestServer(t)
	w := s.get(t, "/auth/discord/login")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "discord.com", loc.Host)

	var state string
	for _, c := range w.Result().Cookies() {
		if c.Name == constants.CookieOAuthState {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	require.Equal(t, state, loc.Query().Get("state"))
}

func TestDiscordLoginUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions, err := NewSessions("", time.Hour)
	require.NoError(t, err)
	auth := NewAuthHandler(sessions, "", "", "", isGM)
	router := gin.New()
	router.GET("/login", auth.DiscordLogin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDiscordCallbackRejectsBadState(t *testing.T) {
	s := newTestServer(t)
	w := s.get(t, "/auth/discord/callback?state=x&code=c", &http.Cookie{Name: constants.CookieOAuthState, Value: "y"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, http.StatusBadRequest, s.get(t, "/auth/discord/callback?state=x&code=c").Code)
}

func TestDiscordCallbackMintsSession(t *testing.T) {
	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		switch r.URL.Path {
		case "/token":
			fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
		case "/users/@me":
			if r.Header.Get(constants.HeaderAuthorization) != constants.BearerPrefix+"tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"id":"gm","username":"gamemaster"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer discord.Close()

	s := newTestServer(t)
	s.auth.conf.Endpoint = oauthEndpoint(discord.URL)
	s.auth.userInfoURL = discord.URL + "/users/@me"

	w := s.get(t, "/auth/discord/callback?state=st&code=abc", &http.Cookie{Name: constants.CookieOAuthState, Value: "st"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"gm":true`)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == constants.CookieSessionName {
			session = c
		}
	}
	require.NotNil(t, session)
	require.Equal(t, http.StatusOK, s.get(t, "/api/ledger", session).Code)
}

func oauthEndpoint(base string) oauth2.Endpoint {
	return oauth2.Endpoint{AuthURL: base + "/authorize", TokenURL: base + "/token"}
}
