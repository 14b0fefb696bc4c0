package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/daily"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/store"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// midpoint always draws n/2: easy (1..10) targets 6, medium (1..50) targets 26.
var midpoint = game.RandFunc(func(n int) int { return n / 2 })

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T) (*Server, *client) {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "numguess.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatal(err)
	}

	srv := New(Deps{
		Config: config.Default(),
		DB:     db,
		KV:     store.NewSQLiteKV(db),
		Now:    func() time.Time { return testNow },
		Rand:   midpoint,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, newClient(t, ts.URL)
}

func newClient(t *testing.T, base string) *client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &client{t: t, base: base, http: &http.Client{Jar: jar}}
}

// do sends body as JSON (raw strings verbatim) and decodes the reply into out.
func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			c.t.Fatal(err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		c.t.Fatal(err)
	}
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (c *client) expectError(method, path string, body any, status int, code string) {
	c.t.Helper()
	var e errorRes
	if got := c.do(method, path, body, &e); got != status || e.Error != code {
		c.t.Errorf("%s %s = %d %q, expected %d %q", method, path, got, e.Error, status, code)
	}
}

func (c *client) cookie(name string) string {
	c.t.Helper()
	u, err := url.Parse(c.base)
	if err != nil {
		c.t.Fatal(err)
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func TestHealthAndProfiles(t *testing.T) {
	_, c := newTestServer(t)

	var ok map[string]bool
	if status := c.do(http.MethodGet, "/health", nil, &ok); status != http.StatusOK || !ok["ok"] {
		t.Fatalf("/health = %d %v", status, ok)
	}
	var profiles game.Profiles
	c.do(http.MethodGet, "/profiles", nil, &profiles)
	if profiles[game.Hard].Max != 100 {
		t.Errorf("hard profile = %+v", profiles[game.Hard])
	}
	c.expectError(http.MethodGet, "/nope", nil, http.StatusNotFound, "not_found")
}

func TestGamePlayToWin(t *testing.T) {
	_, c := newTestServer(t)

	var st stateRes
	c.do(http.MethodGet, "/game", nil, &st)
	if st.Session.State != game.StateIdle {
		t.Fatalf("initial state = %s", st.Session.State)
	}

	if status := c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "easy"}, &st); status != http.StatusOK {
		t.Fatalf("/game/new = %d", status)
	}
	if st.Session.Min != 1 || st.Session.Max != 10 || st.Session.MaxAttempts != 5 {
		t.Fatalf("session = %+v", st.Session)
	}
	if st.Message != "New game started! Guess a number between 1 and 10" {
		t.Errorf("message = %q", st.Message)
	}

	var g guessRes
	c.do(http.MethodPost, "/game/guess", `{"guess":"3"}`, &g)
	if g.Outcome != game.OutcomeContinue || g.Direction != game.Higher {
		t.Fatalf("guess 3 = %s/%s", g.Outcome, g.Direction)
	}
	if g.Message != "Wrong! Try a higher number." {
		t.Errorf("message = %q", g.Message)
	}
	c.do(http.MethodPost, "/game/guess", `{"guess":9}`, &g)
	if g.Direction != game.Lower || g.Session.AttemptsRemaining != 3 {
		t.Fatalf("guess 9 = %s, remaining %d", g.Direction, g.Session.AttemptsRemaining)
	}
	c.do(http.MethodPost, "/game/guess", `{"guess":6}`, &g)
	if g.Outcome != game.OutcomeWin || g.Target != 6 {
		t.Fatalf("guess 6 = %s target %d", g.Outcome, g.Target)
	}
	// 1 * (5 - 3 + 1)
	if g.PointsEarned != 3 || g.Score.Current != 3 || g.Score.High != 3 || !g.NewHighScore {
		t.Errorf("result = %+v", g.Result)
	}
	if g.Session.State != game.StateWon || len(g.Session.Guesses) != 3 {
		t.Errorf("session = %+v", g.Session)
	}

	c.expectError(http.MethodPost, "/game/guess", `{"guess":6}`, http.StatusBadRequest, "not_active")

	// the next game keeps accumulating
	c.do(http.MethodPost, "/game/reset", nil, &st)
	if st.Session.State != game.StateGuessing || st.Session.Difficulty != game.Easy {
		t.Fatalf("reset session = %+v", st.Session)
	}
	c.do(http.MethodPost, "/game/guess", `{"guess":6}`, &g)
	if g.Score.Current != 8 || g.Score.High != 8 {
		t.Errorf("score after second win = %+v", g.Score)
	}
}

func TestGameLoss(t *testing.T) {
	_, c := newTestServer(t)
	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "easy"}, nil)

	var g guessRes
	for i := 0; i < 5; i++ {
		c.do(http.MethodPost, "/game/guess", `{"guess":1}`, &g)
	}
	if g.Outcome != game.OutcomeLoss || g.Session.State != game.StateLost {
		t.Fatalf("after five misses: %s/%s", g.Outcome, g.Session.State)
	}
	if g.Message != "Game Over! The number was 6." {
		t.Errorf("message = %q", g.Message)
	}
}

func TestGameRejections(t *testing.T) {
	_, c := newTestServer(t)

	c.expectError(http.MethodPost, "/game/guess", `{"guess":5}`, http.StatusBadRequest, "not_active")
	c.expectError(http.MethodPost, "/game/hint", nil, http.StatusBadRequest, "not_active")
	c.expectError(http.MethodPost, "/game/new", map[string]string{"difficulty": "extreme"}, http.StatusBadRequest, "unknown_difficulty")
	c.expectError(http.MethodPost, "/game/guess", `not json`, http.StatusBadRequest, "bad_json")

	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "easy"}, nil)
	c.expectError(http.MethodPost, "/game/guess", `{"guess":"abc"}`, http.StatusBadRequest, "not_a_number")
	c.expectError(http.MethodPost, "/game/guess", `{"guess":"4.5"}`, http.StatusBadRequest, "not_a_number")
	c.expectError(http.MethodPost, "/game/guess", `{}`, http.StatusBadRequest, "not_a_number")
	c.expectError(http.MethodPost, "/game/guess", `{"guess":11}`, http.StatusBadRequest, "out_of_range")
	c.expectError(http.MethodPost, "/game/guess", `{"guess":"0"}`, http.StatusBadRequest, "out_of_range")

	var st stateRes
	c.do(http.MethodGet, "/game", nil, &st)
	if st.Session.AttemptsUsed != 0 {
		t.Errorf("rejections consumed %d attempts", st.Session.AttemptsUsed)
	}
}

func TestGameHint(t *testing.T) {
	_, c := newTestServer(t)
	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "medium"}, nil)

	var h hintRes
	if status := c.do(http.MethodPost, "/game/hint", nil, &h); status != http.StatusOK {
		t.Fatalf("/game/hint = %d", status)
	}
	if h.Hint != (game.Hint{Quarter: 3, Low: 26, High: 37}) {
		t.Errorf("hint = %+v", h.Hint)
	}
	if h.Session.AttemptsRemaining != 6 || h.Session.HintsUsed != 1 {
		t.Errorf("session after hint = %+v", h.Session)
	}
	if h.Message == "" {
		t.Error("empty hint message")
	}
}

func TestPlayersAreIsolated(t *testing.T) {
	_, a := newTestServer(t)
	b := newClient(t, a.base)

	a.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "hard"}, nil)
	var st stateRes
	b.do(http.MethodGet, "/game", nil, &st)
	if st.Session.State != game.StateIdle {
		t.Errorf("second player sees state %s", st.Session.State)
	}
}

func TestAuthFlowClaimsGuestProgress(t *testing.T) {
	_, c := newTestServer(t)

	// win as a guest: 1 * (5 - 1 + 1)
	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "easy"}, nil)
	var g guessRes
	c.do(http.MethodPost, "/game/guess", `{"guess":6}`, &g)
	if g.Score.High != 5 {
		t.Fatalf("guest high = %d", g.Score.High)
	}

	creds := map[string]string{"username": "player_one", "password": "correct-horse"}
	if status := c.do(http.MethodPost, "/auth/signup", creds, nil); status != http.StatusOK {
		t.Fatalf("/auth/signup = %d", status)
	}
	c.expectError(http.MethodPost, "/auth/signup", creds, http.StatusConflict, "username_taken")

	var me authUser
	if status := c.do(http.MethodGet, "/auth/me", nil, &me); status != http.StatusOK || me.Username != "player_one" {
		t.Fatalf("/auth/me = %d %+v", status, me)
	}

	var st stateRes
	c.do(http.MethodGet, "/game", nil, &st)
	if st.Score.High != 5 || st.Score.Current != 0 {
		t.Fatalf("account score after claim = %+v", st.Score)
	}

	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "medium"}, nil)
	c.do(http.MethodPost, "/game/guess", `{"guess":26}`, &g)
	// 2 * (7 - 1 + 1)
	if g.PointsEarned != 14 || g.Score.High != 14 {
		t.Fatalf("account win = %+v", g.Result)
	}

	var stats struct {
		GamesPlayed, Wins, Streak, BestScore int
	}
	c.do(http.MethodGet, "/stats/me", nil, &stats)
	if stats.GamesPlayed != 1 || stats.Wins != 1 || stats.Streak != 1 || stats.BestScore != 14 {
		t.Errorf("stats = %+v", stats)
	}

	var games []gameRow
	c.do(http.MethodGet, "/games/mine", nil, &games)
	if len(games) != 2 {
		t.Fatalf("games = %+v", games)
	}
	for _, gr := range games {
		if gr.Status != "won" {
			t.Errorf("game %s status = %s", gr.ID, gr.Status)
		}
	}

	c.do(http.MethodPost, "/auth/logout", nil, nil)
	c.expectError(http.MethodGet, "/auth/me", nil, http.StatusUnauthorized, "unauthorized")

	// log back in from a fresh client
	other := newClient(t, c.base)
	other.expectError(http.MethodPost, "/auth/login", map[string]string{"username": "player_one", "password": "wrong-password"},
		http.StatusUnauthorized, "invalid_credentials")
	if status := other.do(http.MethodPost, "/auth/login", creds, nil); status != http.StatusOK {
		t.Fatalf("/auth/login = %d", status)
	}
	other.do(http.MethodGet, "/game", nil, &st)
	if st.Score.High != 14 {
		t.Errorf("high after login = %d", st.Score.High)
	}
}

func TestSignupValidation(t *testing.T) {
	_, c := newTestServer(t)
	c.expectError(http.MethodPost, "/auth/signup", map[string]string{"username": "ab", "password": "long-enough"},
		http.StatusBadRequest, "invalid_signup")
	c.expectError(http.MethodPost, "/auth/signup", map[string]string{"username": "good_name", "password": "short"},
		http.StatusBadRequest, "invalid_signup")
}

func TestAbandonedGameIsRecorded(t *testing.T) {
	srv, c := newTestServer(t)
	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "easy"}, nil)
	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "hard"}, nil)

	var abandoned, playing int
	row := srv.db.QueryRow(`SELECT
		SUM(CASE WHEN status='abandoned' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status='playing' THEN 1 ELSE 0 END) FROM games`)
	if err := row.Scan(&abandoned, &playing); err != nil {
		t.Fatal(err)
	}
	if abandoned != 1 || playing != 1 {
		t.Errorf("abandoned=%d playing=%d", abandoned, playing)
	}
}

func dailyTarget(t *testing.T) int {
	t.Helper()
	e, err := game.New(context.Background(), game.Options{Rand: daily.Rand(testNow, config.Default().DailySalt)})
	if err != nil {
		t.Fatal(err)
	}
	return e.StartGame(daily.Difficulty).Target
}

func TestDailyChallenge(t *testing.T) {
	_, c := newTestServer(t)
	target := dailyTarget(t)

	c.expectError(http.MethodPost, "/daily/guess", `{"guess":1}`, http.StatusConflict, "no_session")

	var nr dailyNewRes
	c.do(http.MethodPost, "/daily/new", nil, &nr)
	if nr.Played || nr.Session == nil || nr.Date != "2026-10-17" {
		t.Fatalf("/daily/new = %+v", nr)
	}
	if nr.Session.Difficulty != game.Medium {
		t.Errorf("daily difficulty = %s", nr.Session.Difficulty)
	}

	var g guessRes
	c.do(http.MethodPost, "/daily/guess", map[string]int{"guess": target}, &g)
	if g.Outcome != game.OutcomeWin || g.PointsEarned != 14 || g.NewHighScore {
		t.Fatalf("daily win = %+v", g.Result)
	}

	c.do(http.MethodPost, "/daily/new", nil, &nr)
	if !nr.Played {
		t.Error("second /daily/new should report played")
	}

	var lb lbRes
	c.do(http.MethodGet, "/daily/leaderboard", nil, &lb)
	if len(lb.Top) != 1 || lb.Top[0].Attempts != 1 {
		t.Fatalf("leaderboard = %+v", lb)
	}

	// daily points never reach the regular high score
	var st stateRes
	c.do(http.MethodGet, "/game", nil, &st)
	if st.Score.High != 0 {
		t.Errorf("regular high = %d", st.Score.High)
	}

	c.expectError(http.MethodGet, "/daily/leaderboard?date=yesterday", nil, http.StatusBadRequest, "bad_date")
}

func TestDailyResumesInProgressGame(t *testing.T) {
	_, c := newTestServer(t)
	c.do(http.MethodPost, "/daily/new", nil, nil)

	miss := 1
	if dailyTarget(t) == 1 {
		miss = 2
	}
	c.do(http.MethodPost, "/daily/guess", map[string]int{"guess": miss}, nil)

	var nr dailyNewRes
	c.do(http.MethodPost, "/daily/new", nil, &nr)
	if nr.Session == nil || nr.Session.AttemptsUsed != 1 {
		t.Fatalf("resumed session = %+v", nr.Session)
	}
}

func TestSweepDropsIdleEngines(t *testing.T) {
	srv, c := newTestServer(t)
	c.do(http.MethodPost, "/game/new", nil, nil)
	c.do(http.MethodPost, "/daily/new", nil, nil)
	if srv.Sessions().Len() != 1 {
		t.Fatalf("sessions = %d", srv.Sessions().Len())
	}
	if n := srv.Sweep(-time.Minute); n != 2 {
		t.Errorf("Sweep() = %d, expected 2", n)
	}
}

func TestRawGuess(t *testing.T) {
	cases := []struct{ in, want string }{
		{``, ""},
		{`"42"`, "42"},
		{`42`, "42"},
		{`" 7 "`, " 7 "},
		{`null`, "null"},
		{`[1]`, "[1]"},
		{`"x\"y"`, `x"y`},
	}
	for _, tc := range cases {
		if got := rawGuess(json.RawMessage(tc.in)); got != tc.want {
			t.Errorf("rawGuess(%q) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}

func TestSignupDuplicateDiffersOnlyInCase(t *testing.T) {
	srv, c := newTestServer(t)
	if status := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "player_one", "password": "correct-horse"}, nil); status != http.StatusOK {
		t.Fatalf("/auth/signup = %d", status)
	}
	other := newClient(t, c.base)
	other.expectError(http.MethodPost, "/auth/signup", map[string]string{"username": "Player_One", "password": "battery-staple"},
		http.StatusConflict, "username_taken")

	// the insert itself maps the unique index, for signups that pass the check together
	err := srv.insertUser(context.Background(), &userRow{ID: genID(), Username: "PLAYER_ONE", PasswordHash: "x", CreatedAt: testNow})
	if !errors.Is(err, errUsernameTaken) {
		t.Errorf("insertUser(duplicate) error = %v, expected errUsernameTaken", err)
	}
}

func TestSignupStorageFailureIsNotEchoed(t *testing.T) {
	srv, c := newTestServer(t)
	srv.db.Close()

	var e errorRes
	status := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "player_one", "password": "correct-horse"}, &e)
	if status != http.StatusInternalServerError || e.Error != "server_error" || e.Message != "" {
		t.Errorf("/auth/signup with closed db = %d %+v", status, e)
	}
}

func TestDailyLeaderboardHidesPlayerIDs(t *testing.T) {
	_, guest := newTestServer(t)
	target := dailyTarget(t)

	guest.do(http.MethodPost, "/daily/new", nil, nil)
	guest.do(http.MethodPost, "/daily/guess", map[string]int{"guess": target}, nil)
	anon := guest.cookie(anonCookieName)
	if anon == "" {
		t.Fatal("guest has no anonymous cookie")
	}

	member := newClient(t, guest.base)
	member.do(http.MethodPost, "/auth/signup", map[string]string{"username": "daily_fan", "password": "correct-horse"}, nil)
	var me authUser
	member.do(http.MethodGet, "/auth/me", nil, &me)
	member.do(http.MethodPost, "/daily/new", nil, nil)
	member.do(http.MethodPost, "/daily/guess", map[string]int{"guess": target}, nil)

	var lb struct {
		Top []map[string]any `json:"top"`
	}
	guest.do(http.MethodGet, "/daily/leaderboard", nil, &lb)
	if len(lb.Top) != 2 {
		t.Fatalf("leaderboard = %+v", lb.Top)
	}
	names := map[any]bool{}
	for _, row := range lb.Top {
		for k, v := range row {
			if v == anon || v == me.ID {
				t.Errorf("leaderboard field %q exposes a player id", k)
			}
		}
		names[row["name"]] = true
	}
	if !names[daily.GuestName] || !names["daily_fan"] {
		t.Errorf("leaderboard names = %v", names)
	}
}

func TestDailyGuessKeepsSessionAlive(t *testing.T) {
	srv, c := newTestServer(t)
	miss := 1
	if dailyTarget(t) == 1 {
		miss = 2
	}

	c.do(http.MethodPost, "/daily/new", nil, nil)
	time.Sleep(80 * time.Millisecond)
	c.do(http.MethodPost, "/daily/guess", map[string]int{"guess": miss}, nil)
	if n := srv.Sweep(50 * time.Millisecond); n != 0 {
		t.Fatalf("Sweep() = %d right after a daily guess, expected 0", n)
	}

	var g guessRes
	if status := c.do(http.MethodPost, "/daily/guess", map[string]int{"guess": miss}, &g); status != http.StatusOK {
		t.Fatalf("/daily/guess after sweep = %d", status)
	}
	if g.Session.AttemptsUsed != 2 {
		t.Errorf("AttemptsUsed = %d, expected the run to continue", g.Session.AttemptsUsed)
	}
}

func TestLoginClaimKeepsAccountGame(t *testing.T) {
	_, c := newTestServer(t)
	creds := map[string]string{"username": "player_one", "password": "correct-horse"}
	c.do(http.MethodPost, "/auth/signup", creds, nil)

	// hard targets 51
	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "hard"}, nil)
	c.do(http.MethodPost, "/game/guess", `{"guess":1}`, nil)
	c.do(http.MethodPost, "/auth/logout", nil, nil)

	// the guest beats the account's high score: 1 * (5 - 1 + 1)
	c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "easy"}, nil)
	var g guessRes
	c.do(http.MethodPost, "/game/guess", `{"guess":6}`, &g)
	if g.Score.High != 5 {
		t.Fatalf("guest high = %d", g.Score.High)
	}

	if status := c.do(http.MethodPost, "/auth/login", creds, nil); status != http.StatusOK {
		t.Fatalf("/auth/login = %d", status)
	}
	var st stateRes
	c.do(http.MethodGet, "/game", nil, &st)
	if st.Session.State != game.StateGuessing || st.Session.Difficulty != game.Hard || st.Session.AttemptsUsed != 1 {
		t.Errorf("account game after login = %+v", st.Session)
	}
	if st.Score.High != 5 {
		t.Errorf("account high after claim = %d, expected 5", st.Score.High)
	}
}
