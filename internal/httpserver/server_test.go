package httpserver_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bvst/ChessHawk-sub000/assets"
	"github.com/bvst/ChessHawk-sub000/internal/daily"
	"github.com/bvst/ChessHawk-sub000/internal/httpserver"
	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
)

const serverSchema = `
CREATE TABLE users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL
);
CREATE TABLE progress (
    player_id   TEXT PRIMARY KEY,
    score       INTEGER NOT NULL DEFAULT 0,
    solve_count INTEGER NOT NULL DEFAULT 0,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE solved (
    player_id TEXT NOT NULL,
    puzzle_id TEXT NOT NULL,
    solved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (player_id, puzzle_id)
);
CREATE TABLE daily_results (
    user_id    TEXT NOT NULL,
    date       TEXT NOT NULL,
    puzzle_id  TEXT NOT NULL,
    hints_used INTEGER NOT NULL DEFAULT 0,
    elapsed_ms INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, date)
);`

func openServerDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// The pool would otherwise hand out fresh empty :memory: databases.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(serverSchema); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func builtinRepo(t *testing.T) *puzzle.Repository {
	t.Helper()
	repo, err := puzzle.Load("", assets.BuiltinPuzzles())
	if err != nil {
		t.Fatalf("load builtin collection: %v", err)
	}
	return repo
}

// startServer brings up a full server over httptest; db may be nil for the
// persistence-free mode.
func startServer(t *testing.T, db *sql.DB, repo *puzzle.Repository) *httptest.Server {
	t.Helper()
	if repo == nil {
		repo = builtinRepo(t)
	}
	s := httpserver.New(httpserver.Options{
		DB:            db,
		Puzzles:       repo,
		DailySalt:     "test_salt",
		JWTSecret:     "test_secret",
		OpponentDelay: 5 * time.Millisecond,
	})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

// newClient carries a cookie jar so the anon and auth cookies behave like
// a browser session.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// doJSON issues a request with an optional JSON body, asserts the status,
// and decodes the JSON reply.
func doJSON(t *testing.T, c *http.Client, method, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d, body %s", method, url, res.StatusCode, wantStatus, raw)
	}
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: bad JSON %q: %v", method, url, raw, err)
		}
	}
	return out
}

func getJSON(t *testing.T, c *http.Client, url string, wantStatus int) map[string]any {
	t.Helper()
	return doJSON(t, c, http.MethodGet, url, nil, wantStatus)
}

func postJSON(t *testing.T, c *http.Client, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	return doJSON(t, c, http.MethodPost, url, body, wantStatus)
}

// waitForMoveIndex polls a session snapshot until the scripted reply lands
// and the solution cursor reaches want.
func waitForMoveIndex(t *testing.T, c *http.Client, url string, want int) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := getJSON(t, c, url, http.StatusOK)
		waiting, _ := snap["waitingForOpponent"].(bool)
		if idx, ok := snap["moveIndex"].(float64); ok && int(idx) >= want && !waiting {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never reached move index %d", url, want)
	return nil
}

// playSolution drives a session through a full solution via the move
// endpoint, waiting out each scripted reply. Returns the final move result.
func playSolution(t *testing.T, c *http.Client, base, sid string, sol []string) map[string]any {
	t.Helper()
	var last map[string]any
	for i := 0; i < len(sol); i += 2 {
		last = postJSON(t, c, base+"/session/"+sid+"/move", map[string]string{"move": sol[i]}, http.StatusOK)
		if i+2 < len(sol) {
			waitForMoveIndex(t, c, base+"/session/"+sid, i+2)
		}
	}
	return last
}

func sessionID(t *testing.T, snap map[string]any) string {
	t.Helper()
	sid, _ := snap["sessionId"].(string)
	if sid == "" {
		t.Fatalf("snapshot has no session id: %v", snap)
	}
	return sid
}

func TestHealthAndDiagnostics(t *testing.T) {
	ts := startServer(t, nil, nil)
	c := newClient(t)

	if res := getJSON(t, c, ts.URL+"/health", http.StatusOK); res["ok"] != true {
		t.Errorf("health = %v", res)
	}
	if res := getJSON(t, c, ts.URL+"/", http.StatusOK); res["service"] != "chesshawk-go" {
		t.Errorf("index = %v", res)
	}
	res := getJSON(t, c, ts.URL+"/debug/puzzles", http.StatusOK)
	if res["puzzles"] != float64(8) || res["source"] != "builtin" {
		t.Errorf("debug/puzzles = %v", res)
	}
	if res := getJSON(t, c, ts.URL+"/definitely/not/here", http.StatusNotFound); res["error"] != "not_found" {
		t.Errorf("404 body = %v", res)
	}
}

func TestPuzzleBrowsing(t *testing.T) {
	ts := startServer(t, nil, nil)
	c := newClient(t)

	res := getJSON(t, c, ts.URL+"/puzzles", http.StatusOK)
	if res["count"] != float64(8) {
		t.Fatalf("count = %v, want 8", res["count"])
	}
	// Solutions and hints must not leak through the browse surface.
	list := res["puzzles"].([]any)
	first := list[0].(map[string]any)
	for _, secret := range []string{"solution", "hints", "Solution", "Hints"} {
		if _, leaked := first[secret]; leaked {
			t.Errorf("puzzle listing leaks %q", secret)
		}
	}

	if res := getJSON(t, c, ts.URL+"/puzzles?theme=mate", http.StatusOK); res["count"] != float64(2) {
		t.Errorf("theme=mate count = %v, want 2", res["count"])
	}
	res = getJSON(t, c, ts.URL+"/puzzles?difficulty=expert", http.StatusOK)
	if res["count"] != float64(1) {
		t.Fatalf("difficulty=expert count = %v, want 1", res["count"])
	}
	expert := res["puzzles"].([]any)[0].(map[string]any)
	if expert["id"] != "legalls-mate" {
		t.Errorf("expert puzzle = %v, want legalls-mate", expert["id"])
	}
	getJSON(t, c, ts.URL+"/puzzles?difficulty=impossible", http.StatusBadRequest)

	p := getJSON(t, c, ts.URL+"/puzzles/scholars-mate", http.StatusOK)
	if p["difficulty"] != "beginner" || p["points"] != float64(10) {
		t.Errorf("scholars-mate = %v", p)
	}
	getJSON(t, c, ts.URL+"/puzzles/no-such-puzzle", http.StatusNotFound)

	stats := getJSON(t, c, ts.URL+"/puzzles/stats", http.StatusOK)
	if stats["total"] != float64(8) || stats["ratingMin"] != float64(800) || stats["ratingMax"] != float64(2050) {
		t.Errorf("stats = %v", stats)
	}
}

func TestSolveFlowOverHTTP(t *testing.T) {
	ts := startServer(t, nil, nil)
	c := newClient(t)

	snap := postJSON(t, c, ts.URL+"/session/new", map[string]string{"puzzleId": "scholars-mate"}, http.StatusOK)
	sid := sessionID(t, snap)
	if snap["state"] != "awaiting_move" || snap["hintsTotal"] != float64(2) {
		t.Fatalf("fresh session = %v", snap)
	}

	// The anon cookie makes the session discoverable again.
	cur := getJSON(t, c, ts.URL+"/session/current", http.StatusOK)
	if sessionID(t, cur) != sid {
		t.Errorf("current session = %s, want %s", sessionID(t, cur), sid)
	}

	// Illegal SAN is a 400 and does not touch the machine.
	postJSON(t, c, ts.URL+"/session/"+sid+"/move", map[string]string{"move": "Ke5"}, http.StatusBadRequest)

	// A legal but wrong move is a normal response carrying the verdict.
	res := postJSON(t, c, ts.URL+"/session/"+sid+"/move", map[string]string{"move": "a3"}, http.StatusOK)
	if res["verdict"] != "wrong" || res["expected"] != "Qxf7#" || res["moveIndex"] != float64(0) {
		t.Fatalf("wrong move result = %v", res)
	}

	// Reset rewinds the board to the puzzle position.
	snap = postJSON(t, c, ts.URL+"/session/"+sid+"/reset", nil, http.StatusOK)
	if fen, _ := snap["fen"].(string); !strings.HasPrefix(fen, "r1bqkb1r/pppp1ppp/2n2n2/4p2Q") {
		t.Errorf("reset fen = %v", snap["fen"])
	}

	// The queen on h5 can reach f7.
	tg := getJSON(t, c, ts.URL+"/session/"+sid+"/targets?square=h5", http.StatusOK)
	found := false
	for _, sq := range tg["targets"].([]any) {
		if sq == "f7" {
			found = true
		}
	}
	if !found {
		t.Errorf("targets from h5 = %v, want f7 included", tg["targets"])
	}
	getJSON(t, c, ts.URL+"/session/"+sid+"/targets", http.StatusBadRequest)

	h := postJSON(t, c, ts.URL+"/session/"+sid+"/hint", nil, http.StatusOK)
	if h["number"] != float64(1) || h["total"] != float64(2) {
		t.Errorf("hint = %v", h)
	}

	res = postJSON(t, c, ts.URL+"/session/"+sid+"/move", map[string]string{"move": "Qxf7#"}, http.StatusOK)
	if res["verdict"] != "solved" {
		t.Fatalf("solve result = %v", res)
	}
	comp := res["completion"].(map[string]any)
	if comp["points"] != float64(10) || comp["firstSolve"] != true || comp["hintsUsed"] != float64(1) {
		t.Errorf("completion = %v", comp)
	}

	// Solved sessions reject further moves until a reset or a new puzzle.
	postJSON(t, c, ts.URL+"/session/"+sid+"/move", map[string]string{"move": "a3"}, http.StatusConflict)

	prog := getJSON(t, c, ts.URL+"/progress/me", http.StatusOK)
	if prog["score"] != float64(10) || prog["solvedCount"] != float64(1) {
		t.Errorf("progress = %v", prog)
	}

	// Navigation leaves the solved state behind.
	snap = postJSON(t, c, ts.URL+"/session/"+sid+"/next", nil, http.StatusOK)
	next := snap["puzzle"].(map[string]any)
	if next["id"] == "scholars-mate" {
		t.Errorf("next puzzle did not advance: %v", next["id"])
	}
	if snap["state"] != "awaiting_move" {
		t.Errorf("state after next = %v", snap["state"])
	}

	doJSON(t, c, http.MethodDelete, ts.URL+"/session/"+sid, nil, http.StatusOK)
	getJSON(t, c, ts.URL+"/session/"+sid, http.StatusNotFound)
}

func TestOpponentReplyOverHTTP(t *testing.T) {
	ts := startServer(t, nil, nil)
	c := newClient(t)

	snap := postJSON(t, c, ts.URL+"/session/new", map[string]string{"puzzleId": "knight-fork-a8"}, http.StatusOK)
	sid := sessionID(t, snap)

	res := postJSON(t, c, ts.URL+"/session/"+sid+"/move", map[string]string{"move": "Nc7+"}, http.StatusOK)
	if res["verdict"] != "correct" || res["waitingForOpponent"] != true {
		t.Fatalf("first move result = %v", res)
	}

	snap = waitForMoveIndex(t, c, ts.URL+"/session/"+sid, 2)
	if snap["state"] != "awaiting_move" || snap["playerStep"] != float64(1) {
		t.Fatalf("after reply = %v", snap)
	}

	res = playSolution(t, c, ts.URL, sid, []string{"Nxa8"})
	comp := res["completion"].(map[string]any)
	if comp["points"] != float64(15) || comp["puzzleId"] != "knight-fork-a8" {
		t.Errorf("completion = %v", comp)
	}
}

func TestAuthAndAnonClaim(t *testing.T) {
	ts := startServer(t, openServerDB(t), nil)
	c := newClient(t)

	// Solve one puzzle as a guest.
	snap := postJSON(t, c, ts.URL+"/session/new", map[string]string{"puzzleId": "back-rank-rd8"}, http.StatusOK)
	playSolution(t, c, ts.URL, sessionID(t, snap), []string{"Rd8#"})
	if prog := getJSON(t, c, ts.URL+"/progress/me", http.StatusOK); prog["score"] != float64(10) {
		t.Fatalf("guest progress = %v", prog)
	}

	// Gated routes reject guests.
	getJSON(t, c, ts.URL+"/auth/me", http.StatusUnauthorized)
	getJSON(t, c, ts.URL+"/stats/me", http.StatusUnauthorized)

	// Validation errors surface as 400s.
	postJSON(t, c, ts.URL+"/auth/signup", map[string]string{"username": "ab", "password": "longenough1"}, http.StatusBadRequest)
	postJSON(t, c, ts.URL+"/auth/signup", map[string]string{"username": "hawkfan", "password": "short"}, http.StatusBadRequest)

	// Signup claims the anonymous history.
	u := postJSON(t, c, ts.URL+"/auth/signup", map[string]string{"username": "hawkfan", "password": "supersecret1"}, http.StatusOK)
	if u["username"] != "hawkfan" {
		t.Fatalf("signup = %v", u)
	}
	if me := getJSON(t, c, ts.URL+"/auth/me", http.StatusOK); me["username"] != "hawkfan" {
		t.Errorf("auth/me = %v", me)
	}
	stats := getJSON(t, c, ts.URL+"/stats/me", http.StatusOK)
	if stats["score"] != float64(10) || stats["solvedCount"] != float64(1) {
		t.Errorf("claimed stats = %v", stats)
	}
	ids := stats["solvedIds"].([]any)
	if len(ids) != 1 || ids[0] != "back-rank-rd8" {
		t.Errorf("claimed solved ids = %v", ids)
	}

	postJSON(t, c, ts.URL+"/auth/signup", map[string]string{"username": "hawkfan", "password": "supersecret1"}, http.StatusConflict)

	// Logout drops the account identity; the anon history is gone because
	// it moved to the account.
	postJSON(t, c, ts.URL+"/auth/logout", nil, http.StatusOK)
	getJSON(t, c, ts.URL+"/auth/me", http.StatusUnauthorized)
	if prog := getJSON(t, c, ts.URL+"/progress/me", http.StatusOK); prog["score"] != float64(0) {
		t.Errorf("anon progress after claim = %v", prog)
	}

	postJSON(t, c, ts.URL+"/auth/login", map[string]string{"username": "hawkfan", "password": "wrongwrong1"}, http.StatusUnauthorized)
	postJSON(t, c, ts.URL+"/auth/login", map[string]string{"username": "hawkfan", "password": "supersecret1"}, http.StatusOK)
	if stats := getJSON(t, c, ts.URL+"/stats/me", http.StatusOK); stats["score"] != float64(10) {
		t.Errorf("stats after login = %v", stats)
	}
}

func TestDailyFlow(t *testing.T) {
	repo := builtinRepo(t)
	ts := startServer(t, openServerDB(t), repo)
	c := newClient(t)

	// The server and the test derive today's pick the same way.
	now := time.Now().UTC()
	want := repo.All()[daily.PuzzleIndex(now, "test_salt", repo.Count())]

	res := postJSON(t, c, ts.URL+"/daily/new", nil, http.StatusOK)
	if res["played"] != false || res["puzzleId"] != want.ID || res["date"] != daily.DateKey(now) {
		t.Fatalf("daily/new = %v, want puzzle %s", res, want.ID)
	}
	sid := res["sessionId"].(string)

	// Asking again reuses the same attempt.
	if again := postJSON(t, c, ts.URL+"/daily/new", nil, http.StatusOK); again["sessionId"] != sid {
		t.Errorf("daily/new did not reuse attempt: %v", again)
	}

	// Claims without a solve are rejected.
	postJSON(t, c, ts.URL+"/daily/complete", map[string]string{"sessionId": "bogus"}, http.StatusConflict)
	postJSON(t, c, ts.URL+"/daily/complete", map[string]string{"sessionId": sid}, http.StatusConflict)

	// One hint, then solve for real.
	postJSON(t, c, ts.URL+"/session/"+sid+"/hint", nil, http.StatusOK)
	playSolution(t, c, ts.URL, sid, want.Solution)

	done := postJSON(t, c, ts.URL+"/daily/complete", map[string]string{"sessionId": sid}, http.StatusOK)
	if done["hintsUsed"] != float64(1) || done["date"] != daily.DateKey(now) {
		t.Fatalf("daily/complete = %v", done)
	}

	// The day is now locked and the result is on the board.
	if res := postJSON(t, c, ts.URL+"/daily/new", nil, http.StatusOK); res["played"] != true {
		t.Errorf("daily/new after completion = %v", res)
	}
	lb := getJSON(t, c, ts.URL+"/daily/leaderboard", http.StatusOK)
	top := lb["top"].([]any)
	if len(top) != 1 {
		t.Fatalf("leaderboard = %v, want one row", lb)
	}
	if row := top[0].(map[string]any); row["hintsUsed"] != float64(1) {
		t.Errorf("leaderboard row = %v", row)
	}
}

func TestSessionEventStream(t *testing.T) {
	ts := startServer(t, nil, nil)
	c := newClient(t)

	snap := postJSON(t, c, ts.URL+"/session/new", map[string]string{"puzzleId": "scholars-mate"}, http.StatusOK)
	sid := sessionID(t, snap)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/session/" + sid + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	readEvent := func() map[string]any {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev map[string]any
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		return ev
	}

	// Late joiners get a board + score sync first.
	if ev := readEvent(); ev["type"] != "board" || !strings.HasPrefix(ev["fen"].(string), "r1bqkb1r") {
		t.Fatalf("first event = %v", ev)
	}
	if ev := readEvent(); ev["type"] != "score" {
		t.Fatalf("second event = %v", ev)
	}

	// A hint over REST shows up as a feedback event on the stream.
	postJSON(t, c, ts.URL+"/session/"+sid+"/hint", nil, http.StatusOK)
	sawHint := false
	for i := 0; i < 10 && !sawHint; i++ {
		ev := readEvent()
		if ev["type"] == "feedback" {
			if text, _ := ev["text"].(string); strings.HasPrefix(text, "Hint 1/2") {
				sawHint = true
			}
		}
	}
	if !sawHint {
		t.Error("hint feedback never arrived on the stream")
	}

	// Unknown sessions fail the handshake with a 404.
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/session/nope/ws", nil)
	if err == nil {
		t.Fatal("dial for unknown session should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake status = %v, want 404", resp)
	}
}

func TestErrorStatuses(t *testing.T) {
	doc := `{"puzzles":[{"id":"bare","fen":"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1","solution":["e4"],"rating":1000}]}`
	repo, err := puzzle.Load("", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	ts := startServer(t, nil, repo)
	c := newClient(t)

	postJSON(t, c, ts.URL+"/session/new", map[string]string{"puzzleId": "missing"}, http.StatusNotFound)
	postJSON(t, c, ts.URL+"/session/new", map[string]string{"difficulty": "weird"}, http.StatusBadRequest)

	snap := postJSON(t, c, ts.URL+"/session/new", nil, http.StatusOK)
	sid := sessionID(t, snap)

	// No hints authored for this puzzle.
	postJSON(t, c, ts.URL+"/session/"+sid+"/hint", nil, http.StatusNotFound)
	// Nothing on the board to check yet.
	postJSON(t, c, ts.URL+"/session/"+sid+"/check", nil, http.StatusBadRequest)
	// No puzzle matches the filter.
	postJSON(t, c, ts.URL+"/session/"+sid+"/random", map[string]string{"theme": "jungle"}, http.StatusNotFound)
	// Unknown session ids are 404s on every verb.
	getJSON(t, c, ts.URL+"/session/unknown-session", http.StatusNotFound)
	postJSON(t, c, ts.URL+"/session/unknown-session/move", map[string]string{"move": "e4"}, http.StatusNotFound)
}
