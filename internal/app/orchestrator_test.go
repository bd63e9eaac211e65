package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

const (
	quizID  = "6f1c2a9e-3b4d-4c5e-8f70-1a2b3c4d5e6f"
	ownerID = "0d9e8f7a-6b5c-4d3e-2f10-a9b8c7d6e5f4"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTimer struct {
	delay time.Duration
	fn    func()
	fired bool
}

// fakeScheduler holds timers until the test fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, &fakeTimer{delay: d, fn: fn})
}

// fireNext runs the oldest pending timer with the given delay.
func (s *fakeScheduler) fireNext(t *testing.T, d time.Duration) {
	t.Helper()
	s.mu.Lock()
	var next *fakeTimer
	for _, timer := range s.timers {
		if !timer.fired && timer.delay == d {
			next = timer
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	s.mu.Unlock()
	if next == nil {
		t.Fatalf("no pending timer with delay %v", d)
	}
	next.fn()
}

func (s *fakeScheduler) pending(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, timer := range s.timers {
		if !timer.fired && timer.delay == d {
			n++
		}
	}
	return n
}

type recorder struct {
	id   string
	mu   sync.Mutex
	msgs []broadcast.Message
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) Deliver(msg broadcast.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, msg := range r.msgs {
		if msg.Type == typ {
			n++
		}
	}
	return n
}

// last decodes the payload of the most recent message of type typ into dst.
func (r *recorder) last(t *testing.T, typ string, dst any) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].Type != typ {
			continue
		}
		data, err := json.Marshal(r.msgs[i].Payload)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, dst))
		return
	}
	t.Fatalf("%s never received %s", r.id, typ)
}

func (r *recorder) lastError(t *testing.T) string {
	t.Helper()
	var payload struct {
		Msg string `json:"msg"`
	}
	r.last(t, app.EvtError, &payload)
	return payload.Msg
}

type harness struct {
	o     *app.Orchestrator
	rooms *memory.RoomStore
	clock *fakeClock
	sched *fakeScheduler
}

func newHarness(t *testing.T, quizzes app.QuizRepository, opts ...app.Option) *harness {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	clock := &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	sched := &fakeScheduler{}
	rooms := memory.NewRoomStoreWithClock(nil, clock.Now)
	if quizzes == nil {
		quizzes = memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{quizID: twoQuestionQuiz()}), time.Minute)
	}
	opts = append([]app.Option{app.WithClock(clock.Now), app.WithScheduler(sched), app.WithLogger(log)}, opts...)
	return &harness{
		o:     app.NewOrchestrator(rooms, quizzes, broadcast.NewHub(log), opts...),
		rooms: rooms,
		clock: clock,
		sched: sched,
	}
}

func (h *harness) connect(id string) *recorder {
	rec := &recorder{id: id}
	h.o.Connect(rec, "")
	return rec
}

func (h *harness) send(t *testing.T, connID, typ string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	h.o.Handle(context.Background(), connID, typ, data)
}

// openRoom creates a room hosted by "host" and joins the given players.
func (h *harness) openRoom(t *testing.T, players ...string) (string, *recorder, map[string]*recorder) {
	t.Helper()
	host := h.connect("host")
	h.send(t, "host", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	var created struct {
		RoomCode      string `json:"roomCode"`
		QuestionCount int    `json:"questionCount"`
	}
	host.last(t, app.EvtRoomCreated, &created)
	require.True(t, app.IsValidRoomCode(created.RoomCode))
	require.Equal(t, 2, created.QuestionCount)

	recs := make(map[string]*recorder)
	for _, name := range players {
		recs[name] = h.connect(name)
		h.send(t, name, app.MsgJoinRoom, map[string]any{"roomCode": created.RoomCode, "nickname": name})
		require.Equal(t, 1, recs[name].count(app.EvtJoinedSuccess), "join %s", name)
	}
	return created.RoomCode, host, recs
}

type leaderboard struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

func TestFullGameScenario(t *testing.T) {
	h := newHarness(t, nil)
	code, host, players := h.openRoom(t, "Ana", "Budi")
	ana, budi := players["Ana"], players["Budi"]

	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	require.Equal(t, 1, ana.count(app.EvtGameStarted))
	var question struct {
		QIndex   int `json:"qIndex"`
		Duration int `json:"duration"`
		Points   int `json:"points"`
	}
	budi.last(t, app.EvtQuestionStart, &question)
	require.Equal(t, 0, question.QIndex)
	require.Equal(t, 15, question.Duration)

	h.clock.Advance(3 * time.Second)
	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 1, "timeElapsed": 3})
	var result struct {
		IsCorrect        bool `json:"isCorrect"`
		ScoreEarned      int  `json:"scoreEarned"`
		CurrentTotal     int  `json:"currentTotal"`
		CorrectAnswerIdx int  `json:"correctAnswerIdx"`
	}
	ana.last(t, app.EvtAnswerResult, &result)
	require.True(t, result.IsCorrect)
	require.Equal(t, 20, result.ScoreEarned)
	require.Equal(t, 20, result.CurrentTotal)

	h.clock.Advance(time.Second)
	h.send(t, "Budi", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 0, "timeElapsed": 4})
	budi.last(t, app.EvtAnswerResult, &result)
	require.False(t, result.IsCorrect)
	require.Equal(t, 0, result.ScoreEarned)
	require.Equal(t, 1, result.CorrectAnswerIdx)

	var stats map[string]int
	host.last(t, app.EvtLiveStats, &stats)
	require.Equal(t, map[string]int{"a": 1, "b": 1, "c": 0, "d": 0}, stats)
	require.Zero(t, ana.count(app.EvtLiveStats))

	h.send(t, "host", app.MsgGameNext, map[string]any{"roomCode": code})
	var reveal struct {
		CorrectAnswerIdx int `json:"correctAnswerIdx"`
	}
	ana.last(t, app.EvtQuestionEnd, &reveal)
	require.Equal(t, 1, reveal.CorrectAnswerIdx)
	var lb leaderboard
	ana.last(t, app.EvtUpdateLeaderboard, &lb)
	require.Equal(t, []domain.LeaderboardEntry{{Name: "Ana", Score: 20, Rank: 1}, {Name: "Budi", Score: 0, Rank: 2}}, lb.Leaderboard)
	budi.last(t, app.EvtQuestionStart, &question)
	require.Equal(t, 1, question.QIndex)
	require.Equal(t, 10, question.Points)

	// nobody answers question 2; both deadlines fire but only the current one reveals
	h.sched.fireNext(t, 17*time.Second)
	h.sched.fireNext(t, 17*time.Second)
	require.Equal(t, 2, ana.count(app.EvtQuestionEnd))

	h.send(t, "host", app.MsgGameEnd, map[string]any{"roomCode": code})
	var final struct {
		Winner *string                   `json:"winner"`
		Top3   []domain.LeaderboardEntry `json:"top3"`
	}
	budi.last(t, app.EvtFinalResults, &final)
	require.NotNil(t, final.Winner)
	require.Equal(t, "Ana", *final.Winner)
	require.Equal(t, []domain.LeaderboardEntry{{Name: "Ana", Score: 20, Rank: 1}, {Name: "Budi", Score: 0, Rank: 2}}, final.Top3)

	require.Equal(t, 1, h.rooms.Len())
	h.sched.fireNext(t, time.Minute)
	require.Zero(t, h.rooms.Len())

	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 1})
	require.Equal(t, "Room not found", ana.lastError(t))
}

func TestStaleDeadlineDoesNotRevealNextQuestion(t *testing.T) {
	h := newHarness(t, nil)
	code, _, players := h.openRoom(t, "Ana")
	ana := players["Ana"]

	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	h.send(t, "host", app.MsgGameNext, map[string]any{"roomCode": code})
	require.Equal(t, 1, ana.count(app.EvtQuestionEnd))

	// question 1's timer fires while question 2 is open
	h.sched.fireNext(t, 17*time.Second)
	require.Equal(t, 1, ana.count(app.EvtQuestionEnd))

	h.clock.Advance(2 * time.Second)
	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 1})
	require.Equal(t, 1, ana.count(app.EvtAnswerResult))
}

func TestDeadlineRevealsAnswer(t *testing.T) {
	h := newHarness(t, nil)
	code, host, players := h.openRoom(t, "Ana")

	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	require.Equal(t, 1, h.sched.pending(17*time.Second))
	h.sched.fireNext(t, 17*time.Second)

	var reveal struct {
		CorrectAnswerIdx int `json:"correctAnswerIdx"`
	}
	host.last(t, app.EvtQuestionEnd, &reveal)
	require.Equal(t, 1, reveal.CorrectAnswerIdx)
	require.Equal(t, 1, players["Ana"].count(app.EvtUpdateLeaderboard))
}

func TestLateSubmissionUsesServerClock(t *testing.T) {
	h := newHarness(t, nil)
	code, _, players := h.openRoom(t, "Ana")
	ana := players["Ana"]

	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	h.clock.Advance(17500 * time.Millisecond)
	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 1, "timeElapsed": 1})
	require.Equal(t, "Submission too late", ana.lastError(t))
	require.Zero(t, ana.count(app.EvtAnswerResult))
}

func TestSlowAnswerScoresByServerClock(t *testing.T) {
	h := newHarness(t, nil)
	code, _, players := h.openRoom(t, "Ana")
	ana := players["Ana"]

	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	h.clock.Advance(12 * time.Second)
	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 1, "timeElapsed": 0.5})

	var result struct {
		ScoreEarned int `json:"scoreEarned"`
	}
	ana.last(t, app.EvtAnswerResult, &result)
	require.Equal(t, 10, result.ScoreEarned)
}

func TestHostDisconnectEndsRoom(t *testing.T) {
	h := newHarness(t, nil)
	code, _, players := h.openRoom(t, "Ana", "Budi")

	h.o.Disconnect("host")
	require.Equal(t, "Host disconnected", players["Ana"].lastError(t))
	room, ok := h.rooms.Get(code)
	require.True(t, ok)
	require.Equal(t, domain.StatusEnded, room.Status())

	// an ended room keeps its roster when players leave
	h.o.Disconnect("Budi")
	require.Equal(t, 2, players["Ana"].count(app.EvtPlayerJoined))

	h.sched.fireNext(t, 5*time.Second)
	require.Zero(t, h.rooms.Len())

	late := h.connect("late")
	h.send(t, "late", app.MsgJoinRoom, map[string]any{"roomCode": code, "nickname": "Late"})
	require.Equal(t, "Room not found", late.lastError(t))
}

func TestPlayerDisconnectUpdatesRoster(t *testing.T) {
	h := newHarness(t, nil)
	_, host, _ := h.openRoom(t, "Ana", "Budi")

	h.o.Disconnect("Ana")
	var roster struct {
		Name         string   `json:"name"`
		TotalPlayers int      `json:"totalPlayers"`
		Players      []string `json:"players"`
	}
	host.last(t, app.EvtPlayerJoined, &roster)
	require.Equal(t, "", roster.Name)
	require.Equal(t, 1, roster.TotalPlayers)
	require.Equal(t, []string{"Budi"}, roster.Players)

	h.o.Disconnect("nobody")
}

func TestHostOnlyActions(t *testing.T) {
	h := newHarness(t, nil)
	code, _, players := h.openRoom(t, "Ana")
	ana := players["Ana"]

	h.send(t, "Ana", app.MsgStartGame, map[string]any{"roomCode": code})
	require.Equal(t, "Only host can start the game", ana.lastError(t))
	h.send(t, "Ana", app.MsgGameNext, map[string]any{"roomCode": code})
	require.Equal(t, "Only host can control game", ana.lastError(t))
	h.send(t, "Ana", app.MsgGameEnd, map[string]any{"roomCode": code})
	require.Equal(t, "Only host can end game", ana.lastError(t))

	room, _ := h.rooms.Get(code)
	require.Equal(t, domain.StatusWaiting, room.Status())
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(t, nil)
	host := h.connect("host")
	h.send(t, "host", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	var created struct {
		RoomCode string `json:"roomCode"`
	}
	host.last(t, app.EvtRoomCreated, &created)
	code := created.RoomCode

	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	require.Equal(t, "No players in room", host.lastError(t))
	h.send(t, "host", app.MsgGameNext, map[string]any{"roomCode": code})
	require.Equal(t, "Game has not started", host.lastError(t))
	h.send(t, "host", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	require.Equal(t, "Already in a room", host.lastError(t))

	ana := h.connect("Ana")
	h.send(t, "Ana", app.MsgJoinRoom, map[string]any{"roomCode": code, "nickname": "Ana"})
	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	require.Equal(t, "Game already started", host.lastError(t))

	budi := h.connect("Budi")
	h.send(t, "Budi", app.MsgJoinRoom, map[string]any{"roomCode": code, "nickname": "Budi"})
	require.Equal(t, "Game already started", budi.lastError(t))

	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 3})
	require.Equal(t, "Invalid answer index", ana.lastError(t))
	h.send(t, "Budi", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 1})
	require.Equal(t, "Participant not found in room", budi.lastError(t))

	h.send(t, "host", app.MsgGameEnd, map[string]any{"roomCode": code})
	h.send(t, "host", app.MsgGameNext, map[string]any{"roomCode": code})
	require.Equal(t, "Game already ended", host.lastError(t))
	require.Equal(t, 1, h.sched.pending(time.Minute))
	h.send(t, "host", app.MsgGameEnd, map[string]any{"roomCode": code})
	require.Equal(t, 1, h.sched.pending(time.Minute))
}

func TestNameConflictOnJoin(t *testing.T) {
	h := newHarness(t, nil)
	code, _, _ := h.openRoom(t, "Ana")

	other := h.connect("other")
	h.send(t, "other", app.MsgJoinRoom, map[string]any{"roomCode": code, "nickname": " ANA "})
	require.Equal(t, "Nickname already taken", other.lastError(t))
}

func TestMalformedInput(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.connect("c1")

	cases := []struct {
		typ     string
		payload any
		want    string
	}{
		{app.MsgCreateRoom, map[string]any{"quizId": "nope", "userId": ownerID}, "Invalid Quiz ID format. Please use a valid UUID."},
		{app.MsgCreateRoom, map[string]any{"quizId": quizID}, "Invalid User ID format. Please use a valid UUID."},
		{app.MsgJoinRoom, map[string]any{"roomCode": "abc123", "nickname": "Ana"}, "Invalid room code format"},
		{app.MsgJoinRoom, map[string]any{"roomCode": "ABC123", "nickname": "   "}, "Nickname is required"},
		{app.MsgJoinRoom, map[string]any{"roomCode": 42}, "Invalid payload"},
		{app.MsgSubmitAnswer, map[string]any{"roomCode": "ABC123"}, "Answer index is required"},
		{app.MsgSubmitAnswer, map[string]any{"roomCode": "ABC123", "answerIdx": 0, "timeElapsed": -1}, "Invalid elapsed time"},
		{app.MsgStartGame, map[string]any{"roomCode": "ZZZZZZ"}, "Room not found"},
		{app.MsgCreateRoom, map[string]any{"quizId": "11111111-2222-3333-4444-555555555555", "userId": ownerID}, "Quiz not found"},
		{"shutdown", map[string]any{}, "Unsupported message type"},
	}
	for _, tc := range cases {
		h.send(t, "c1", tc.typ, tc.payload)
		require.Equal(t, tc.want, conn.lastError(t), "%s %v", tc.typ, tc.payload)
	}
	require.Zero(t, h.rooms.Len())
}

func TestCreateRoomRejectsInvalidQuiz(t *testing.T) {
	broken := twoQuestionQuiz()
	broken.Questions[1].CorrectIndex = 5
	empty := twoQuestionQuiz()
	empty.Questions = nil
	emptyID := "22222222-2222-4222-8222-222222222222"

	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		quizID:  broken,
		emptyID: empty,
	}), time.Minute)
	h := newHarness(t, repo)
	host := h.connect("host")

	h.send(t, "host", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	require.Equal(t, "Quiz has invalid questions", host.lastError(t))
	h.send(t, "host", app.MsgCreateRoom, map[string]any{"quizId": emptyID, "userId": ownerID})
	require.Equal(t, "No questions in quiz", host.lastError(t))
}

type brokenRepo struct{ panics bool }

func (r brokenRepo) GetQuiz(context.Context, string, string) (domain.Quiz, error) {
	if r.panics {
		panic("loader exploded")
	}
	return domain.Quiz{}, errors.New("connection refused")
}

func TestInternalFailuresStayWithSender(t *testing.T) {
	for _, panics := range []bool{false, true} {
		h := newHarness(t, brokenRepo{panics: panics})
		host := h.connect("host")
		bystander := h.connect("bystander")

		h.send(t, "host", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
		require.Equal(t, "Failed to create room", host.lastError(t))
		require.Zero(t, bystander.count(app.EvtError))
	}
}

func TestIdentityRequired(t *testing.T) {
	h := newHarness(t, nil, app.WithIdentityRequired(true))
	anon := h.connect("anon")
	h.send(t, "anon", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	require.Equal(t, "Authentication required", anon.lastError(t))

	authed := &recorder{id: "authed"}
	h.o.Connect(authed, ownerID)
	h.send(t, "authed", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	require.Equal(t, 1, authed.count(app.EvtRoomCreated))
}

func TestQuizOwnership(t *testing.T) {
	h := newHarness(t, nil)
	stranger := h.connect("stranger")
	h.send(t, "stranger", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": "11111111-2222-3333-4444-555555555555"})
	require.Equal(t, "Quiz not found", stranger.lastError(t))
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      quizID,
		OwnerID: ownerID,
		Title:   "Arithmetic",
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectIndex: 1, TimeLimitSeconds: 15, BasePoints: 20},
			{Text: "What is 3 * 3?", Options: []string{"6", "9", "12"}, CorrectIndex: 1, TimeLimitSeconds: 15, BasePoints: 10},
		},
	}
}

func TestRejoinLeavesEndedRoomGroup(t *testing.T) {
	h := newHarness(t, nil)
	codeA, _, players := h.openRoom(t, "Ana")
	ana := players["Ana"]
	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": codeA})
	h.send(t, "host", app.MsgGameEnd, map[string]any{"roomCode": codeA})

	hostB := h.connect("hostB")
	h.send(t, "hostB", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	var created struct {
		RoomCode string `json:"roomCode"`
	}
	hostB.last(t, app.EvtRoomCreated, &created)
	h.send(t, "Ana", app.MsgJoinRoom, map[string]any{"roomCode": created.RoomCode, "nickname": "Ana"})
	require.Equal(t, 2, ana.count(app.EvtJoinedSuccess))

	// room A's host leaves while Ana plays in room B
	h.o.Disconnect("host")
	require.Zero(t, ana.count(app.EvtError))
	require.Zero(t, hostB.count(app.EvtError))

	h.send(t, "hostB", app.MsgStartGame, map[string]any{"roomCode": created.RoomCode})
	require.Equal(t, 2, ana.count(app.EvtGameStarted))
}

func TestScoringFollowsOrchestratorClock(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	clock := &fakeClock{now: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{quizID: twoQuestionQuiz()}), time.Minute)
	o := app.NewOrchestrator(memory.NewRoomStore(nil), quizzes, broadcast.NewHub(log),
		app.WithClock(clock.Now), app.WithScheduler(&fakeScheduler{}), app.WithLogger(log))
	h := &harness{o: o, clock: clock}

	host := h.connect("host")
	ana := h.connect("Ana")
	h.send(t, "host", app.MsgCreateRoom, map[string]any{"quizId": quizID, "userId": ownerID})
	var created struct {
		RoomCode string `json:"roomCode"`
	}
	host.last(t, app.EvtRoomCreated, &created)
	h.send(t, "Ana", app.MsgJoinRoom, map[string]any{"roomCode": created.RoomCode, "nickname": "Ana"})
	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": created.RoomCode})

	clock.Advance(3 * time.Second)
	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": created.RoomCode, "answerIdx": 1})
	var result struct {
		ScoreEarned int `json:"scoreEarned"`
	}
	ana.last(t, app.EvtAnswerResult, &result)
	require.Equal(t, 20, result.ScoreEarned)
}

func TestPlayerLeavingMidQuestionRefreshesStats(t *testing.T) {
	h := newHarness(t, nil)
	code, host, _ := h.openRoom(t, "Ana", "Budi")
	h.send(t, "host", app.MsgStartGame, map[string]any{"roomCode": code})
	h.send(t, "Ana", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 1})
	h.send(t, "Budi", app.MsgSubmitAnswer, map[string]any{"roomCode": code, "answerIdx": 0})

	var stats map[string]int
	host.last(t, app.EvtLiveStats, &stats)
	require.Equal(t, map[string]int{"a": 1, "b": 1, "c": 0, "d": 0}, stats)

	h.o.Disconnect("Budi")
	require.Equal(t, 3, host.count(app.EvtLiveStats))
	host.last(t, app.EvtLiveStats, &stats)
	require.Equal(t, map[string]int{"a": 0, "b": 1, "c": 0, "d": 0}, stats)
}

func TestPlayerLeavingLobbySendsNoStats(t *testing.T) {
	h := newHarness(t, nil)
	_, host, _ := h.openRoom(t, "Ana", "Budi")

	h.o.Disconnect("Budi")
	require.Zero(t, host.count(app.EvtLiveStats))
}
