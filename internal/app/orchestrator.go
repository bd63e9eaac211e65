package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"

	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/domain"
)

// RoomRegistry is the single authority on which rooms exist.
type RoomRegistry interface {
	Create(quiz domain.Quiz, hostConnectionID string) *Room
	Get(code string) (*Room, bool)
	Remove(code string)
	Len() int
}

// QuizRepository resolves quiz content. A non-empty ownerID restricts the
// lookup to quizzes owned by that identity.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID, ownerID string) (domain.Quiz, error)
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, fn func()) { time.AfterFunc(d, fn) }

// Timing holds the orchestrator's timer delays.
type Timing struct {
	// RevealGrace is added to a question's time limit before the deadline reveal.
	RevealGrace time.Duration
	// EvictAfterEnd is how long an ended room stays resolvable.
	EvictAfterEnd time.Duration
	// EvictAfterHostLoss is how long a room survives its host disconnecting.
	EvictAfterHostLoss time.Duration
}

// DefaultTiming returns the production delays.
func DefaultTiming() Timing {
	return Timing{
		RevealGrace:        domain.LateGraceSeconds * time.Second,
		EvictAfterEnd:      60 * time.Second,
		EvictAfterHostLoss: 5 * time.Second,
	}
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }
func WithScheduler(s Scheduler) Option { return func(o *Orchestrator) { o.sched = s } }
func WithLogger(log *slog.Logger) Option { return func(o *Orchestrator) { o.log = log } }
func WithTiming(t Timing) Option { return func(o *Orchestrator) { o.timing = t } }
func WithIdentityRequired(req bool) Option { return func(o *Orchestrator) { o.requireIdentity = req } }

type connState struct {
	identity string
	roomCode string
}

type handler struct {
	fn      func(ctx context.Context, connID string, payload json.RawMessage) error
	generic string
}

// Orchestrator binds inbound connection messages to room operations, owns
// the question and eviction timers and fans results out through the hub.
type Orchestrator struct {
	rooms   RoomRegistry
	quizzes QuizRepository
	hub     *broadcast.Hub

	now             func() time.Time
	sched           Scheduler
	log             *slog.Logger
	timing          Timing
	requireIdentity bool
	handlers        map[string]handler

	mu    sync.Mutex
	conns map[string]*connState
}

func NewOrchestrator(rooms RoomRegistry, quizzes QuizRepository, hub *broadcast.Hub, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rooms:   rooms,
		quizzes: quizzes,
		hub:     hub,
		now:     time.Now,
		sched:   wallScheduler{},
		log:     slog.Default(),
		timing:  DefaultTiming(),
		conns:   make(map[string]*connState),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.handlers = map[string]handler{
		MsgCreateRoom:   {o.createRoom, "Failed to create room"},
		MsgJoinRoom:     {o.joinRoom, "Failed to join room"},
		MsgStartGame:    {o.startGame, "Failed to start game"},
		MsgSubmitAnswer: {o.submitAnswer, "Failed to submit answer"},
		MsgGameNext:     {o.nextQuestion, "Failed to move to next question"},
		MsgGameEnd:      {o.endGame, "Failed to end game"},
	}
	return o
}

// Connect registers a connection. identity is the authenticated user id
// attached to the connection, or empty.
func (o *Orchestrator) Connect(conn broadcast.Conn, identity string) {
	o.hub.Register(conn)
	o.mu.Lock()
	o.conns[conn.ID()] = &connState{identity: identity}
	o.mu.Unlock()
	o.log.Info("connection opened", "conn", conn.ID())
}

// Handle dispatches one inbound message. Failures are reported only to the
// sending connection.
func (o *Orchestrator) Handle(ctx context.Context, connID, msgType string, payload json.RawMessage) {
	h, ok := o.handlers[msgType]
	if !ok {
		o.reply(connID, EvtError, errorPayload{Msg: "Unsupported message type"})
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("handler panic", "type", msgType, "conn", connID, "panic", r)
			o.reply(connID, EvtError, errorPayload{Msg: h.generic})
		}
	}()
	if err := h.fn(ctx, connID, payload); err != nil {
		o.reportError(connID, msgType, err, h.generic)
	}
}

// Disconnect tears down a connection: a departing host force-ends its room,
// a departing player leaves the roster.
func (o *Orchestrator) Disconnect(connID string) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("disconnect panic", "conn", connID, "panic", r)
		}
	}()

	o.mu.Lock()
	state := o.conns[connID]
	delete(o.conns, connID)
	o.mu.Unlock()
	o.hub.Unregister(connID)
	o.log.Info("connection closed", "conn", connID)

	if state == nil || state.roomCode == "" {
		return
	}
	room, ok := o.rooms.Get(state.roomCode)
	if !ok {
		return
	}
	_ = room.Exclusive(func() error {
		if room.IsHost(connID) {
			room.EndGame()
			o.broadcast(room, EvtError, errorPayload{Msg: "Host disconnected"})
			o.scheduleEviction(room, o.timing.EvictAfterHostLoss)
			return nil
		}
		if room.Status() == domain.StatusEnded {
			return nil
		}
		room.RemovePlayer(connID)
		o.broadcastRoster(room, "")
		if room.Status() == domain.StatusActive {
			if stats, ok := room.LiveStats(); ok {
				o.reply(room.HostConnectionID(), EvtLiveStats, newLiveStats(stats))
			}
		}
		return nil
	})
}

func (o *Orchestrator) createRoom(ctx context.Context, connID string, payload json.RawMessage) error {
	var req createRoomRequest
	if err := decodeRequest(payload, &req); err != nil {
		return err
	}
	identity := o.identity(connID)
	if identity == "" && o.requireIdentity {
		return domain.Reject(domain.ErrUnauthorized, "Authentication required")
	}
	if identity != "" && !strings.EqualFold(identity, req.UserID) {
		return domain.Reject(domain.ErrUnauthorized, "User ID does not match authenticated user")
	}
	if o.inLiveRoom(connID) {
		return domain.Reject(domain.ErrInvalidTransition, "Already in a room")
	}

	quiz, err := o.quizzes.GetQuiz(ctx, req.QuizID, req.UserID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return domain.Reject(domain.ErrQuizNotFound, "Quiz not found")
	}
	if err != nil {
		return fmt.Errorf("resolve quiz %s: %w", req.QuizID, err)
	}
	quiz = quiz.Normalize()
	if quiz.ID == "" {
		quiz.ID = req.QuizID
	}
	if err := validateQuiz(quiz); err != nil {
		return err
	}

	room := o.rooms.Create(quiz, connID)
	o.bind(connID, room.Code())
	o.hub.Join(room.Code(), connID)
	o.log.Info("room created", "room", room.Code(), "quiz", quiz.ID, "conn", connID)

	o.reply(connID, EvtRoomCreated, roomCreatedPayload{
		RoomCode:      room.Code(),
		QuizTitle:     room.Title(),
		QuestionCount: room.QuestionCount(),
	})
	return nil
}

func (o *Orchestrator) joinRoom(_ context.Context, connID string, payload json.RawMessage) error {
	var req joinRoomRequest
	if err := decodeRequest(payload, &req); err != nil {
		return err
	}
	if o.inLiveRoom(connID) {
		return domain.Reject(domain.ErrInvalidTransition, "Already in a room")
	}
	room, err := o.room(req.RoomCode)
	if err != nil {
		return err
	}
	return room.Exclusive(func() error {
		if room.Status() != domain.StatusWaiting {
			return domain.Reject(domain.ErrInvalidTransition, "Game already started")
		}
		player, err := room.AddPlayer(connID, req.Nickname)
		if err != nil {
			return err
		}
		o.bind(connID, room.Code())
		o.hub.Join(room.Code(), connID)
		o.log.Info("player joined", "room", room.Code(), "nickname", player.DisplayName, "conn", connID)

		o.reply(connID, EvtJoinedSuccess, joinedSuccessPayload{
			Status:        "OK",
			QuizTitle:     room.Title(),
			QuestionCount: room.QuestionCount(),
		})
		o.broadcastRoster(room, player.DisplayName)
		return nil
	})
}

func (o *Orchestrator) startGame(_ context.Context, connID string, payload json.RawMessage) error {
	var req roomRequest
	if err := decodeRequest(payload, &req); err != nil {
		return err
	}
	room, err := o.room(req.RoomCode)
	if err != nil {
		return err
	}
	return room.Exclusive(func() error {
		if !room.IsHost(connID) {
			return domain.Reject(domain.ErrUnauthorized, "Only host can start the game")
		}
		if room.Status() != domain.StatusWaiting {
			return domain.Reject(domain.ErrInvalidTransition, "Game already started")
		}
		if len(room.Players()) == 0 {
			return domain.Reject(domain.ErrInvalidTransition, "No players in room")
		}
		if err := room.Start(); err != nil {
			return err
		}
		room.MarkQuestionStarted(o.now())
		o.log.Info("game started", "room", room.Code(), "questions", room.QuestionCount())

		o.broadcast(room, EvtGameStarted, gameStartedPayload{
			QuestionCount: room.QuestionCount(),
			QuizID:        room.QuizID(),
		})
		o.openQuestion(room)
		return nil
	})
}

func (o *Orchestrator) submitAnswer(_ context.Context, connID string, payload json.RawMessage) error {
	var req submitAnswerRequest
	if err := decodeRequest(payload, &req); err != nil {
		return err
	}
	room, err := o.room(req.RoomCode)
	if err != nil {
		return err
	}
	return room.Exclusive(func() error {
		if room.Status() != domain.StatusActive {
			return domain.Reject(domain.ErrInvalidTransition, "Game is not active")
		}
		question, ok := room.CurrentQuestion()
		if !ok {
			return domain.ErrNoActiveQuestion
		}

		// The client clock is only trusted when no start time was recorded.
		now := o.now()
		elapsed := 0.0
		if req.TimeElapsed != nil {
			elapsed = *req.TimeElapsed
		}
		if started := room.QuestionStartedAt(); !started.IsZero() {
			elapsed = now.Sub(started).Seconds()
		}

		result, err := room.SubmitAnswerAt(connID, *req.AnswerIdx, elapsed, now)
		if err != nil {
			return err
		}
		o.log.Debug("answer submitted", "room", room.Code(), "conn", connID, "correct", result.IsCorrect)

		o.reply(connID, EvtAnswerResult, answerResultPayload{
			AnswerResult:     result,
			CorrectAnswerIdx: question.CorrectIndex,
		})
		if stats, ok := room.LiveStats(); ok {
			o.reply(room.HostConnectionID(), EvtLiveStats, newLiveStats(stats))
		}
		return nil
	})
}

func (o *Orchestrator) nextQuestion(_ context.Context, connID string, payload json.RawMessage) error {
	var req roomRequest
	if err := decodeRequest(payload, &req); err != nil {
		return err
	}
	room, err := o.room(req.RoomCode)
	if err != nil {
		return err
	}
	return room.Exclusive(func() error {
		if !room.IsHost(connID) {
			return domain.Reject(domain.ErrUnauthorized, "Only host can control game")
		}
		if room.Status() == domain.StatusEnded {
			return domain.Reject(domain.ErrInvalidTransition, "Game already ended")
		}
		hasNext, err := room.Advance()
		if err != nil {
			return err
		}
		if !hasNext {
			room.EndGame()
			o.log.Info("game ended", "room", room.Code())
			o.broadcast(room, EvtGameEnded, gameEndedPayload{FinalLeaderboard: room.Leaderboard()})
			o.scheduleEviction(room, o.timing.EvictAfterEnd)
			return nil
		}

		room.MarkQuestionStarted(o.now())
		if prev, ok := room.Question(room.CurrentIndex() - 1); ok {
			o.broadcast(room, EvtQuestionEnd, questionEndPayload{CorrectAnswerIdx: prev.CorrectIndex})
		}
		o.broadcast(room, EvtUpdateLeaderboard, leaderboardPayload{Leaderboard: room.Leaderboard()})
		o.openQuestion(room)
		return nil
	})
}

func (o *Orchestrator) endGame(_ context.Context, connID string, payload json.RawMessage) error {
	var req roomRequest
	if err := decodeRequest(payload, &req); err != nil {
		return err
	}
	room, err := o.room(req.RoomCode)
	if err != nil {
		return err
	}
	return room.Exclusive(func() error {
		if !room.IsHost(connID) {
			return domain.Reject(domain.ErrUnauthorized, "Only host can end game")
		}
		room.EndGame()
		leaderboard := room.Leaderboard()
		result := finalResultsPayload{Top3: lo.Subset(leaderboard, 0, 3)}
		if len(leaderboard) > 0 {
			result.Winner = &leaderboard[0].Name
		}
		o.log.Info("game ended by host", "room", room.Code())
		o.broadcast(room, EvtFinalResults, result)
		o.scheduleEviction(room, o.timing.EvictAfterEnd)
		return nil
	})
}

// openQuestion broadcasts the current question and arms its deadline.
// Callers hold the room lock.
func (o *Orchestrator) openQuestion(room *Room) {
	question, ok := room.CurrentQuestion()
	if !ok {
		return
	}
	o.broadcast(room, EvtQuestionStart, newQuestionStart(room.CurrentIndex(), question))

	round := room.Round()
	deadline := time.Duration(question.TimeLimitSeconds)*time.Second + o.timing.RevealGrace
	o.sched.AfterFunc(deadline, func() { o.revealOnDeadline(room, round) })
}

// revealOnDeadline reveals the answer for the round the timer was armed for.
// Timers from earlier rounds find a different round and do nothing.
func (o *Orchestrator) revealOnDeadline(room *Room, round uint64) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("deadline timer panic", "room", room.Code(), "panic", r)
		}
	}()
	_ = room.Exclusive(func() error {
		if room.Status() != domain.StatusActive || room.Round() != round {
			return nil
		}
		question, ok := room.CurrentQuestion()
		if !ok {
			return nil
		}
		o.log.Debug("question deadline reached", "room", room.Code(), "index", room.CurrentIndex())
		o.broadcast(room, EvtQuestionEnd, questionEndPayload{CorrectAnswerIdx: question.CorrectIndex})
		o.broadcast(room, EvtUpdateLeaderboard, leaderboardPayload{Leaderboard: room.Leaderboard()})
		return nil
	})
}

// scheduleEviction removes the room after d. Only the first call per room
// arms a timer. Callers hold the room lock.
func (o *Orchestrator) scheduleEviction(room *Room, d time.Duration) {
	if !room.claimEviction() {
		return
	}
	code := room.Code()
	o.sched.AfterFunc(d, func() {
		if current, ok := o.rooms.Get(code); ok && current == room {
			o.rooms.Remove(code)
		}
		o.hub.Close(code)
		o.unbindRoom(code)
		o.log.Info("room cleaned up", "room", code)
	})
}

func (o *Orchestrator) room(code string) (*Room, error) {
	room, ok := o.rooms.Get(code)
	if !ok {
		return nil, domain.Reject(domain.ErrRoomNotFound, "Room not found")
	}
	return room, nil
}

func (o *Orchestrator) broadcastRoster(room *Room, name string) {
	names := room.PlayerNames()
	o.broadcast(room, EvtPlayerJoined, playerJoinedPayload{
		Name:         name,
		TotalPlayers: len(names),
		Players:      names,
	})
}

func (o *Orchestrator) broadcast(room *Room, typ string, payload any) {
	o.hub.Broadcast(room.Code(), broadcast.Message{Type: typ, Payload: payload})
}

func (o *Orchestrator) reply(connID, typ string, payload any) {
	o.hub.SendTo(connID, broadcast.Message{Type: typ, Payload: payload})
}

func (o *Orchestrator) reportError(connID, msgType string, err error, generic string) {
	kind := domain.Kind(err)
	if kind == domain.KindInternal {
		o.log.Error("handler failed", "type", msgType, "conn", connID, "error", err)
		o.reply(connID, EvtError, errorPayload{Msg: generic})
		return
	}
	o.log.Warn("request rejected", "type", msgType, "conn", connID, "kind", kind, "error", err)
	o.reply(connID, EvtError, errorPayload{Msg: clientMessage(err)})
}

func clientMessage(err error) string {
	var rejected *domain.RejectError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

func (o *Orchestrator) identity(connID string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if state, ok := o.conns[connID]; ok {
		return state.identity
	}
	return ""
}

// bind records the connection's current room and drops it from the broadcast
// group of any room it was bound to before.
func (o *Orchestrator) bind(connID, code string) {
	o.mu.Lock()
	state, ok := o.conns[connID]
	if !ok {
		state = &connState{}
		o.conns[connID] = state
	}
	prev := state.roomCode
	state.roomCode = code
	o.mu.Unlock()

	if prev != "" && prev != code {
		o.hub.Leave(prev, connID)
	}
}

func (o *Orchestrator) unbindRoom(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, state := range o.conns {
		if state.roomCode == code {
			state.roomCode = ""
		}
	}
}

// inLiveRoom reports whether the connection belongs to a room that has not ended.
func (o *Orchestrator) inLiveRoom(connID string) bool {
	o.mu.Lock()
	state, ok := o.conns[connID]
	code := ""
	if ok {
		code = state.roomCode
	}
	o.mu.Unlock()
	if code == "" {
		return false
	}
	room, ok := o.rooms.Get(code)
	if !ok {
		return false
	}
	live := false
	_ = room.Exclusive(func() error {
		live = room.Status() != domain.StatusEnded
		return nil
	})
	return live
}
