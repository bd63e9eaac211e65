package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"live-quiz-service/internal/domain"
)

// Room is one live match. Its mutating methods are not synchronized on their
// own: callers that share a Room between goroutines run them inside Exclusive,
// which is the per-room critical section the orchestrator relies on.
type Room struct {
	code   string
	quizID string
	title  string
	host   string
	now    func() time.Time

	mu                sync.Mutex
	questions         []domain.Question
	currentIndex      int
	round             uint64
	status            domain.RoomStatus
	questionStartedAt time.Time
	players           []*domain.Player
	submissions       map[string]domain.Submission
	evictionScheduled bool
}

// NewRoom is exported for infrastructure layers that mint rooms.
func NewRoom(code string, quiz domain.Quiz, hostConnectionID string) *Room {
	return NewRoomWithClock(code, quiz, hostConnectionID, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(code string, quiz domain.Quiz, hostConnectionID string, now func() time.Time) *Room {
	return &Room{
		code:         code,
		quizID:       quiz.ID,
		title:        quiz.Title,
		host:         hostConnectionID,
		now:          now,
		questions:    append([]domain.Question(nil), quiz.Questions...),
		currentIndex: -1,
		status:       domain.StatusWaiting,
		submissions:  make(map[string]domain.Submission),
	}
}

// Exclusive runs fn while holding the room's lock.
func (r *Room) Exclusive(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn()
}

func (r *Room) Code() string { return r.code }
func (r *Room) QuizID() string { return r.quizID }
func (r *Room) Title() string { return r.title }
func (r *Room) HostConnectionID() string { return r.host }
func (r *Room) QuestionCount() int { return len(r.questions) }
func (r *Room) Status() domain.RoomStatus { return r.status }
func (r *Room) CurrentIndex() int { return r.currentIndex }
func (r *Room) QuestionStartedAt() time.Time { return r.questionStartedAt }
func (r *Room) IsHost(connectionID string) bool { return r.host == connectionID }

// Round increments on every question transition; deadline timers compare it
// at fire time to tell whether they are stale.
func (r *Room) Round() uint64 { return r.round }

// AddPlayer appends a player; names are unique case-insensitively.
func (r *Room) AddPlayer(connectionID, displayName string) (domain.Player, error) {
	if r.status == domain.StatusEnded {
		return domain.Player{}, domain.Reject(domain.ErrInvalidTransition, "Game has ended")
	}
	for _, p := range r.players {
		if strings.EqualFold(p.DisplayName, displayName) {
			return domain.Player{}, domain.Reject(domain.ErrNameConflict, "Nickname already taken")
		}
	}
	player := &domain.Player{
		ConnectionID: connectionID,
		DisplayName:  displayName,
		JoinedAt:     r.now(),
	}
	r.players = append(r.players, player)
	return *player, nil
}

// RemovePlayer drops the player and any submission it made; absent ids are
// ignored and ended rooms keep their final roster.
func (r *Room) RemovePlayer(connectionID string) {
	if r.status == domain.StatusEnded {
		return
	}
	r.players = lo.Reject(r.players, func(p *domain.Player, _ int) bool {
		return p.ConnectionID == connectionID
	})
	delete(r.submissions, connectionID)
}

// Players returns a copy of the roster in join order.
func (r *Room) Players() []domain.Player {
	return lo.Map(r.players, func(p *domain.Player, _ int) domain.Player { return *p })
}

// PlayerNames returns display names in join order.
func (r *Room) PlayerNames() []string {
	return lo.Map(r.players, func(p *domain.Player, _ int) string { return p.DisplayName })
}

// Start moves a waiting room onto its first question. The caller stamps the
// question start time.
func (r *Room) Start() error {
	if r.status != domain.StatusWaiting {
		return domain.Reject(domain.ErrInvalidTransition, "Game already started or ended")
	}
	r.status = domain.StatusActive
	r.currentIndex = 0
	r.round++
	return nil
}

// MarkQuestionStarted records the authoritative start time of the current question.
func (r *Room) MarkQuestionStarted(at time.Time) {
	r.questionStartedAt = at
}

// Advance moves to the next question and reports whether one exists. On the
// last question it ends the room; on an ended room it is a no-op.
func (r *Room) Advance() (bool, error) {
	switch r.status {
	case domain.StatusWaiting:
		return false, domain.Reject(domain.ErrInvalidTransition, "Game has not started")
	case domain.StatusEnded:
		return false, nil
	}
	if r.currentIndex >= len(r.questions)-1 {
		r.status = domain.StatusEnded
		return false, nil
	}
	r.currentIndex++
	r.round++
	clear(r.submissions)
	return true, nil
}

// CurrentQuestion returns the open question, if any.
func (r *Room) CurrentQuestion() (domain.Question, bool) {
	if r.currentIndex < 0 || r.currentIndex >= len(r.questions) {
		return domain.Question{}, false
	}
	return r.questions[r.currentIndex], true
}

// Question returns the question at index i.
func (r *Room) Question(i int) (domain.Question, bool) {
	if i < 0 || i >= len(r.questions) {
		return domain.Question{}, false
	}
	return r.questions[i], true
}

// SubmitAnswer records a player's answer received now by the room's clock.
func (r *Room) SubmitAnswer(connectionID string, optionIndex int, elapsedSeconds float64) (domain.AnswerResult, error) {
	return r.SubmitAnswerAt(connectionID, optionIndex, elapsedSeconds, r.now())
}

// SubmitAnswerAt records a player's answer received at now. elapsedSeconds
// only gates the late check; points use now minus the recorded question start.
// Callers that stamp question starts with their own clock pass that clock here.
func (r *Room) SubmitAnswerAt(connectionID string, optionIndex int, elapsedSeconds float64, now time.Time) (domain.AnswerResult, error) {
	player := r.findPlayer(connectionID)
	if player == nil {
		return domain.AnswerResult{}, domain.ErrParticipantNotFound
	}
	if _, ok := r.submissions[connectionID]; ok {
		return domain.AnswerResult{}, domain.ErrDuplicateSubmission
	}
	question, ok := r.CurrentQuestion()
	if !ok || r.status != domain.StatusActive {
		return domain.AnswerResult{}, domain.ErrNoActiveQuestion
	}
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return domain.AnswerResult{}, domain.ErrInvalidOption
	}
	if elapsedSeconds > float64(question.TimeLimitSeconds+domain.LateGraceSeconds) {
		return domain.AnswerResult{}, domain.ErrLateSubmission
	}

	r.submissions[connectionID] = domain.Submission{
		AnswererID:       connectionID,
		ChosenOption:     optionIndex,
		ServerReceivedAt: now,
		ElapsedSeconds:   elapsedSeconds,
	}

	correct := optionIndex == question.CorrectIndex
	serverElapsed := elapsedSeconds
	if !r.questionStartedAt.IsZero() {
		serverElapsed = now.Sub(r.questionStartedAt).Seconds()
	}
	points := domain.Score(serverElapsed, question.BasePoints, correct)
	player.Score += points

	return domain.AnswerResult{
		IsCorrect:     correct,
		PointsAwarded: points,
		NewTotal:      player.Score,
	}, nil
}

// HasSubmitted reports whether the player answered the current question.
func (r *Room) HasSubmitted(connectionID string) bool {
	_, ok := r.submissions[connectionID]
	return ok
}

// Leaderboard ranks players by score; ties keep join order and still get
// distinct consecutive ranks.
func (r *Room) Leaderboard() []domain.LeaderboardEntry {
	entries := lo.Map(r.players, func(p *domain.Player, _ int) domain.LeaderboardEntry {
		return domain.LeaderboardEntry{Name: p.DisplayName, Score: p.Score}
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// LiveStats tallies submissions per option for the current question.
func (r *Room) LiveStats() (domain.LiveStats, bool) {
	var stats domain.LiveStats
	if _, ok := r.CurrentQuestion(); !ok {
		return stats, false
	}
	for _, s := range r.submissions {
		if s.ChosenOption >= 0 && s.ChosenOption < domain.StatsBuckets {
			stats[s.ChosenOption]++
		}
	}
	return stats, true
}

// EndGame marks the room ended. Safe to call repeatedly.
func (r *Room) EndGame() {
	r.status = domain.StatusEnded
}

// claimEviction returns true the first time it is called for the room.
func (r *Room) claimEviction() bool {
	if r.evictionScheduled {
		return false
	}
	r.evictionScheduled = true
	return true
}

func (r *Room) findPlayer(connectionID string) *domain.Player {
	p, _ := lo.Find(r.players, func(p *domain.Player) bool { return p.ConnectionID == connectionID })
	return p
}
