package domain

import "time"

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "WAITING"
	StatusActive  RoomStatus = "ACTIVE"
	StatusEnded   RoomStatus = "ENDED"
)

const (
	// DefaultTimeLimitSeconds is applied to questions stored without a time limit.
	DefaultTimeLimitSeconds = 15
	// DefaultBasePoints is applied to questions stored without points.
	DefaultBasePoints = 20
	// LateGraceSeconds is the tolerance added to a question's time limit before
	// a submission is rejected as late.
	LateGraceSeconds = 2
	// StatsBuckets is the number of option slots tallied in live stats.
	StatsBuckets = 4
)

// Player is a connection that joined a room.
type Player struct {
	ConnectionID string
	DisplayName  string
	Score        int
	JoinedAt     time.Time
}

// Submission is a player's single answer to the current question.
type Submission struct {
	AnswererID       string
	ChosenOption     int
	ServerReceivedAt time.Time
	ElapsedSeconds   float64
}

// Question models an MCQ question; CorrectIndex is 0-based into Options.
type Question struct {
	Text             string   `json:"text" validate:"required"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	Options          []string `json:"options" validate:"min=2,max=4,dive,required"`
	CorrectIndex     int      `json:"correctIndex" validate:"min=0,ltfield=OptionCount"`
	TimeLimitSeconds int      `json:"timeLimit" validate:"min=5,max=60"`
	BasePoints       int      `json:"points" validate:"min=1,max=100"`

	// OptionCount mirrors len(Options) so validation can bound CorrectIndex.
	OptionCount int `json:"-"`
}

// Quiz is the immutable question script a room plays.
type Quiz struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions" validate:"min=1,dive"`
}

// Normalize fills the defaults stored quizzes rely on and returns the copy.
func (q Quiz) Normalize() Quiz {
	questions := make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		if question.TimeLimitSeconds == 0 {
			question.TimeLimitSeconds = DefaultTimeLimitSeconds
		}
		if question.BasePoints == 0 {
			question.BasePoints = DefaultBasePoints
		}
		question.Options = append([]string(nil), question.Options...)
		question.OptionCount = len(question.Options)
		questions[i] = question
	}
	q.Questions = questions
	return q
}

// LeaderboardEntry is one ranked row of a room's leaderboard.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// AnswerResult summarizes an accepted submission for the submitter.
type AnswerResult struct {
	IsCorrect     bool `json:"isCorrect"`
	PointsAwarded int  `json:"scoreEarned"`
	NewTotal      int  `json:"currentTotal"`
}

// LiveStats is the per-option tally for the question in progress.
type LiveStats [StatsBuckets]int
