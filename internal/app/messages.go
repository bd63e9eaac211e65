package app

import "live-quiz-service/internal/domain"

// Inbound message types.
const (
	MsgCreateRoom   = "create_room"
	MsgJoinRoom     = "join_room"
	MsgStartGame    = "start_game"
	MsgSubmitAnswer = "submit_answer"
	MsgGameNext     = "game:next"
	MsgGameEnd      = "game:end"
)

// Outbound message types.
const (
	EvtRoomCreated       = "room_created"
	EvtJoinedSuccess     = "player_joined_success"
	EvtPlayerJoined      = "player_joined"
	EvtGameStarted       = "game:started"
	EvtQuestionStart     = "question_start"
	EvtAnswerResult      = "answer_result"
	EvtLiveStats         = "live_stats"
	EvtQuestionEnd       = "question_end"
	EvtUpdateLeaderboard = "update_leaderboard"
	EvtGameEnded         = "game:ended"
	EvtFinalResults      = "final_results"
	EvtError             = "error_message"
)

type roomCreatedPayload struct {
	RoomCode      string `json:"roomCode"`
	QuizTitle     string `json:"quizTitle"`
	QuestionCount int    `json:"questionCount"`
}

type joinedSuccessPayload struct {
	Status        string `json:"status"`
	QuizTitle     string `json:"quizTitle"`
	QuestionCount int    `json:"questionCount"`
}

type playerJoinedPayload struct {
	Name         string   `json:"name"`
	TotalPlayers int      `json:"totalPlayers"`
	Players      []string `json:"players"`
}

type gameStartedPayload struct {
	QuestionCount int    `json:"questionCount"`
	QuizID        string `json:"quizId"`
}

type questionStartPayload struct {
	QIndex   int      `json:"qIndex"`
	QText    string   `json:"qText"`
	ImageURL string   `json:"imageUrl"`
	Options  []string `json:"options"`
	Duration int      `json:"duration"`
	Points   int      `json:"points"`
}

type answerResultPayload struct {
	domain.AnswerResult
	CorrectAnswerIdx int `json:"correctAnswerIdx"`
}

type liveStatsPayload struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
	D int `json:"d"`
}

type questionEndPayload struct {
	CorrectAnswerIdx int `json:"correctAnswerIdx"`
}

type leaderboardPayload struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type gameEndedPayload struct {
	FinalLeaderboard []domain.LeaderboardEntry `json:"finalLeaderboard"`
}

type finalResultsPayload struct {
	Winner *string                   `json:"winner"`
	Top3   []domain.LeaderboardEntry `json:"top3"`
}

type errorPayload struct {
	Msg string `json:"msg"`
}

func newQuestionStart(index int, q domain.Question) questionStartPayload {
	return questionStartPayload{
		QIndex:   index,
		QText:    q.Text,
		ImageURL: q.ImageURL,
		Options:  q.Options,
		Duration: q.TimeLimitSeconds,
		Points:   q.BasePoints,
	}
}

func newLiveStats(s domain.LiveStats) liveStatsPayload {
	return liveStatsPayload{A: s[0], B: s[1], C: s[2], D: s[3]}
}
