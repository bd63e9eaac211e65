package app

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"live-quiz-service/internal/domain"
)

var uuidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("canonical_uuid", func(fl validator.FieldLevel) bool {
		return uuidPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
		return IsValidRoomCode(fl.Field().String())
	})
	return v
}

// IsValidUUID reports whether s is a canonical 8-4-4-4-12 hex UUID, any case.
func IsValidUUID(s string) bool {
	return uuidPattern.MatchString(s)
}

type createRoomRequest struct {
	QuizID string `json:"quizId" validate:"required,canonical_uuid"`
	UserID string `json:"userId" validate:"required,canonical_uuid"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
	Nickname string `json:"nickname" validate:"required"`
}

type roomRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
}

type submitAnswerRequest struct {
	RoomCode    string   `json:"roomCode" validate:"required,roomcode"`
	AnswerIdx   *int     `json:"answerIdx" validate:"required"`
	TimeElapsed *float64 `json:"timeElapsed" validate:"omitempty,min=0"`
}

var fieldMessages = map[string]string{
	"QuizID":      "Invalid Quiz ID format. Please use a valid UUID.",
	"UserID":      "Invalid User ID format. Please use a valid UUID.",
	"RoomCode":    "Invalid room code format",
	"Nickname":    "Nickname is required",
	"AnswerIdx":   "Answer index is required",
	"TimeElapsed": "Invalid elapsed time",
}

// decodeRequest unmarshals payload into dst and checks its schema.
func decodeRequest(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return domain.Reject(domain.ErrMalformedInput, "Invalid payload")
	}
	if jr, ok := dst.(*joinRoomRequest); ok {
		jr.Nickname = strings.TrimSpace(jr.Nickname)
	}
	return checkStruct(dst)
}

func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := fieldMessages[fieldErrs[0].StructField()]; ok {
			return domain.Reject(domain.ErrMalformedInput, msg)
		}
	}
	return domain.Reject(domain.ErrMalformedInput, "Invalid payload")
}

// validateQuiz checks a normalized quiz against the question constraints.
func validateQuiz(quiz domain.Quiz) error {
	if len(quiz.Questions) == 0 {
		return domain.Reject(domain.ErrInvalidQuiz, "No questions in quiz")
	}
	if err := validate.Struct(quiz); err != nil {
		return domain.Reject(domain.ErrInvalidQuiz, "Quiz has invalid questions")
	}
	return nil
}
