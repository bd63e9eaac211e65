package memory

import (
	"sync"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRegistry.
type RoomStore struct {
	codes *app.RoomCodeGenerator
	clock func() time.Time

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(codes *app.RoomCodeGenerator) *RoomStore {
	return NewRoomStoreWithClock(codes, time.Now)
}

// NewRoomStoreWithClock hands clock to every room it creates.
func NewRoomStoreWithClock(codes *app.RoomCodeGenerator, clock func() time.Time) *RoomStore {
	if codes == nil {
		codes = app.NewRoomCodeGenerator()
	}
	return &RoomStore{
		codes: codes,
		clock: clock,
		rooms: make(map[string]*app.Room),
	}
}

// Create mints an unused code and stores a new waiting room under it.
func (s *RoomStore) Create(quiz domain.Quiz, hostConnectionID string) *app.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.codes.Next(func(code string) bool {
		_, taken := s.rooms[code]
		return taken
	})
	room := app.NewRoomWithClock(code, quiz, hostConnectionID, s.clock)
	s.rooms[code] = room
	return room
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
