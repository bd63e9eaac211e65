package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// opTimeout bounds each Redis round trip made while minting or releasing a code.
const opTimeout = 2 * time.Second

// RoomStore is a Redis-aware implementation of app.RoomRegistry.
// Notes:
//   - Rooms themselves live in a local map; match state never leaves the process.
//   - Each live code is reserved with SET NX under a liveness key so instances
//     sharing the Redis never hand out the same code.
//   - Redis is never called while the map lock is held.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	codes  *app.RoomCodeGenerator
	clock  func() time.Time

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, codes *app.RoomCodeGenerator, ttl time.Duration) *RoomStore {
	if codes == nil {
		codes = app.NewRoomCodeGenerator()
	}
	return &RoomStore{
		client: client,
		ttl:    ttl,
		codes:  codes,
		clock:  time.Now,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) Create(quiz domain.Quiz, hostConnectionID string) *app.Room {
	for {
		code := s.codes.Next(func(code string) bool {
			return s.hasLocal(code) || !s.reserve(code, quiz.ID)
		})
		room := app.NewRoomWithClock(code, quiz, hostConnectionID, s.clock)

		s.mu.Lock()
		if _, taken := s.rooms[code]; !taken {
			s.rooms[code] = room
			s.mu.Unlock()
			return room
		}
		s.mu.Unlock()
	}
}

// reserve claims the liveness key for code. When Redis is unreachable the
// code is accepted and uniqueness falls back to the local map.
func (s *RoomStore) reserve(code, quizID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	ok, err := s.client.SetNX(ctx, s.key(code), quizID, s.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

func (s *RoomStore) hasLocal(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Remove(code string) {
	s.mu.Lock()
	_, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_ = s.client.Del(ctx, s.key(code)).Err()
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *RoomStore) key(code string) string {
	return "quiz:room:" + code
}
