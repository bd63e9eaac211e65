package app

import (
	"math/rand"
	"regexp"
	"sync"
	"time"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// IsValidRoomCode reports whether code has the 6-char uppercase alphanumeric shape.
func IsValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// RoomCodeGenerator draws short human-typeable room codes.
type RoomCodeGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRoomCodeGenerator() *RoomCodeGenerator {
	return NewRoomCodeGeneratorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewRoomCodeGeneratorWithSource is used by tests that need a reproducible sequence.
func NewRoomCodeGeneratorWithSource(src rand.Source) *RoomCodeGenerator {
	return &RoomCodeGenerator{rnd: rand.New(src)}
}

// Next draws codes until exists reports one as unused.
func (g *RoomCodeGenerator) Next(exists func(code string) bool) string {
	for {
		code := g.draw()
		if !exists(code) {
			return code
		}
	}
}

func (g *RoomCodeGenerator) draw() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	buf := make([]byte, roomCodeLength)
	for i := range buf {
		buf[i] = roomCodeAlphabet[g.rnd.Intn(len(roomCodeAlphabet))]
	}
	return string(buf)
}
