package engine

import (
	"math/rand/v2"
	"unicode/utf16"
)

// Role tags appended to a match seed so each competitor draws from its own stream.
const (
	MazeMasterTag  = ":M"
	AdventurersTag = ":A"
)

// warmupRounds is the number of outputs discarded after seeding.
const warmupRounds = 15

const seedChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Stream is a small-fast-counter (sfc32) generator seeded from a string.
// It is not safe for concurrent use; each competitor owns its own Stream.
type Stream struct {
	a, b, c, d uint32
}

// NewStream derives generator state from seed through the xmur3a string hash
// and discards the first outputs.
func NewStream(seed string) *Stream {
	h := newSeedHash(seed)
	s := &Stream{a: h.next(), b: h.next(), c: h.next(), d: 1}
	for i := 0; i < warmupRounds; i++ {
		s.Float64()
	}
	return s
}

// Float64 returns the next value in [0, 1).
func (s *Stream) Float64() float64 {
	t := s.a + s.b + s.d
	s.d++
	s.a = s.b ^ (s.b >> 9)
	s.b = s.c + (s.c << 3)
	s.c = s.c<<21 | s.c>>11
	s.c += t
	return float64(t) / 4294967296
}

// Streams holds the two independent per-role streams derived from one match seed.
type Streams struct {
	Seed        string
	MazeMaster  *Stream
	Adventurers *Stream
}

// DeriveStreams builds both role streams for a match. An empty seed is
// replaced with a freshly generated one, reported back through Streams.Seed.
func DeriveStreams(seed string) (Streams, bool) {
	generated := false
	if seed == "" {
		seed = GenerateSeed()
		generated = true
	}
	return Streams{
		Seed:        seed,
		MazeMaster:  NewStream(seed + MazeMasterTag),
		Adventurers: NewStream(seed + AdventurersTag),
	}, generated
}

// GenerateSeed returns a non-reproducible 8 character alphanumeric seed.
func GenerateSeed() string {
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = seedChars[rand.IntN(len(seedChars))]
	}
	return string(buf)
}

// seedHash is xmur3a over the UTF-16 code units of the seed.
type seedHash struct {
	h uint32
}

func newSeedHash(str string) *seedHash {
	units := utf16.Encode([]rune(str))
	h := uint32(2166136261)
	for _, u := range units {
		k := uint32(u) * 3432918353
		k = k<<15 | k>>17
		h ^= k * 461845907
		h = h<<13 | h>>19
		h = h*5 + 3864292196
	}
	h ^= uint32(len(units))
	return &seedHash{h: h}
}

func (s *seedHash) next() uint32 {
	s.h ^= s.h >> 16
	s.h *= 2246822507
	s.h ^= s.h >> 13
	s.h *= 3266489909
	s.h ^= s.h >> 16
	return s.h
}

// Floats returns the next count values of a fresh stream for seed.
func Floats(seed string, count int) []float64 {
	s := NewStream(seed)
	floats := make([]float64, count)
	for i := range floats {
		floats[i] = s.Float64()
	}
	return floats
}
