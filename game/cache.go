package game

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultGuessCacheSize = 1000

// GuessCache remembers the guess made for a drawing hash so an unchanged
// drawing never costs another oracle call. Reads and writes both count as use;
// the least recently used entry goes first once the cache is full.
type GuessCache struct {
	capacity int
	entries  *lru.Cache[string, string]
}

func NewGuessCache(capacity int) (*GuessCache, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	entries, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, err
	}
	return &GuessCache{capacity: capacity, entries: entries}, nil
}

func (c *GuessCache) Get(hash string) (string, bool) {
	return c.entries.Get(hash)
}

func (c *GuessCache) Set(hash, guess string) {
	c.entries.Add(hash, guess)
}

func (c *GuessCache) Len() int {
	return c.entries.Len()
}

func (c *GuessCache) Capacity() int {
	return c.capacity
}
