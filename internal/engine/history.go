package engine

import (
	"errors"

	"github.com/kode4food/lru"

	"github.com/kode4food/twill/pkg/api"
)

// history retains completed runs for the runs API, evicting the least
// recently touched once capacity is reached
type history struct {
	cache *lru.Cache[*api.RunResult]
}

// runHistorySize bounds how many completed runs stay queryable
const runHistorySize = 256

var ErrRunNotFound = errors.New("run not found")

func newHistory(size int) *history {
	return &history{
		cache: lru.NewCache[*api.RunResult](size),
	}
}

// Put records a completed run under its ID
func (h *history) Put(res *api.RunResult) {
	_, _ = h.cache.Get(string(res.RunID), func() (*api.RunResult, error) {
		return res, nil
	})
}

// Get retrieves a recorded run
func (h *history) Get(id api.RunID) (*api.RunResult, bool) {
	res, err := h.cache.Get(string(id), func() (*api.RunResult, error) {
		return nil, ErrRunNotFound
	})
	if err != nil {
		return nil, false
	}
	return res, true
}
