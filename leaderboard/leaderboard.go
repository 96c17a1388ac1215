package leaderboard

import (
	"sync"

	"skillpath/core"
)

// Entry represents a ranked user on a path board.
type Entry struct {
	User   core.UserID
	Points int64
}

// Board abstracts ranking operations for a single sport path.
type Board interface {
	Update(user core.UserID, points int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
}

// Boards keeps one Board per sport path, created on first use.
type Boards struct {
	mu     sync.RWMutex
	boards map[core.PathKey]Board
}

func NewBoards() *Boards {
	return &Boards{boards: map[core.PathKey]Board{}}
}

// ForPath returns the board for a path, creating it if needed.
func (b *Boards) ForPath(path core.PathKey) Board {
	b.mu.RLock()
	board, ok := b.boards[path]
	b.mu.RUnlock()
	if ok {
		return board
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if board, ok := b.boards[path]; ok {
		return board
	}
	board = NewSkipList()
	b.boards[path] = board
	return board
}

// Record updates the user's score on the path board.
func (b *Boards) Record(path core.PathKey, user core.UserID, points int64) {
	b.ForPath(path).Update(user, points)
}

// TopN returns the highest-ranked entries for a path.
func (b *Boards) TopN(path core.PathKey, n int) []Entry {
	b.mu.RLock()
	board, ok := b.boards[path]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	return board.TopN(n)
}
