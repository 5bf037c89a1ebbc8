package repository

import (
	"fmt"
	"sync"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
)

type pendingRepository struct {
	mu      sync.Mutex
	pending map[string]domain.PendingDeletion
}

func NewPendingRepository() *pendingRepository {
	return &pendingRepository{
		pending: make(map[string]domain.PendingDeletion),
	}
}

func (r *pendingRepository) key(chatID int64, userID string) string {
	return fmt.Sprintf("%d:%s", chatID, userID)
}

func (r *pendingRepository) Save(chatID int64, userID string, p domain.PendingDeletion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[r.key(chatID, userID)] = p
}

// Take returns and forgets the pending deletion of userID in chatID.
func (r *pendingRepository) Take(chatID int64, userID string) (domain.PendingDeletion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(chatID, userID)
	p, ok := r.pending[key]
	delete(r.pending, key)
	return p, ok
}
