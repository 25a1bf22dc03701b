package telegram

import "sync"

// userQueue держит очередь сообщений каждого пользователя. Сообщения одного
// пользователя обрабатывает один воркер строго по порядку.
type userQueue[T any] struct {
	mu      sync.Mutex
	pending map[int64][]T
}

func newUserQueue[T any]() *userQueue[T] {
	return &userQueue[T]{pending: make(map[int64][]T)}
}

// push ставит сообщение в очередь пользователя. true означает, что воркера
// у пользователя нет и его нужно запустить.
func (q *userQueue[T]) push(userID int64, item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, active := q.pending[userID]
	q.pending[userID] = append(queue, item)
	return !active
}

// pop отдаёт следующее сообщение. Когда очередь пуста, воркер пользователя
// считается завершённым.
func (q *userQueue[T]) pop(userID int64) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	queue := q.pending[userID]
	if len(queue) == 0 {
		delete(q.pending, userID)
		return zero, false
	}
	item := queue[0]
	queue[0] = zero
	q.pending[userID] = queue[1:]
	return item, true
}
