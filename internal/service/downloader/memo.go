package downloader

import "sync"

// memo holds a value resolved at most once.
// A failed resolution is not stored, so the next call tries again.
type memo[T any] struct {
	mu       sync.Mutex
	value    T
	resolved bool
}

func (m *memo[T]) get(resolve func() (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolved {
		return m.value, nil
	}

	value, err := resolve()
	if err != nil {
		var zero T
		return zero, err
	}

	m.value = value
	m.resolved = true

	return value, nil
}
