package cache

import (
	"sync"
	"time"
)

// Memory — процессный TTL-кэш первого уровня. Живёт заметно короче
// распределённого уровня и никогда не является источником истины.
// Экземпляр создаётся явно и внедряется: тесты получают свой кэш и
// управляемые часы.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	payload []byte
	expiry  time.Time
}

// NewMemory создаёт кэш с указанным TTL.
func NewMemory(ttl time.Duration) *Memory {
	return NewMemoryWithClock(ttl, time.Now)
}

// NewMemoryWithClock позволяет подменить часы в тестах.
func NewMemoryWithClock(ttl time.Duration, now func() time.Time) *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   now,
	}
}

// Get возвращает значение или промах; просроченная запись удаляется.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(item.expiry) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, false
	}
	return item.payload, true
}

// Set сохраняет значение на время TTL кэша.
func (m *Memory) Set(key string, payload []byte) {
	m.mu.Lock()
	m.items[key] = memoryItem{payload: payload, expiry: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

// Delete удаляет один ключ.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Clear сбрасывает все записи. Используется при инвалидации листингов:
// перечислять точное подмножество ключей дороже, чем пережить промах.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
}

// Len возвращает количество записей, включая просроченные.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Sweep удаляет просроченные записи и возвращает их число.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, item := range m.items {
		if now.After(item.expiry) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}

// StartSweeper запускает периодическую очистку до закрытия stop.
func (m *Memory) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}
