package mocks

import (
	"context"
	"sync"
)

// MockKV is a recording in-memory KV for tests. Errors can be injected per
// operation and key.
type MockKV struct {
	mu   sync.RWMutex
	data map[string][]byte

	// For tracking calls in tests
	GetCalls []string
	SetCalls []SetCall

	// GetErr and SetErr fail every call when set.
	GetErr error
	SetErr error
	// SetErrFor fails Set only for the listed keys.
	SetErrFor map[string]error
}

// SetCall records parameters passed to Set.
type SetCall struct {
	Key   string
	Value []byte
}

func NewMockKV() *MockKV {
	return &MockKV{
		data:      make(map[string][]byte),
		GetCalls:  make([]string, 0),
		SetCalls:  make([]SetCall, 0),
		SetErrFor: make(map[string]error),
	}
}

func (m *MockKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MockKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: append([]byte(nil), value...)})
	if m.SetErr != nil {
		return m.SetErr
	}
	if err := m.SetErrFor[key]; err != nil {
		return err
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Seed stores a raw value without recording a call.
func (m *MockKV) Seed(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Raw returns the stored value without recording a call.
func (m *MockKV) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// SetCallsFor returns the recorded Set calls for key.
func (m *MockKV) SetCallsFor(key string) []SetCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SetCall
	for _, c := range m.SetCalls {
		if c.Key == key {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded calls.
func (m *MockKV) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = make([]string, 0)
	m.SetCalls = make([]SetCall, 0)
}
