package session

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// DefaultKey is the slot name used when the caller does not configure one.
const DefaultKey = "authclient_user_session"

// Store operations reported to a fault hook.
const (
	OpSave  = "save"
	OpLoad  = "load"
	OpClear = "clear"
)

// Store owns the single session slot. It never returns storage errors: reads that fail are
// treated as "no session" and failed writes are logged, because a caching fault must not
// change the outcome of a remote call that already happened.
type Store struct {
	storage Storage
	key     string
	logger  *zap.Logger
	onFault func(op string, err error)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the diagnostic logger. The default discards.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFaultHook registers fn to be called on every swallowed storage fault.
func WithFaultHook(fn func(op string, err error)) StoreOption {
	return func(s *Store) {
		s.onFault = fn
	}
}

// NewStore returns a Store over storage. An empty key selects [DefaultKey].
func NewStore(storage Storage, key string, opts ...StoreOption) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		storage: storage,
		key:     key,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the slot name.
func (s *Store) Key() string {
	return s.key
}

// Save overwrites the slot with sess and reports whether it was persisted.
func (s *Store) Save(ctx context.Context, sess *Session) bool {
	data, err := Encode(sess)
	if err != nil {
		s.fault(OpSave, err)
		return false
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.fault(OpSave, err)
		return false
	}
	return true
}

// Load returns the stored session, or nil when the slot is empty, unreadable or corrupt.
func (s *Store) Load(ctx context.Context) *Session {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.fault(OpLoad, err)
		}
		return nil
	}

	sess, err := Decode(data)
	if err != nil {
		s.fault(OpLoad, err)
		return nil
	}
	return sess
}

// Clear empties the slot. Clearing an empty slot is a no-op.
func (s *Store) Clear(ctx context.Context) bool {
	if err := s.storage.Remove(ctx, s.key); err != nil {
		s.fault(OpClear, err)
		return false
	}
	return true
}

func (s *Store) fault(op string, err error) {
	s.logger.Warn("session storage fault",
		zap.String("op", op),
		zap.String("key", s.key),
		zap.Error(err),
	)
	if s.onFault != nil {
		s.onFault(op, err)
	}
}
