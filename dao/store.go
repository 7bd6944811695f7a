package dao

import (
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Geetanshgarg/ai-chat-interface/models"
)

// Store owns the database connection. The connection is established lazily
// on first use; concurrent callers share a single in-flight connect, and a
// failed attempt is cleared so the next call retries instead of replaying
// the cached error.
type Store struct {
	open func() (*gorm.DB, error)

	mu       sync.Mutex
	db       *gorm.DB
	inflight chan struct{}
	err      error
}

// NewStore creates a store for the given PostgreSQL DSN without connecting.
func NewStore(dsn string) *Store {
	return &Store{open: func() (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&models.Conversation{}, &models.Message{}); err != nil {
			return nil, err
		}
		return db, nil
	}}
}

// NewStoreWithDB wraps an already open connection, used by tests.
func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the open connection, connecting first if needed.
func (s *Store) DB() (*gorm.DB, error) {
	s.mu.Lock()
	if s.db != nil {
		db := s.db
		s.mu.Unlock()
		return db, nil
	}

	if s.inflight == nil {
		// First caller starts the connect; later callers wait on it.
		s.inflight = make(chan struct{})
		done := s.inflight
		s.mu.Unlock()

		db, err := s.open()

		s.mu.Lock()
		if err == nil {
			s.db = db
		}
		s.err = err
		s.inflight = nil
		close(done)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	done := s.inflight
	s.mu.Unlock()
	<-done

	s.mu.Lock()
	db, err := s.db, s.err
	s.mu.Unlock()
	if db == nil && err == nil {
		// The attempt we waited on was reset in between; try again.
		return s.DB()
	}
	return db, err
}
