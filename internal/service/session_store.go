package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"text2sql-console/internal/config"
	"text2sql-console/internal/middleware"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/utils"
)

// SessionStore keeps console sessions and evicts the idle ones
type SessionStore struct {
	sessions   map[string]*storedSession
	mutex      sync.RWMutex
	ttl        time.Duration
	cleanupInt time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once

	console     repository.ConsoleRepository
	dataSources repository.DataSourceRepository
	options     SessionOptions
	logger      *zap.Logger

	now func() time.Time
}

type storedSession struct {
	session   *Session
	createdAt time.Time
	lastSeen  time.Time
}

// SessionStoreStats is reported by the health endpoint
type SessionStoreStats struct {
	Active int    `json:"active"`
	TTL    string `json:"ttl"`
}

// NewSessionStore creates a new session store
func NewSessionStore(cfg config.SessionConfig, console repository.ConsoleRepository, dataSources repository.DataSourceRepository, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	cleanupInt := cfg.CleanupInterval
	if cleanupInt <= 0 {
		cleanupInt = 10 * time.Minute
	}

	return &SessionStore{
		sessions:    make(map[string]*storedSession),
		ttl:         ttl,
		cleanupInt:  cleanupInt,
		stopChan:    make(chan struct{}),
		console:     console,
		dataSources: dataSources,
		options:     SessionOptions{FeedbackResetDelay: cfg.FeedbackResetDelay},
		logger:      logger,
		now:         time.Now,
	}
}

// Start runs the janitor until ctx is done or Stop is called
func (ss *SessionStore) Start(ctx context.Context) {
	ticker := time.NewTicker(ss.cleanupInt)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ss.stopChan:
			return
		case <-ticker.C:
			if n := ss.cleanupExpired(); n > 0 {
				ss.logger.Info("Evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Stop stops the janitor. It is safe to call more than once.
func (ss *SessionStore) Stop() {
	ss.stopOnce.Do(func() {
		close(ss.stopChan)
	})
}

// Create starts a new disconnected session
func (ss *SessionStore) Create() *Session {
	id := utils.GenerateSessionID()
	session := NewSession(id, ss.console, ss.dataSources, ss.options, ss.logger)

	ss.mutex.Lock()
	now := ss.now()
	ss.sessions[id] = &storedSession{session: session, createdAt: now, lastSeen: now}
	count := len(ss.sessions)
	ss.mutex.Unlock()

	middleware.SetActiveSessions(count)
	ss.logger.Debug("Session created", zap.String("session_id", id))
	return session
}

// Get looks a session up and marks it as seen
func (ss *SessionStore) Get(id string) (*Session, error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	stored, exists := ss.sessions[id]
	if !exists {
		return nil, utils.NewSessionError(utils.ErrCodeSessionNotFound)
	}
	stored.lastSeen = ss.now()
	return stored.session, nil
}

// Delete closes and removes a session
func (ss *SessionStore) Delete(id string) error {
	ss.mutex.Lock()
	stored, exists := ss.sessions[id]
	if exists {
		delete(ss.sessions, id)
	}
	count := len(ss.sessions)
	ss.mutex.Unlock()

	if !exists {
		return utils.NewSessionError(utils.ErrCodeSessionNotFound)
	}
	stored.session.Close()
	middleware.SetActiveSessions(count)
	return nil
}

// Len returns the number of live sessions
func (ss *SessionStore) Len() int {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()
	return len(ss.sessions)
}

// Stats returns store statistics
func (ss *SessionStore) Stats() SessionStoreStats {
	return SessionStoreStats{Active: ss.Len(), TTL: ss.ttl.String()}
}

// cleanupExpired closes and removes every session idle for longer than the TTL
func (ss *SessionStore) cleanupExpired() int {
	ss.mutex.Lock()
	now := ss.now()
	var expired []*Session
	for id, stored := range ss.sessions {
		if now.Sub(stored.lastSeen) > ss.ttl {
			expired = append(expired, stored.session)
			delete(ss.sessions, id)
		}
	}
	count := len(ss.sessions)
	ss.mutex.Unlock()

	for _, session := range expired {
		session.Close()
	}
	if len(expired) > 0 {
		middleware.SetActiveSessions(count)
	}
	return len(expired)
}
