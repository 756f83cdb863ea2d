package kv

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return s.sessions.Insert(txn, sessionToRecord(session))
	})
}

// GetSessionByRefreshToken returns the unexpired session holding tokenHash.
func (s *Store) GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session *domain.Session
	err := s.view(ctx, func(txn *badger.Txn) error {
		r, err := s.sessions.Lookup(txn, "refresh", tokenHash)
		if err != nil {
			return err
		}
		session = r.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if session.IsExpired(s.stamp()) {
		return nil, store.ErrNotFound
	}
	return session, nil
}

// UpdateSession overwrites the stored session.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		old, err := s.sessions.Get(txn, session.ID)
		if err != nil {
			return err
		}
		return s.sessions.Replace(txn, old, sessionToRecord(session))
	})
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		r, err := s.sessions.Get(txn, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.sessions.Remove(txn, r)
	})
}

// ListUserSessions returns a user's sessions, most recently seen first.
func (s *Store) ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := s.view(ctx, func(txn *badger.Txn) error {
		return s.sessions.EachIndexed(txn, "user", userID, func(r *sessionRecord) error {
			sessions = append(sessions, r.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastSeenAt.After(sessions[j].LastSeenAt)
	})
	return sessions, nil
}

// DeleteExpiredSessions removes every session past its expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	now := s.stamp()
	count := 0
	err := s.update(ctx, func(txn *badger.Txn) error {
		var expired []*sessionRecord
		if err := s.sessions.Each(txn, func(r *sessionRecord) error {
			if !now.Before(r.ExpiresAt) {
				expired = append(expired, r)
			}
			return nil
		}); err != nil {
			return err
		}
		for _, r := range expired {
			if err := s.sessions.Remove(txn, r); err != nil {
				return err
			}
		}
		count = len(expired)
		return nil
	})
	return count, err
}
