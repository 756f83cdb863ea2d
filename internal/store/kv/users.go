package kv

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/n1k0r/librenotes-server/internal/domain"
)

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return s.users.Insert(txn, userToRecord(user))
	})
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user *domain.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		r, err := s.users.Get(txn, id)
		if err != nil {
			return err
		}
		user = r.toDomain()
		return nil
	})
	return user, err
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		r, err := s.users.Lookup(txn, "username", strings.ToLower(username))
		if err != nil {
			return err
		}
		user = r.toDomain()
		return nil
	})
	return user, err
}

// UpdateUser overwrites the stored user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		old, err := s.users.Get(txn, user.ID)
		if err != nil {
			return err
		}
		return s.users.Replace(txn, old, userToRecord(user))
	})
}
