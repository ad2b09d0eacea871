package auth

import (
	"context"
	"sync"
)

// MemoryStore is an AccountStore for tests and throwaway deployments.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	tokens   map[string]Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: map[string]Account{},
		tokens:   map[string]Token{},
	}
}

func (s *MemoryStore) Insert(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return ErrEmailInUse
		}
	}

	s.accounts[a.UID] = a

	return nil
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}

	return Account{}, ErrUserNotFound
}

func (s *MemoryStore) ByUID(_ context.Context, uid string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[uid]
	if !ok {
		return Account{}, ErrUserNotFound
	}

	return a, nil
}

func (s *MemoryStore) modify(uid string, fn func(*Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[uid]
	if !ok {
		return ErrUserNotFound
	}

	fn(&a)
	s.accounts[uid] = a

	return nil
}

func (s *MemoryStore) UpdateEmail(_ context.Context, uid, email string, verified bool) error {
	return s.modify(uid, func(a *Account) {
		a.Email = email
		a.EmailVerified = verified
	})
}

func (s *MemoryStore) UpdatePassword(_ context.Context, uid, hash string) error {
	return s.modify(uid, func(a *Account) { a.PasswordHash = hash })
}

func (s *MemoryStore) SetVerified(_ context.Context, uid string) error {
	return s.modify(uid, func(a *Account) { a.EmailVerified = true })
}

func (s *MemoryStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[uid]; !ok {
		return ErrUserNotFound
	}

	delete(s.accounts, uid)

	for k, t := range s.tokens {
		if t.UID == uid {
			delete(s.tokens, k)
		}
	}

	return nil
}

func (s *MemoryStore) PutToken(_ context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[t.Token] = t

	return nil
}

func (s *MemoryStore) TakeToken(_ context.Context, token, kind string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok || t.Kind != kind {
		return Token{}, ErrInvalidToken
	}

	delete(s.tokens, token)

	return t, nil
}
