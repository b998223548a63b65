package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// plainVerifier compares passwords without hashing, for tests.
func plainVerifier(hashedPassword, password string) error {
	if hashedPassword != password {
		return fmt.Errorf("password mismatch")
	}
	return nil
}

func TestAuthService_SignIn(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		now := fixedNow()
		creds := &credentialStoreStub{
			credentials: UserCredentials{
				User:         User{ID: "user-1", Email: "user@example.com"},
				PasswordHash: "secret",
			},
		}
		repo := newSessionRepoStub()
		audit := &securityLogStub{}
		svc := NewAuthService(creds, repo, audit, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), func() time.Time { return now }, time.Hour)

		result, err := svc.SignIn(context.Background(), SignInParams{Email: " User@Example.com ", Password: "secret"})
		if err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		if result.Session.Token != "tok-1" {
			t.Fatalf("expected issued token, got %s", result.Session.Token)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry in one hour, got %v", result.Session.ExpiresAt)
		}
		if len(repo.deleteCalls) != 1 || !repo.deleteCalls[0].Equal(now) {
			t.Fatalf("expected expired sessions purged at now, got %#v", repo.deleteCalls)
		}
		if len(audit.entries) != 1 || audit.entries[0].Action != "sign_in" {
			t.Fatalf("expected one sign_in audit entry, got %#v", audit.entries)
		}
	})

	t.Run("rejects disabled accounts and logs the attempt", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, Disabled: true}}
		audit := &securityLogStub{}
		svc := NewAuthService(creds, nil, audit, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), fixedNow, time.Hour)

		_, err := svc.SignIn(context.Background(), SignInParams{Email: "user@example.com", Password: "secret"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
		if len(audit.entries) != 1 || audit.entries[0].Action != "sign_in_failed" {
			t.Fatalf("expected sign_in_failed audit entry, got %#v", audit.entries)
		}
	})

	t.Run("rejects invalid credentials with sentinel error", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "expected"},
		}
		svc := NewAuthService(creds, nil, nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), fixedNow, time.Hour)

		_, err := svc.SignIn(context.Background(), SignInParams{Email: "user@example.com", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("does not reveal unknown accounts", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, nil, nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), fixedNow, time.Hour)

		_, err := svc.SignIn(context.Background(), SignInParams{Email: "ghost@example.com", Password: "secret"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("sign-in survives a failing audit log", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"},
		}
		audit := &securityLogStub{appendErr: errors.New("log unavailable")}
		svc := NewAuthService(creds, newSessionRepoStub(), audit, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), fixedNow, time.Hour)

		if _, err := svc.SignIn(context.Background(), SignInParams{Email: "user@example.com", Password: "secret"}); err != nil {
			t.Fatalf("expected sign-in to succeed, got %v", err)
		}
	})
}

func TestAuthService_SignOut(t *testing.T) {
	t.Parallel()

	t.Run("revokes the session and logs the action", func(t *testing.T) {
		t.Parallel()

		now := fixedNow()
		repo := newSessionRepoStub()
		repo.seed(Session{ID: "sid-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour)})
		audit := &securityLogStub{}
		svc := NewAuthService(nil, repo, audit, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), func() time.Time { return now }, time.Hour)

		if err := svc.SignOut(context.Background(), "token"); err != nil {
			t.Fatalf("SignOut failed: %v", err)
		}
		stored := repo.sessionsByID["sid-1"]
		if stored.RevokedAt == nil {
			t.Fatalf("expected RevokedAt to be set")
		}
		if len(audit.entries) != 1 || audit.entries[0].Action != "sign_out" {
			t.Fatalf("expected sign_out audit entry, got %#v", audit.entries)
		}
	})

	t.Run("maps missing tokens to invalid credentials", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(nil, newSessionRepoStub(), nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), fixedNow, time.Hour)
		if err := svc.SignOut(context.Background(), "missing"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("requires a non-empty token", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(nil, newSessionRepoStub(), nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), fixedNow, time.Hour)
		if err := svc.SignOut(context.Background(), "  "); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	t.Run("returns principal for active session", func(t *testing.T) {
		t.Parallel()

		now := fixedNow()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1", IsAdmin: true}}}
		repo := newSessionRepoStub()
		repo.seed(Session{ID: "sid-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour)})
		svc := NewAuthService(creds, repo, nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), func() time.Time { return now }, time.Hour)

		principal, err := svc.ValidateSession(context.Background(), " token ")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != "user-1" || !principal.IsAdmin {
			t.Fatalf("unexpected principal: %#v", principal)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()

		now := fixedNow()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}}}
		repo := newSessionRepoStub()
		repo.seed(Session{ID: "sid-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(-time.Minute)})
		svc := NewAuthService(creds, repo, nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), func() time.Time { return now }, time.Hour)

		if _, err := svc.ValidateSession(context.Background(), "token"); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		now := fixedNow()
		revoked := now.Add(-time.Minute)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}}}
		repo := newSessionRepoStub()
		repo.seed(Session{ID: "sid-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked})
		svc := NewAuthService(creds, repo, nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), func() time.Time { return now }, time.Hour)

		if _, err := svc.ValidateSession(context.Background(), "token"); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("returns unauthorized when the user record is missing", func(t *testing.T) {
		t.Parallel()

		now := fixedNow()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "other"}}}
		repo := newSessionRepoStub()
		repo.seed(Session{ID: "sid-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour)})
		svc := NewAuthService(creds, repo, nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), func() time.Time { return now }, time.Hour)

		if _, err := svc.ValidateSession(context.Background(), "token"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects empty tokens", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, newSessionRepoStub(), nil, plainVerifier, sequenceIDs("sid"), sequenceIDs("tok"), fixedNow, time.Hour)
		if _, err := svc.ValidateSession(context.Background(), "  "); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestPasswordHasher(t *testing.T) {
	t.Parallel()

	t.Run("round-trips a password", func(t *testing.T) {
		t.Parallel()

		hasher := DefaultPasswordHasher()
		hash, err := hasher.Hash("correct horse battery staple")
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		if err := hasher.Verify(hash, "correct horse battery staple"); err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if err := hasher.Verify(hash, "wrong"); err == nil {
			t.Fatalf("expected mismatch error")
		}
	})

	t.Run("rejects malformed encodings", func(t *testing.T) {
		t.Parallel()

		hasher := DefaultPasswordHasher()
		if err := hasher.Verify("not-an-argon2-hash", "secret"); err == nil {
			t.Fatalf("expected error for malformed hash")
		}
	})
}

// credentialStoreStub implements CredentialStore for tests.
type credentialStoreStub struct {
	credentials UserCredentials
	err         error
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID == "" {
		return UserCredentials{}, ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if c.err != nil {
		return User{}, c.err
	}
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, ErrNotFound
}

// sessionRepoStub provides an in-memory SessionRepository for tests.
type sessionRepoStub struct {
	sessionsByID map[string]Session
	tokenToID    map[string]string

	createErr error
	getErr    error
	revokeErr error
	deleteErr error

	deleteCalls []time.Time
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{
		sessionsByID: make(map[string]Session),
		tokenToID:    make(map[string]string),
	}
}

func (s *sessionRepoStub) seed(session Session) {
	s.sessionsByID[session.ID] = session
	s.tokenToID[session.Token] = session.ID
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.seed(session)
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s.sessionsByID[id], nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session := s.sessionsByID[id]
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	session.UpdatedAt = revoked
	s.sessionsByID[id] = session
	return session, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	cutoff := reference.UTC()
	s.deleteCalls = append(s.deleteCalls, cutoff)
	for id, session := range s.sessionsByID {
		if session.ExpiresAt.IsZero() {
			continue
		}
		if !session.ExpiresAt.After(cutoff) {
			delete(s.sessionsByID, id)
			delete(s.tokenToID, session.Token)
		}
	}
	return nil
}

// securityLogStub captures audit entries for assertions.
type securityLogStub struct {
	entries   []SecurityLogEntry
	appendErr error
}

func (s *securityLogStub) AppendSecurityLog(ctx context.Context, entry SecurityLogEntry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}
