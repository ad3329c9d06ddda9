package service

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"weighstation/internal/models"
)

type authRepoStub struct {
	users   map[string]*models.User
	nextID  int
	lastErr error
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{users: map[string]*models.User{}, nextID: 1}
}

func (s *authRepoStub) Create(username, passwordHash string) (int, error) {
	if s.lastErr != nil {
		return 0, s.lastErr
	}
	id := s.nextID
	s.nextID++
	s.users[username] = &models.User{ID: id, Username: username, PasswordHash: passwordHash}
	return id, nil
}

func (s *authRepoStub) GetByUsername(username string) (*models.User, error) {
	if s.lastErr != nil {
		return nil, s.lastErr
	}
	return s.users[username], nil
}

func TestAuthService_SignUp(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, "secret", time.Hour)

	id, err := svc.SignUp("operator", "qwerty123")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if id != 1 {
		t.Errorf("id: want 1, got %d", id)
	}

	stored := repo.users["operator"]
	if stored == nil {
		t.Fatal("user not stored")
	}
	if stored.PasswordHash == "qwerty123" {
		t.Error("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("qwerty123")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
}

func TestAuthService_SignUp_EmptyPassword(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), "secret", time.Hour)
	if _, err := svc.SignUp("operator", "   "); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestAuthService_GenerateAndParseToken(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, "secret", time.Hour)

	id, err := svc.SignUp("operator", "qwerty123")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	token, err := svc.GenerateToken("operator", "qwerty123")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	gotID, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if gotID != id {
		t.Errorf("userID: want %d, got %d", id, gotID)
	}
}

func TestAuthService_GenerateToken_Failures(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, err := svc.SignUp("operator", "qwerty123"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	if _, err := svc.GenerateToken("nobody", "qwerty123"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: want ErrUserNotFound, got %v", err)
	}
	if _, err := svc.GenerateToken("operator", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("bad password: want ErrInvalidPassword, got %v", err)
	}

	repo.lastErr = errors.New("db down")
	if _, err := svc.GenerateToken("operator", "qwerty123"); err == nil {
		t.Error("repo error must propagate")
	}
}

func TestAuthService_ParseToken_WrongKey(t *testing.T) {
	repo := newAuthRepoStub()
	issuer := NewAuthService(repo, "secret-a", time.Hour)
	verifier := NewAuthService(repo, "secret-b", time.Hour)

	if _, err := issuer.SignUp("operator", "qwerty123"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	token, err := issuer.GenerateToken("operator", "qwerty123")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("token signed with another key must not parse")
	}
}

func TestAuthService_ParseToken_Expired(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, "secret", -time.Minute)

	if _, err := svc.SignUp("operator", "qwerty123"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	token, err := svc.GenerateToken("operator", "qwerty123")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestAuthService_ParseToken_Garbage(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), "secret", time.Hour)
	if _, err := svc.ParseToken("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
