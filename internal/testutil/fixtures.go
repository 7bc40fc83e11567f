package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/dom/account-auth/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email     string
	name      string
	password  string
	activated bool
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		email:    fmt.Sprintf("user_%s@example.com", uuid.New().String()[:8]),
		name:     "Test User",
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) Activated() *UserBuilder {
	b.activated = true
	return b
}

// Build creates the user in the database and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:             uuid.New(),
		Email:          b.email,
		PasswordHash:   string(hashedPassword),
		Name:           b.name,
		IsActivated:    b.activated,
		ActivationLink: uuid.NewString(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         domain.UserDto `json:"user"`
}

// Register creates the user through the API using client so the refresh cookie is kept
func (b *UserBuilder) Register(t *testing.T, ts *TestServer, client *http.Client) AuthResponse {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"email":    b.email,
		"password": b.password,
		"name":     b.name,
	})

	resp, err := client.Post(ts.APIURL("/registration"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return authResp
}

// SentMail is one activation mail recorded by FakeMailer
type SentMail struct {
	To             string
	ActivationLink string
}

// FakeMailer records activation mails instead of sending them. SetError makes
// subsequent sends fail.
type FakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []SentMail
}

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

func (m *FakeMailer) SendActivationMail(_ context.Context, to, activationLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, SentMail{To: to, ActivationLink: activationLink})
	return nil
}

func (m *FakeMailer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *FakeMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}
