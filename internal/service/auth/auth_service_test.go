package auth

import (
	"context"
	"testing"
	"time"

	"github.com/avdeyev/skybook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := &MockUserRepository{}
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		u := args.Get(1).(*domain.User)
		u.ID = 7
	}).Return(nil).Once()

	user, err := svc.Register(ctx, RegisterInput{FullName: "Ann Doe", Email: "ann@example.com", Password: "hunter22"})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, domain.RolePassenger, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))
	repo.AssertExpectations(t)
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	svc := NewAuthService(&MockUserRepository{}, "secret", time.Hour)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "ann@example.com"})
	assert.Error(t, err)
}

func TestAuthService_Register_RoleIsNeverClientControlled(t *testing.T) {
	repo := &MockUserRepository{}
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil).Once()

	user, err := svc.Register(ctx, RegisterInput{FullName: "Mallory", Email: "m@example.com", Password: "pw123456"})

	assert.NoError(t, err)
	assert.Equal(t, domain.RolePassenger, user.Role)
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := &MockUserRepository{}
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	stored := &domain.User{ID: 7, Email: "ann@example.com", PasswordHash: string(hash), Role: domain.RolePassenger}
	repo.On("GetByEmail", ctx, "ann@example.com").Return(stored, nil).Once()

	user, token, err := svc.Login(ctx, "ann@example.com", "hunter22")

	assert.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, domain.RolePassenger, claims.Role)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := &MockUserRepository{}
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	stored := &domain.User{ID: 7, Email: "ann@example.com", PasswordHash: string(hash)}
	repo.On("GetByEmail", ctx, "ann@example.com").Return(stored, nil).Once()

	_, _, err := svc.Login(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	repo := &MockUserRepository{}
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, domain.ErrUserNotFound).Once()

	_, _, err := svc.Login(ctx, "ghost@example.com", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_ParseToken_WrongSecret(t *testing.T) {
	repo := &MockUserRepository{}
	issuer := NewAuthService(repo, "secret-a", time.Hour)
	verifier := NewAuthService(repo, "secret-b", time.Hour)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	stored := &domain.User{ID: 1, Email: "ann@example.com", PasswordHash: string(hash)}
	repo.On("GetByEmail", ctx, "ann@example.com").Return(stored, nil).Once()

	_, token, err := issuer.Login(ctx, "ann@example.com", "pw123456")
	assert.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}
