package services

import (
	"context"
	"fmt"
	"time"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/davlet61/costwatch/internal/repository"
	jwtutil "github.com/davlet61/costwatch/pkg/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserService exposes the session-identity operations the notification
// subsystem needs. Account management belongs to the dashboard's own layer.
type UserService struct {
	repo      *repository.UserRepository
	jwtSecret string
}

func NewUserService(repo *repository.UserRepository, jwtSecret string) *UserService {
	return &UserService{repo: repo, jwtSecret: jwtSecret}
}

// Login verifies credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	token, err := jwtutil.GenerateToken(user.ID.Hex(), user.Email, user.Role, s.jwtSecret, 24*time.Hour)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session token: %v", err)
	}
	return token, user, nil
}

// GetUser fetches one user record.
func (s *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdatePreferences stores a (possibly partial) notification-preference blob.
func (s *UserService) UpdatePreferences(ctx context.Context, id primitive.ObjectID, prefs *models.NotificationPreferences) error {
	return s.repo.UpdatePreferences(ctx, id, prefs)
}
