package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/auth"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/repository"
)

const MinOperatorPasswordLength = 10

// AuthService handles operator accounts for the admin API. Operators are
// not chat identities; they authenticate with a password and receive a JWT.
type AuthService struct {
	operators repository.OperatorRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	operators repository.OperatorRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		operators: operators,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the operator and their issued token so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	Operator *model.Operator
	Token    string
}

// Register creates an operator account.
func (s *AuthService) Register(ctx context.Context, login, password string) (*model.Operator, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, apperror.ValidationFailed("login", "login is required")
	}
	if len(password) < MinOperatorPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinOperatorPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	op := &model.Operator{Login: login, PasswordHash: hash}
	if err := s.operators.CreateOperator(ctx, op); err != nil {
		return nil, err
	}

	s.logger.Info("operator registered",
		slog.String("operatorID", op.ID),
		slog.String("login", op.Login),
	)
	return op, nil
}

// Login verifies the password and issues a token. Wrong login and wrong
// password produce the same error, so probing for valid logins reveals
// nothing.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	op, err := s.operators.OperatorByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		return nil, apperror.Forbidden("invalid login or password")
	}
	if err := s.passwords.Verify(op.PasswordHash, password); err != nil {
		s.logger.Warn("failed login attempt", slog.String("login", login))
		return nil, apperror.Forbidden("invalid login or password")
	}

	token, err := s.tokens.Generate(op.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token for operator %s: %w", op.ID, err)
	}

	s.logger.Info("operator logged in", slog.String("operatorID", op.ID))
	return &AuthResult{Operator: op, Token: token}, nil
}

// Operator returns the operator for an id taken from a validated token.
func (s *AuthService) Operator(ctx context.Context, id string) (*model.Operator, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "operator id is required")
	}
	return s.operators.OperatorByID(ctx, id)
}

// ValidateToken returns the operator id a token was issued for. Thin
// delegation so callers only import the service package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", apperror.Forbidden("invalid or expired token")
	}
	return id, nil
}
