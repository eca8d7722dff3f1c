package auth_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"pokermates/internal/config"
	"pokermates/internal/model"
	"pokermates/internal/service/auth"
	pkgAuth "pokermates/pkg/auth"
	appErr "pokermates/pkg/errors"
	"pokermates/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.InitLogger("test")
	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", Expire: 24},
		Game: config.GameConfig{
			StartingChips: 10000,
		},
	}
	os.Exit(m.Run())
}

func newService(t *testing.T) (*gorm.DB, *auth.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, auth.NewService(db, nil)
}

func TestRegisterGrantsStartingChips(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	result, err := svc.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.Token == "" || result.Username != "alice" {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if result.Chips != 10000 {
		t.Fatalf("expected the starting grant, got %d", result.Chips)
	}

	claims, err := pkgAuth.ParseToken(result.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.SubjectID != result.UserID || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	if _, err := svc.Register(ctx, "  ", "secret123"); err != appErr.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for blank username, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "short"); err != appErr.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for short password, got %v", err)
	}

	if _, err := svc.Register(ctx, "carol", "secret123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "carol", "another123"); err != appErr.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	if _, err := svc.Register(ctx, "dave", "secret123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result, err := svc.Login(ctx, "dave", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected a token")
	}

	if _, err := svc.Login(ctx, "dave", "wrongpass"); err != appErr.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret123"); err != appErr.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}
