package staff

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/koekemoer93/kart-force-sub000/pkg/auth"
	"github.com/koekemoer93/kart-force-sub000/pkg/config"
	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "kartforce-test",
		ExpirationMinutes: 30,
	}
}

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	dsn := "file:staff_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.StaffUser{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := NewRepository(gdb)
	svc, err := NewService(repo, testJWTConfig(), testPasswordConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func seedUser(t *testing.T, repo Repository, email, password string, role enums.StaffRole) *models.StaffUser {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.StaffUser{
		ID:           uuid.New(),
		TrackID:      uuid.New(),
		Email:        email,
		Name:         "Test User",
		Role:         role,
		PasswordHash: hash,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	user := seedUser(t, repo, "mechanic@kartforce.io", "grid-start-9", enums.StaffRoleWorker)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Mechanic@KartForce.io",
		Password: "grid-start-9",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if resp.User.ID != user.ID || resp.User.Role != "worker" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.TrackID != user.TrackID || claims.Role != enums.StaffRoleWorker {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	seedUser(t, repo, "admin@kartforce.io", "correct-password", enums.StaffRoleAdmin)

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{name: "wrong password", req: LoginRequest{Email: "admin@kartforce.io", Password: "wrong"}},
		{name: "unknown email", req: LoginRequest{Email: "ghost@kartforce.io", Password: "correct-password"}},
		{name: "empty password", req: LoginRequest{Email: "admin@kartforce.io"}},
		{name: "empty email", req: LoginRequest{Password: "correct-password"}},
	}
	for _, tc := range cases {
		_, err := svc.Login(context.Background(), tc.req)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("%s: message leaks detail: %q", tc.name, typed.Message())
		}
	}
}

func TestCreateUserThenLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	trackID := uuid.New()

	user, err := svc.CreateUser(ctx, CreateUserInput{
		TrackID:  trackID,
		Email:    "Pit.Boss@KartForce.io",
		Name:     "Pit Boss",
		Role:     enums.StaffRoleAdmin,
		Password: "formation-lap-1",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "pit.boss@kartforce.io" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.TrackID != trackID || user.Role != "admin" {
		t.Fatalf("unexpected user payload: %+v", user)
	}

	resp, err := svc.Login(ctx, LoginRequest{
		Email:    "pit.boss@kartforce.io",
		Password: "formation-lap-1",
	})
	if err != nil {
		t.Fatalf("login after create: %v", err)
	}
	if resp.User.ID != user.ID {
		t.Fatalf("expected login as created user, got %+v", resp.User)
	}
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	trackID := uuid.New()

	cases := []struct {
		name  string
		input CreateUserInput
	}{
		{name: "empty email", input: CreateUserInput{TrackID: trackID, Name: "X", Role: enums.StaffRoleWorker, Password: "long-enough"}},
		{name: "empty name", input: CreateUserInput{TrackID: trackID, Email: "a@b.io", Role: enums.StaffRoleWorker, Password: "long-enough"}},
		{name: "missing track", input: CreateUserInput{Email: "a@b.io", Name: "X", Role: enums.StaffRoleWorker, Password: "long-enough"}},
		{name: "bad role", input: CreateUserInput{TrackID: trackID, Email: "a@b.io", Name: "X", Role: "owner", Password: "long-enough"}},
		{name: "short password", input: CreateUserInput{TrackID: trackID, Email: "a@b.io", Name: "X", Role: enums.StaffRoleWorker, Password: "short"}},
	}
	for _, tc := range cases {
		_, err := svc.CreateUser(ctx, tc.input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	input := CreateUserInput{
		TrackID:  uuid.New(),
		Email:    "crew@kartforce.io",
		Name:     "Crew",
		Role:     enums.StaffRoleWorker,
		Password: "pole-position",
	}
	if _, err := svc.CreateUser(ctx, input); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := svc.CreateUser(ctx, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}
