package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/sa/gopherlist/internal/config"
	"github.com/sa/gopherlist/internal/db"
)

func TestHashPassword(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "" {
		t.Error("HashPassword returned empty hash")
	}

	if hash == password {
		t.Error("Hash should not equal plaintext password")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	// Correct password should match
	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	// Wrong password should not match
	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for wrong password")
	}
}

func TestPasswordHashing_DifferentHashesForSamePassword(t *testing.T) {
	password := "samepassword"

	hash1, _ := HashPassword(password)
	hash2, _ := HashPassword(password)

	// bcrypt should generate different hashes for same password (due to salt)
	if hash1 == hash2 {
		t.Error("Same password should produce different hashes due to salting")
	}

	// Both hashes should still validate
	if !CheckPassword(password, hash1) {
		t.Error("First hash should validate")
	}
	if !CheckPassword(password, hash2) {
		t.Error("Second hash should validate")
	}
}

func TestCheckPassword_EmptyInputs(t *testing.T) {
	hash, _ := HashPassword("password")

	// Empty password should not match
	if CheckPassword("", hash) {
		t.Error("Empty password should not match")
	}

	// Empty hash should not match (and should not panic)
	if CheckPassword("password", "") {
		t.Error("Empty hash should not match")
	}
}

func setupTestAuth(t *testing.T, cfg *config.Config) *Auth {
	t.Helper()

	database, err := db.Open("sqlite:///:memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return New(cfg, database.Queries)
}

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	cfg := config.Default()
	cfg.AutoApproval = false
	a := setupTestAuth(t, cfg)
	ctx := context.Background()

	first, err := a.Register(ctx, "Admin", "Admin@Example.COM", "secret123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !first.Admin() {
		t.Error("first user should be admin")
	}
	if !first.Approved() {
		t.Error("first user should be approved even without auto approval")
	}
	if !first.CanRead() || !first.CanModerate() || !first.CanImport() {
		t.Error("first user should hold every permission")
	}
	if first.Email != "admin@example.com" {
		t.Errorf("email = %q, want lowercased", first.Email)
	}

	second, err := a.Register(ctx, "Visitor", "visitor@example.com", "secret123")
	if err != nil {
		t.Fatalf("second Register failed: %v", err)
	}
	if second.Admin() {
		t.Error("second user should not be admin")
	}
	if second.Approved() {
		t.Error("second user should await approval")
	}
}

func TestRegister_DefaultPermissionsFollowAccessConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ReadAccess = "REGISTERED"
	cfg.ModerateAccess = "REGISTERED"
	cfg.ImportAccess = "ADMIN"
	a := setupTestAuth(t, cfg)
	ctx := context.Background()

	// Burn the first-user slot
	if _, err := a.Register(ctx, "Admin", "admin@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := a.Register(ctx, "Member", "member@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !user.CanRead() {
		t.Error("REGISTERED read access should grant CanRead")
	}
	if !user.CanModerate() {
		t.Error("REGISTERED moderate access should grant CanModerate")
	}
	if user.CanImport() {
		t.Error("ADMIN import access should not grant CanImport")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	a := setupTestAuth(t, config.Default())
	ctx := context.Background()

	if _, err := a.Register(ctx, "One", "dup@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := a.Register(ctx, "Two", "DUP@example.com", "secret123"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("err = %v, want ErrEmailExists", err)
	}
}

func TestAuthenticate(t *testing.T) {
	a := setupTestAuth(t, config.Default())
	ctx := context.Background()

	if _, err := a.Register(ctx, "Sam", "sam@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := a.Authenticate(ctx, " Sam@Example.com ", "secret123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.GetName() != "Sam" {
		t.Errorf("name = %q, want Sam", user.GetName())
	}

	if _, err := a.Authenticate(ctx, "sam@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.Authenticate(ctx, "ghost@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_ApprovalRequired(t *testing.T) {
	cfg := config.Default()
	cfg.AutoApproval = false
	a := setupTestAuth(t, cfg)
	ctx := context.Background()

	// First user approved, second pending
	if _, err := a.Register(ctx, "Admin", "admin@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := a.Register(ctx, "Pending", "pending@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := a.Authenticate(ctx, "pending@example.com", "secret123"); !errors.Is(err, ErrUserNotApproved) {
		t.Errorf("err = %v, want ErrUserNotApproved", err)
	}
	if _, err := a.Authenticate(ctx, "admin@example.com", "secret123"); err != nil {
		t.Errorf("approved admin login failed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	a := setupTestAuth(t, config.Default())
	ctx := context.Background()

	user, err := a.Register(ctx, "Sam", "sam@example.com", "oldpass123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := a.ChangePassword(ctx, user.ID, "wrongpass", "newpass123"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("err = %v, want ErrInvalidPassword", err)
	}

	if err := a.ChangePassword(ctx, user.ID, "oldpass123", "newpass123"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := a.Authenticate(ctx, "sam@example.com", "newpass123"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := a.Authenticate(ctx, "sam@example.com", "oldpass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still valid: %v", err)
	}
}
