package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/database"
	"github.com/kilo-studio/kilo-backend/internal/logger"
	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	members := repository.NewMemberRepository(pool)
	authService := service.NewAuthService(cfg)

	plans, err := members.ListPlans(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list plans")
	}
	if len(plans) == 0 {
		fmt.Println("Error: no plans exist, run the migrations first")
		return
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Member ===")

	lastName := prompt(reader, "Enter Last Name: ")
	firstName := prompt(reader, "Enter First Name: ")
	if firstName == "" || lastName == "" {
		fmt.Println("Error: Name is required")
		return
	}

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		return
	}

	role := model.Role(prompt(reader, "Enter Role (admin/normal/trial, default normal): "))
	if role == "" {
		role = model.RoleNormal
	}
	if !role.Valid() {
		fmt.Printf("Error: unknown role %q\n", role)
		return
	}

	fmt.Println("Plans:")
	for _, p := range plans {
		kind := ""
		if p.ForChildren {
			kind = " (children)"
		}
		fmt.Printf("  %d) %s%s  %d lessons/month  ¥%d\n", p.ID, p.Name, kind, p.MonthlyLessonCount, p.Price)
	}
	planID, err := strconv.Atoi(prompt(reader, "Enter Plan ID: "))
	if err != nil {
		fmt.Println("Error: Plan ID must be a number")
		return
	}
	var plan *model.Plan
	for i := range plans {
		if plans[i].ID == planID {
			plan = &plans[i]
		}
	}
	if plan == nil {
		fmt.Printf("Error: no plan with ID %d\n", planID)
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	member := &model.Member{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		Plan:         *plan,
	}

	if err := members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			fmt.Printf("Error: a member with email %s already exists\n", email)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create member")
	}

	token, err := authService.GenerateToken(member.ID, member.Role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	fmt.Printf("\nSuccess! Member '%s' (%s) created with ID: %d\n", member.Name(), member.Email, member.ID)
	fmt.Printf("Bearer token (valid %s):\n%s\n", cfg.JWTExpiry, token)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := reader.ReadString('\n')
	return strings.TrimSpace(s)
}
