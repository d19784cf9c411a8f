// Package user manages accounts and yearly batches. The first account to
// register becomes the admin; everyone after is a student.
package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classtrack/internal/schedule"
)

var (
	ErrMissingFields      = errors.New("missing fields")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password too short (min 8)")
	ErrEmailExists        = errors.New("email already exists")
	ErrBadBatchYear       = errors.New("invalid batch year (>= 2024)")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	minBatchYear = 2024
	maxBatchYear = 2100
	bcryptCost   = 10
)

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	bcryptRe = regexp.MustCompile(`^\$2[aby]\$`)
)

// User is an account. PasswordHash never leaves the service.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	RegNo        string `json:"reg_no"`
	BatchID      string `json:"batch_id"`
	PasswordHash string `json:"-"`
}

// Batch is a yearly cohort sharing one weekly schedule.
type Batch struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Repository is the persistence surface the service needs.
type Repository interface {
	CountUsers(ctx context.Context) (int, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, u User) error
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id, name, regNo, batchID string) (*User, error)
	BatchByNumber(ctx context.Context, number string) (*Batch, error)
	BatchByID(ctx context.Context, id string) (*Batch, error)
	CreateBatch(ctx context.Context, b Batch) error
	ListBatches(ctx context.Context) ([]Batch, error)
	RenameBatch(ctx context.Context, id, name string) error
}

// TimetableSeeder preloads a batch's schedule when it has none.
type TimetableSeeder interface {
	SeedSlots(ctx context.Context, batchID string, slots []schedule.Slot) error
}

// Service implements registration, login, and batch management.
type Service struct {
	repo   Repository
	seeder TimetableSeeder
}

// NewService creates a service.
func NewService(repo Repository, seeder TimetableSeeder) *Service {
	return &Service{repo: repo, seeder: seeder}
}

// RegisterInput is the self-service signup form.
type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	RegNo       string `json:"regNo"`
	BatchNumber string `json:"batchNumber"`
}

// Register creates an account under the given batch year, creating and
// seeding the batch when needed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	name := strings.TrimSpace(in.Name)
	regNo := strings.TrimSpace(in.RegNo)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" || email == "" || in.Password == "" || regNo == "" || in.BatchNumber == "" {
		return User{}, ErrMissingFields
	}
	if !emailRe.MatchString(email) {
		return User{}, ErrInvalidEmail
	}
	if len(in.Password) < 8 {
		return User{}, ErrPasswordTooShort
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return User{}, err
	}
	role := "student"
	if count == 0 {
		role = "admin"
	}

	if existing, err := s.repo.UserByEmail(ctx, email); err != nil {
		return User{}, err
	} else if existing != nil {
		return User{}, ErrEmailExists
	}

	batch, err := s.EnsureBatch(ctx, in.BatchNumber)
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         role,
		RegNo:        regNo,
		BatchID:      batch.ID,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login checks credentials and returns the account. Failures are uniform so
// callers cannot probe which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	u, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if u == nil || !looksLikeBcrypt(u.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return *u, nil
}

// Legacy rows may hold plaintext from before hashing was enforced; those
// accounts must not be comparable.
func looksLikeBcrypt(hash string) bool {
	return len(hash) >= 50 && bcryptRe.MatchString(hash)
}

// EnsureBatch finds or creates a batch by year (2024..2100). New 2024
// batches get the default timetable.
func (s *Service) EnsureBatch(ctx context.Context, yearStr string) (Batch, error) {
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil || year < minBatchYear || year > maxBatchYear {
		return Batch{}, ErrBadBatchYear
	}
	number := strconv.Itoa(year)

	if existing, err := s.repo.BatchByNumber(ctx, number); err != nil {
		return Batch{}, err
	} else if existing != nil {
		return *existing, s.seedIfDefault(ctx, *existing)
	}

	b := Batch{ID: uuid.NewString(), Number: number, Name: "Batch " + number}
	if err := s.repo.CreateBatch(ctx, b); err != nil {
		return Batch{}, err
	}
	return b, s.seedIfDefault(ctx, b)
}

func (s *Service) seedIfDefault(ctx context.Context, b Batch) error {
	if b.Number != "2024" || s.seeder == nil {
		return nil
	}
	return s.seeder.SeedSlots(ctx, b.ID, schedule.Default2024Week(b.ID))
}

// Batches lists all batches, seeding the default years on first call.
func (s *Service) Batches(ctx context.Context) ([]Batch, error) {
	batches, err := s.repo.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	if len(batches) > 0 {
		return batches, nil
	}
	for year := 2024; year <= 2026; year++ {
		if _, err := s.EnsureBatch(ctx, strconv.Itoa(year)); err != nil {
			return nil, err
		}
	}
	return s.repo.ListBatches(ctx)
}

// UpsertBatch ensures a batch by year and optionally renames it.
func (s *Service) UpsertBatch(ctx context.Context, number, name string) (Batch, error) {
	b, err := s.EnsureBatch(ctx, number)
	if err != nil {
		return Batch{}, err
	}
	if name != "" && name != b.Name {
		if err := s.repo.RenameBatch(ctx, b.ID, name); err != nil {
			return Batch{}, err
		}
		b.Name = name
	}
	return b, nil
}

// Users lists accounts for the admin screen.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// Update rewrites a user's name, registration number, and batch.
func (s *Service) Update(ctx context.Context, id, name, regNo, batchID string) (User, error) {
	u, err := s.repo.UpdateUser(ctx, id, name, regNo, batchID)
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, fmt.Errorf("user %s not found", id)
	}
	return *u, nil
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.UserByID(ctx, id)
}
