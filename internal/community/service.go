// Package community is the lightweight board: anonymous posts that expire
// after a day, plus pinned admin announcements.
package community

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyPost = errors.New("empty post")
	ErrTooLong   = errors.New("too long (max 2000 chars)")
)

const (
	TypeAnon         = "anon"
	TypeAnnouncement = "announcement"

	maxBodyLen  = 2000
	anonTTL     = 24 * time.Hour
	listMaxRows = 200
)

// Post is a stored board entry, author fields joined from users.
type Post struct {
	ID          string
	AuthorID    string
	Body        string
	Type        string
	Pinned      bool
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	AuthorName  string
	AuthorEmail string
}

// Author is the attribution shown to a viewer. Only admins see identities.
type Author struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// View is one post as rendered for a viewer.
type View struct {
	ID        string     `json:"id"`
	Body      string     `json:"body"`
	Type      string     `json:"type"`
	Pinned    bool       `json:"pinned"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Author    Author     `json:"author"`
}

// Repository persists board posts.
type Repository interface {
	PurgeExpired(ctx context.Context) error
	List(ctx context.Context, limit int) ([]Post, error)
	Insert(ctx context.Context, p Post) error
	Delete(ctx context.Context, id string) error
}

// Service applies posting policy and viewer anonymization.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a board service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns current posts, purging expired anonymous ones first.
// Announcements sort above anon posts; both newest first.
func (s *Service) List(ctx context.Context, viewerIsAdmin bool) ([]View, error) {
	if err := s.repo.PurgeExpired(ctx); err != nil {
		return nil, err
	}
	posts, err := s.repo.List(ctx, listMaxRows)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(posts))
	for _, p := range posts {
		views = append(views, s.render(p, viewerIsAdmin))
	}
	return views, nil
}

// Poster identifies the authenticated author of a new post.
type Poster struct {
	UserID  string
	Name    string
	IsAdmin bool
}

// Create stores a post. Only admins may announce; everyone else is forced to
// an anonymous post that expires after 24 hours.
func (s *Service) Create(ctx context.Context, by Poster, body, kind string) (View, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return View{}, ErrEmptyPost
	}
	if len(body) > maxBodyLen {
		return View{}, ErrTooLong
	}

	finalType := TypeAnon
	if by.IsAdmin && kind == TypeAnnouncement {
		finalType = TypeAnnouncement
	}
	now := s.now()
	p := Post{
		ID:         uuid.NewString(),
		AuthorID:   by.UserID,
		Body:       body,
		Type:       finalType,
		Pinned:     finalType == TypeAnnouncement,
		CreatedAt:  now,
		AuthorName: by.Name,
	}
	if finalType == TypeAnon {
		exp := now.Add(anonTTL)
		p.ExpiresAt = &exp
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return View{}, err
	}
	return s.render(p, by.IsAdmin), nil
}

// Delete removes a post. Authorization is the caller's concern.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) render(p Post, viewerIsAdmin bool) View {
	v := View{
		ID:        p.ID,
		Body:      p.Body,
		Type:      p.Type,
		Pinned:    p.Pinned,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
		Author:    Author{Name: "Anonymous"},
	}
	if viewerIsAdmin {
		v.Author = Author{ID: p.AuthorID, Name: p.AuthorName, Email: p.AuthorEmail}
	}
	return v
}
