// Package store persists users, profiles, projects, match results and the
// inbox in PostgreSQL.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// User is an authenticated account. Profiles hang off users one-to-one.
type User struct {
	ID        string
	Name      string
	Avatar    string
	Bio       string
	CreatedAt time.Time
}

// Profile is a talent's published card, keyed by the owning user.
type Profile struct {
	ID                   string
	UserID               string
	Title                string
	Location             string
	Skills               []string
	ExperienceHighlights string
	Education            string
	LookingFor           string
	Superpower           string
	Others               string
	CreatedAt            time.Time
	UpdatedAt            time.Time

	// User is populated on reads that join the owning account.
	User *User
}

// Project is a founder's published manifest.
type Project struct {
	ID                string
	OwnerID           string
	Name              string
	OneLiner          string
	Sector            string
	Location          string
	Stage             string
	Vision            string
	Problem           string
	Solution          string
	TalentNeeds       []string
	ProductHighlights string
	TargetAudience    string
	BusinessModel     string
	Differentiation   string
	MarketSize        string
	TeamMembers       string
	WhyNow            string
	LongTermMoat      string
	RoadmapFinance    string
	Others            string
	Published         bool
	CreatedAt         time.Time
}

// MatchResult is one scored (project, user) pair. The pair key makes repeat
// runs idempotent: re-scoring overwrites the previous verdict.
type MatchResult struct {
	ProjectID  string
	UserID     string
	Score      int
	Reason     string
	Pros       []string
	Cons       []string
	Status     string
	ComputedAt time.Time
}

// ChatSession is one inbox thread between a user and a target entity.
type ChatSession struct {
	ID         string
	UserID     string
	TargetID   string
	TargetType string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// LastMessage is populated by inbox listings.
	LastMessage *ChatMessage
}

// ChatMessage is one message inside an inbox thread.
type ChatMessage struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}
