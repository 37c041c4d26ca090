package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres implements the persistence layer on lib/pq.
type Postgres struct {
	db *sql.DB
}

// Config holds the connection settings.
type Config struct {
	DSN            string
	MaxConnections int
	MaxIdle        int
}

// NewPostgres opens a pooled connection. The caller owns Close.
func NewPostgres(cfg Config) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection, used by tests.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Ping tests the connection.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
			title TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			skills TEXT[] NOT NULL DEFAULT '{}',
			experience_highlights TEXT NOT NULL DEFAULT '',
			education TEXT NOT NULL DEFAULT '',
			looking_for TEXT NOT NULL DEFAULT '',
			superpower TEXT NOT NULL DEFAULT '',
			others TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			one_liner TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			stage TEXT NOT NULL DEFAULT '',
			vision TEXT NOT NULL DEFAULT '',
			problem TEXT NOT NULL DEFAULT '',
			solution TEXT NOT NULL DEFAULT '',
			talent_needs TEXT[] NOT NULL DEFAULT '{}',
			product_highlights TEXT NOT NULL DEFAULT '',
			target_audience TEXT NOT NULL DEFAULT '',
			business_model TEXT NOT NULL DEFAULT '',
			differentiation TEXT NOT NULL DEFAULT '',
			market_size TEXT NOT NULL DEFAULT '',
			team_members TEXT NOT NULL DEFAULT '',
			why_now TEXT NOT NULL DEFAULT '',
			long_term_moat TEXT NOT NULL DEFAULT '',
			roadmap_finance TEXT NOT NULL DEFAULT '',
			others TEXT NOT NULL DEFAULT '',
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS match_results (
			project_id TEXT NOT NULL REFERENCES projects(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			score INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			pros TEXT[] NOT NULL DEFAULT '{}',
			cons TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (project_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			target_id TEXT NOT NULL,
			target_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// EnsureUser inserts or refreshes an account row after login.
func (s *Postgres) EnsureUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, avatar, bio)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
			avatar = CASE WHEN EXCLUDED.avatar <> '' THEN EXCLUDED.avatar ELSE users.avatar END,
			bio = CASE WHEN EXCLUDED.bio <> '' THEN EXCLUDED.bio ELSE users.bio END`,
		u.ID, u.Name, u.Avatar, u.Bio)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// GetUser fetches an account by id.
func (s *Postgres) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, avatar, bio, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Avatar, &u.Bio, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// SaveProfile upserts the talent card keyed by the owning user.
func (s *Postgres) SaveProfile(ctx context.Context, p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, user_id, title, location, skills, experience_highlights,
			education, looking_for, superpower, others, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (user_id) DO UPDATE SET
			title = EXCLUDED.title,
			location = EXCLUDED.location,
			skills = EXCLUDED.skills,
			experience_highlights = EXCLUDED.experience_highlights,
			education = EXCLUDED.education,
			looking_for = EXCLUDED.looking_for,
			superpower = EXCLUDED.superpower,
			others = EXCLUDED.others,
			updated_at = now()`,
		p.ID, p.UserID, p.Title, p.Location, pq.Array(p.Skills),
		p.ExperienceHighlights, p.Education, p.LookingFor, p.Superpower, p.Others)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

const profileColumns = `p.id, p.user_id, p.title, p.location, p.skills,
	p.experience_highlights, p.education, p.looking_for, p.superpower, p.others,
	p.created_at, p.updated_at, u.id, u.name, u.avatar, u.bio, u.created_at`

func scanProfile(row interface{ Scan(...any) error }) (*Profile, error) {
	var p Profile
	var u User
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Location, pq.Array(&p.Skills),
		&p.ExperienceHighlights, &p.Education, &p.LookingFor, &p.Superpower, &p.Others,
		&p.CreatedAt, &p.UpdatedAt, &u.ID, &u.Name, &u.Avatar, &u.Bio, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.User = &u
	return &p, nil
}

// GetProfileByUserID fetches a talent card with its owning account.
func (s *Postgres) GetProfileByUserID(ctx context.Context, userID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`, userID)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// ListRecentProfiles returns the newest talent cards, owning accounts joined.
func (s *Postgres) ListRecentProfiles(ctx context.Context, limit int) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

const projectColumns = `id, owner_id, name, one_liner, sector, location, stage,
	vision, problem, solution, talent_needs, product_highlights, target_audience,
	business_model, differentiation, market_size, team_members, why_now,
	long_term_moat, roadmap_finance, others, published, created_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.OneLiner, &p.Sector, &p.Location,
		&p.Stage, &p.Vision, &p.Problem, &p.Solution, pq.Array(&p.TalentNeeds),
		&p.ProductHighlights, &p.TargetAudience, &p.BusinessModel, &p.Differentiation,
		&p.MarketSize, &p.TeamMembers, &p.WhyNow, &p.LongTermMoat, &p.RoadmapFinance,
		&p.Others, &p.Published, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a new manifest and returns its id.
func (s *Postgres) CreateProject(ctx context.Context, p *Project) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, one_liner, sector, location, stage,
			vision, problem, solution, talent_needs, product_highlights, target_audience,
			business_model, differentiation, market_size, team_members, why_now,
			long_term_moat, roadmap_finance, others, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22)`,
		p.ID, p.OwnerID, p.Name, p.OneLiner, p.Sector, p.Location, p.Stage,
		p.Vision, p.Problem, p.Solution, pq.Array(p.TalentNeeds), p.ProductHighlights,
		p.TargetAudience, p.BusinessModel, p.Differentiation, p.MarketSize,
		p.TeamMembers, p.WhyNow, p.LongTermMoat, p.RoadmapFinance, p.Others, p.Published)
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}
	return p.ID, nil
}

// GetProject fetches a manifest by id.
func (s *Postgres) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListRecentPublishedProjects returns the newest published manifests.
func (s *Postgres) ListRecentPublishedProjects(ctx context.Context, limit int) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE published = TRUE
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpsertMatchResult records a scored pair, overwriting any previous verdict
// for the same (project, user) key.
func (s *Postgres) UpsertMatchResult(ctx context.Context, m *MatchResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_results (project_id, user_id, score, reason, pros, cons, status, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (project_id, user_id) DO UPDATE SET
			score = EXCLUDED.score,
			reason = EXCLUDED.reason,
			pros = EXCLUDED.pros,
			cons = EXCLUDED.cons,
			status = EXCLUDED.status,
			computed_at = now()`,
		m.ProjectID, m.UserID, m.Score, m.Reason, pq.Array(m.Pros), pq.Array(m.Cons), m.Status)
	if err != nil {
		return fmt.Errorf("upsert match result: %w", err)
	}
	return nil
}

// FindChatSession locates the thread between a user and a target, if any.
func (s *Postgres) FindChatSession(ctx context.Context, userID, targetID, targetType string) (*ChatSession, error) {
	var cs ChatSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, target_id, target_type, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1 AND target_id = $2 AND target_type = $3`,
		userID, targetID, targetType).
		Scan(&cs.ID, &cs.UserID, &cs.TargetID, &cs.TargetType, &cs.CreatedAt, &cs.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find chat session: %w", err)
	}
	return &cs, nil
}

// CreateChatSession opens a new thread.
func (s *Postgres) CreateChatSession(ctx context.Context, userID, targetID, targetType string) (*ChatSession, error) {
	cs := &ChatSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		TargetID:   targetID,
		TargetType: targetType,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, target_id, target_type)
		VALUES ($1, $2, $3, $4)`,
		cs.ID, cs.UserID, cs.TargetID, cs.TargetType)
	if err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	return cs, nil
}

// AddChatMessage appends a message to a thread.
func (s *Postgres) AddChatMessage(ctx context.Context, sessionID, role, content string) (*ChatMessage, error) {
	msg := &ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content)
		VALUES ($1, $2, $3, $4)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content)
	if err != nil {
		return nil, fmt.Errorf("add chat message: %w", err)
	}
	return msg, nil
}

// TouchChatSession bumps a thread's updated_at so it sorts to the top.
func (s *Postgres) TouchChatSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("touch chat session: %w", err)
	}
	return nil
}

// ListChatSessions returns a user's threads, most recently active first, each
// carrying its latest message.
func (s *Postgres) ListChatSessions(ctx context.Context, userID string) ([]*ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.id, cs.user_id, cs.target_id, cs.target_type, cs.created_at, cs.updated_at,
			m.id, m.role, m.content, m.created_at
		FROM chat_sessions cs
		LEFT JOIN LATERAL (
			SELECT id, role, content, created_at
			FROM chat_messages
			WHERE session_id = cs.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON TRUE
		WHERE cs.user_id = $1
		ORDER BY cs.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*ChatSession
	for rows.Next() {
		var cs ChatSession
		var msgID, msgRole, msgContent sql.NullString
		var msgCreatedAt sql.NullTime
		err := rows.Scan(&cs.ID, &cs.UserID, &cs.TargetID, &cs.TargetType,
			&cs.CreatedAt, &cs.UpdatedAt, &msgID, &msgRole, &msgContent, &msgCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		if msgID.Valid {
			cs.LastMessage = &ChatMessage{
				ID:        msgID.String,
				SessionID: cs.ID,
				Role:      msgRole.String,
				Content:   msgContent.String,
				CreatedAt: msgCreatedAt.Time,
			}
		}
		sessions = append(sessions, &cs)
	}
	return sessions, rows.Err()
}
