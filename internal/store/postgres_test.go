package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewPostgresFromDB(db), mock
}

func TestUpsertMatchResult(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO match_results`).
		WithArgs("proj-1", "user-1", 85, "Strong fit",
			pq.Array([]string{"Go"}), pq.Array([]string{}), "calculated").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertMatchResult(context.Background(), &MatchResult{
		ProjectID: "proj-1",
		UserID:    "user-1",
		Score:     85,
		Reason:    "Strong fit",
		Pros:      []string{"Go"},
		Cons:      []string{},
		Status:    "calculated",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM projects WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetProject(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProfileByUserID(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "title", "location", "skills",
		"experience_highlights", "education", "looking_for", "superpower", "others",
		"created_at", "updated_at", "u_id", "u_name", "u_avatar", "u_bio", "u_created_at",
	}).AddRow(
		"prof-1", "user-1", "Engineer", "Shenzhen", pq.Array([]string{"Go", "Postgres"}),
		"built things", "BSc", "cofounder role", "shipping", "",
		now, now, "user-1", "Ada", "", "", now,
	)

	mock.ExpectQuery(`SELECT .+ FROM profiles p JOIN users u`).
		WithArgs("user-1").
		WillReturnRows(rows)

	profile, err := s.GetProfileByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.Title != "Engineer" {
		t.Fatalf("unexpected title: %q", profile.Title)
	}
	if len(profile.Skills) != 2 || profile.Skills[0] != "Go" {
		t.Fatalf("unexpected skills: %v", profile.Skills)
	}
	if profile.User == nil || profile.User.Name != "Ada" {
		t.Fatalf("expected joined user, got %+v", profile.User)
	}
}

func TestSaveProfileGeneratesID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO profiles`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &Profile{UserID: "user-1", Title: "Engineer", Skills: []string{"Go"}}
	if err := s.SaveProfile(context.Background(), profile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID == "" {
		t.Fatalf("expected generated profile id")
	}
}

func TestListChatSessionsCarriesLastMessage(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "target_id", "target_type", "created_at", "updated_at",
		"m_id", "m_role", "m_content", "m_created_at",
	}).
		AddRow("sess-1", "user-1", "proj-1", "project", now, now, "msg-1", "user", "hello", now).
		AddRow("sess-2", "user-1", "user-2", "profile", now, now, nil, nil, nil, nil)

	mock.ExpectQuery(`SELECT .+ FROM chat_sessions cs`).
		WithArgs("user-1").
		WillReturnRows(rows)

	sessions, err := s.ListChatSessions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].LastMessage == nil || sessions[0].LastMessage.Content != "hello" {
		t.Fatalf("expected last message on first session: %+v", sessions[0].LastMessage)
	}
	if sessions[1].LastMessage != nil {
		t.Fatalf("expected no last message on empty session")
	}
}
