package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

// DocStore implements TeamStore, QuestionStore, and AdminStore on top of
// per-model tables with JSONB data columns. Partial updates go through
// SQLite's jsonb_patch, which gives RFC 7386 merge semantics in a single
// atomic statement — the closest thing to the document store's field-level
// merge contract without multi-statement transactions.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

// --- teams ---

type adminSessionDoc struct {
	ID      string `json:"id"`
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
}

func (s *DocStore) Team(ctx context.Context, id string) (hunt.Team, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM teams WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Team{}, ErrNotFound
	}
	if err != nil {
		return hunt.Team{}, err
	}
	return s.decodeTeam(ctx, data)
}

func (s *DocStore) TeamByEmail(ctx context.Context, email string) (hunt.Team, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM teams WHERE json_extract(data, '$.email') = ?`, email,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		// Fall back to membership in memberEmails.
		err = s.db.QueryRowContext(ctx, `
			SELECT json(t.data) FROM teams t, json_each(t.data, '$.memberEmails') m
			WHERE m.value = ? LIMIT 1
		`, email).Scan(&data)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Team{}, ErrNotFound
	}
	if err != nil {
		return hunt.Team{}, err
	}
	return s.decodeTeam(ctx, data)
}

// decodeTeam unmarshals a team document, backfilling the starting score for
// records created before scoring existed.
func (s *DocStore) decodeTeam(ctx context.Context, data string) (hunt.Team, error) {
	var t hunt.Team
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return hunt.Team{}, fmt.Errorf("decoding team document: %w", err)
	}

	var probe struct {
		Score *int `json:"score"`
	}
	if err := json.Unmarshal([]byte(data), &probe); err == nil && probe.Score == nil {
		if err := s.PatchTeam(ctx, t.ID, hunt.Patch{"score": hunt.StartingScore}); err != nil {
			return hunt.Team{}, fmt.Errorf("initializing team score: %w", err)
		}
		t.Score = hunt.StartingScore
	}
	return t, nil
}

func (s *DocStore) PutTeam(ctx context.Context, t hunt.Team) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO teams (id, data) VALUES (?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		t.ID, string(data),
	)
	return err
}

func (s *DocStore) PatchTeam(ctx context.Context, id string, patch hunt.Patch) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE teams SET data = jsonb_patch(data, ?) WHERE id = ?`,
		string(data), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DocStore) ListTeams(ctx context.Context) ([]hunt.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT json(data) FROM teams
		ORDER BY json_extract(data, '$.score') DESC, json_extract(data, '$.name')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []hunt.Team
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		t, err := s.decodeTeam(ctx, data)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// --- question sets ---

func (s *DocStore) Questions(ctx context.Context, teamID string) ([]hunt.Question, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM question_sets WHERE team_id = ?`, teamID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question set for team %s: %w", teamID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var qs []hunt.Question
	if err := json.Unmarshal([]byte(data), &qs); err != nil {
		return nil, fmt.Errorf("decoding question set: %w", err)
	}
	if len(qs) != hunt.QuestionsPerTeam {
		return nil, fmt.Errorf("question set for team %s has %d entries, want %d",
			teamID, len(qs), hunt.QuestionsPerTeam)
	}
	return qs, nil
}

func (s *DocStore) PutQuestions(ctx context.Context, teamID string, qs []hunt.Question) error {
	if len(qs) != hunt.QuestionsPerTeam {
		return fmt.Errorf("question set has %d entries, want %d", len(qs), hunt.QuestionsPerTeam)
	}
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO question_sets (team_id, data) VALUES (?, jsonb(?))
		 ON CONFLICT(team_id) DO UPDATE SET data = excluded.data`,
		teamID, string(data),
	)
	return err
}

// --- admins ---

func (s *DocStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, json_extract(data, '$.passwordHash') FROM admins WHERE email = ?
	`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return id, hash, nil
}

func (s *DocStore) CreateAdmin(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.NewString()
	doc := map[string]string{"id": id, "email": email, "passwordHash": passwordHash}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO admins (id, email, data) VALUES (?, ?, jsonb(?))`,
		id, email, string(data),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *DocStore) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

func (s *DocStore) CreateAdminSession(ctx context.Context, adminID, email string) (string, error) {
	doc := adminSessionDoc{ID: uuid.NewString(), AdminID: adminID, Email: email}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, data) VALUES (?, jsonb(?))`,
		doc.ID, string(data),
	)
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (s *DocStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *DocStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM admin_sessions WHERE id = ?`, sessionID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, ErrNotFound
	}
	if err != nil {
		return adminSession{}, err
	}

	var doc adminSessionDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return adminSession{}, err
	}
	return adminSession{AdminID: doc.AdminID, Email: doc.Email}, nil
}
