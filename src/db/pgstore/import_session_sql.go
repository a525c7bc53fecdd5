package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"famledger-server/src/importer"
	"famledger-server/src/models"
)

// SessionStore keeps import sessions in the import_sessions table so they survive a
// restart and are shared between server processes.
type SessionStore struct {
	q DBTX
}

func NewSessionStore(q DBTX) *SessionStore {
	return &SessionStore{q: q}
}

func (s *SessionStore) Save(ctx context.Context, key string, session *models.ImportSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	query := `
		INSERT INTO import_sessions (session_key, payload, expires_at, updated_at)
		VALUES ($1, $2::jsonb, $3, NOW())
		ON CONFLICT (session_key) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, updated_at = NOW()
	`
	_, err = s.q.Exec(ctx, query, key, string(payload), time.Now().Add(ttl))
	return err
}

func (s *SessionStore) Load(ctx context.Context, key string) (*models.ImportSession, error) {
	var payload string
	query := `SELECT payload::text FROM import_sessions WHERE session_key = $1 AND expires_at > NOW()`
	if err := s.q.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		return nil, mapError(err)
	}
	var session models.ImportSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM import_sessions WHERE session_key = $1`, key)
	return err
}

// PurgeExpired removes sessions past their expiry and reports how many went.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	cmd, err := s.q.Exec(ctx, `DELETE FROM import_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

var _ importer.SessionStore = (*SessionStore)(nil)
