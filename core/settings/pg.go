package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"wabot/core/logger"
)

// PG is the Postgres-backed store.
type PG struct {
	db *sqlx.DB
}

// NewPG returns a store backed by the given connection pool.
func NewPG(db *sqlx.DB) *PG {
	return &PG{db: db}
}

var _ Store = (*PG)(nil)

func (p *PG) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.GetContext(ctx, &value,
		`SELECT value FROM settings WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("settings get %q: %w", key, err)
	}
	return value, true, nil
}

func (p *PG) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("settings set %q: %w", key, err)
	}
	logger.SET.Debug("setting stored",
		slog.String("event", "settings.set"),
		slog.String("target", key),
	)
	return nil
}

func (p *PG) GetChat(ctx context.Context, chatID, key string, out any) (bool, error) {
	var raw []byte
	err := p.db.GetContext(ctx, &raw,
		`SELECT value FROM chat_settings WHERE chat_id = $1 AND key = $2`,
		chatID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("chat settings get %s/%q: %w", chatID, key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("chat settings decode %s/%q: %w", chatID, key, err)
	}
	return true, nil
}

func (p *PG) SetChat(ctx context.Context, chatID, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("chat settings encode %s/%q: %w", chatID, key, err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO chat_settings (chat_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (chat_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		chatID, key, raw)
	if err != nil {
		return fmt.Errorf("chat settings set %s/%q: %w", chatID, key, err)
	}
	logger.SET.Debug("chat setting stored",
		slog.String("event", "settings.set"),
		slog.String("chat_id", chatID),
		slog.String("target", key),
	)
	return nil
}
