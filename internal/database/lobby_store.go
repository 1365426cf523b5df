package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/lobbyhub/internal/lobby"
)

const lobbiesSchema = `
CREATE TABLE IF NOT EXISTS lobbies (
	id           TEXT PRIMARY KEY,
	is_private   BOOLEAN NOT NULL,
	is_started   BOOLEAN NOT NULL,
	player_count INTEGER NOT NULL,
	max_players  INTEGER NOT NULL,
	snapshot     JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// LobbyStore persists lobby snapshots as JSONB rows. The flag columns mirror
// the snapshot so listing queries can filter in SQL.
type LobbyStore struct {
	pool *pgxpool.Pool
}

var _ lobby.StateStore = (*LobbyStore)(nil)

func NewLobbyStore(pool *pgxpool.Pool) *LobbyStore {
	return &LobbyStore{pool: pool}
}

// Migrate creates the lobbies table if it does not exist.
func (s *LobbyStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, lobbiesSchema); err != nil {
		return fmt.Errorf("create lobbies table: %w", err)
	}
	return nil
}

func (s *LobbyStore) SaveLobby(ctx context.Context, l *lobby.Lobby) error {
	data, err := l.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal lobby %s: %w", l.ID(), err)
	}
	q := `
	INSERT INTO lobbies (id, is_private, is_started, player_count, max_players, snapshot, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (id) DO UPDATE SET
		is_private   = EXCLUDED.is_private,
		is_started   = EXCLUDED.is_started,
		player_count = EXCLUDED.player_count,
		max_players  = EXCLUDED.max_players,
		snapshot     = EXCLUDED.snapshot,
		updated_at   = now()
	`
	_, err = s.pool.Exec(ctx, q, l.ID(), l.IsPrivate(), l.IsStarted(), l.PlayerCount(), l.MaxPlayers(), data)
	if err != nil {
		return fmt.Errorf("save lobby %s: %w", l.ID(), err)
	}
	return nil
}

func (s *LobbyStore) GetLobby(ctx context.Context, id string) (*lobby.Lobby, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM lobbies WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lobby %s: %w", id, err)
	}
	return lobby.Decode(data)
}

func (s *LobbyStore) DeleteLobby(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM lobbies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lobby %s: %w", id, err)
	}
	return nil
}

func (s *LobbyStore) LobbyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM lobbies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list lobby ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan lobby ids: %w", err)
	}
	return ids, nil
}

func (s *LobbyStore) LobbyExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lobbies WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check lobby %s: %w", id, err)
	}
	return exists, nil
}

func (s *LobbyStore) Lobbies(ctx context.Context, f lobby.Filter) ([]*lobby.Lobby, error) {
	q, args := filterQuery(f)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list lobbies: %w", err)
	}
	snapshots, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan lobbies: %w", err)
	}

	out := make([]*lobby.Lobby, 0, len(snapshots))
	for _, data := range snapshots {
		l, err := lobby.Decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// filterQuery renders f as a parameterized SELECT over the flag columns.
func filterQuery(f lobby.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.IsPrivate != nil {
		args = append(args, *f.IsPrivate)
		where = append(where, fmt.Sprintf("is_private = $%d", len(args)))
	}
	if f.IsFull != nil {
		if *f.IsFull {
			where = append(where, "player_count >= max_players")
		} else {
			where = append(where, "player_count < max_players")
		}
	}
	if f.IsStarted != nil {
		args = append(args, *f.IsStarted)
		where = append(where, fmt.Sprintf("is_started = $%d", len(args)))
	}

	q := `SELECT snapshot FROM lobbies`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	return q + ` ORDER BY id`, args
}
