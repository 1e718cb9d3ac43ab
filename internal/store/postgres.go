package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkbook/inkbook/internal/document"
	"github.com/inkbook/inkbook/internal/history"
)

// Postgres is a Store backed by a pgx connection pool. The schema is created
// by db.Migrate.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) CreateUser(ctx context.Context, u document.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, display_name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Postgres) GetUserByID(ctx context.Context, id string) (*document.User, error) {
	return s.getUser(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`, id)
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*document.User, error) {
	return s.getUser(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *Postgres) getUser(ctx context.Context, query, arg string) (*document.User, error) {
	var u document.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Postgres) CreateNotebook(ctx context.Context, nb document.Notebook, pages []document.Page) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO notebooks (id, title, owner_id, page_count, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		nb.ID, nb.Title, nb.OwnerID, nb.PageCount, nb.CreatedAt, nb.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("create notebook: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range pages {
		stickers, err := marshalStickers(p.Stickers)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO pages (id, notebook_id, idx, drawing, stickers, frozen, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, nb.ID, p.Index, p.Drawing, stickers, p.Frozen, p.UpdatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create pages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit notebook: %w", err)
	}
	return nil
}

func (s *Postgres) GetNotebook(ctx context.Context, id string) (*document.Notebook, error) {
	var nb document.Notebook
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, owner_id, page_count, created_at, updated_at FROM notebooks WHERE id = $1`, id,
	).Scan(&nb.ID, &nb.Title, &nb.OwnerID, &nb.PageCount, &nb.CreatedAt, &nb.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notebook: %w", err)
	}
	return &nb, nil
}

func (s *Postgres) ListNotebooks(ctx context.Context, ownerID string) ([]document.Notebook, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, owner_id, page_count, created_at, updated_at FROM notebooks
		 WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	notebooks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (document.Notebook, error) {
		var nb document.Notebook
		err := row.Scan(&nb.ID, &nb.Title, &nb.OwnerID, &nb.PageCount, &nb.CreatedAt, &nb.UpdatedAt)
		return nb, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan notebooks: %w", err)
	}
	return notebooks, nil
}

func (s *Postgres) RenameNotebook(ctx context.Context, id, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notebooks SET title = $2, updated_at = now() WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("rename notebook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteNotebook(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notebooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notebook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListPages(ctx context.Context, notebookID string) ([]document.Page, error) {
	if _, err := s.GetNotebook(ctx, notebookID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, notebook_id, idx, drawing, stickers, frozen, updated_at FROM pages
		 WHERE notebook_id = $1 ORDER BY idx`, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	pages, err := pgx.CollectRows(rows, scanPage)
	if err != nil {
		return nil, fmt.Errorf("scan pages: %w", err)
	}
	return pages, nil
}

func (s *Postgres) GetPage(ctx context.Context, id string) (*document.Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, notebook_id, idx, drawing, stickers, frozen, updated_at FROM pages WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	return &p, nil
}

func (s *Postgres) SavePage(ctx context.Context, p document.Page) error {
	stickers, err := marshalStickers(p.Stickers)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var notebookID string
	err = tx.QueryRow(ctx,
		`UPDATE pages SET drawing = $2, stickers = $3, frozen = $4, updated_at = now()
		 WHERE id = $1 RETURNING notebook_id`,
		p.ID, p.Drawing, stickers, p.Frozen).Scan(&notebookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("save page: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE notebooks SET updated_at = now() WHERE id = $1`, notebookID); err != nil {
		return fmt.Errorf("touch notebook: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit page: %w", err)
	}
	return nil
}

func scanPage(row pgx.CollectableRow) (document.Page, error) {
	var (
		p        document.Page
		stickers []byte
	)
	if err := row.Scan(&p.ID, &p.NotebookID, &p.Index, &p.Drawing, &stickers, &p.Frozen, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Stickers = []history.Sticker{}
	if len(stickers) > 0 {
		if err := json.Unmarshal(stickers, &p.Stickers); err != nil {
			return p, fmt.Errorf("decode stickers: %w", err)
		}
	}
	return p, nil
}

func marshalStickers(stickers []history.Sticker) ([]byte, error) {
	if stickers == nil {
		stickers = []history.Sticker{}
	}
	data, err := json.Marshal(stickers)
	if err != nil {
		return nil, fmt.Errorf("encode stickers: %w", err)
	}
	return data, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
