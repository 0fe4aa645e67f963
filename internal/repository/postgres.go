package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladyslavplus/orderly/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ TokenRepository   = (*PostgresTokenRepo)(nil)
	_ ProductRepository = (*PostgresProductRepo)(nil)
)

// IsUniqueViolation reports whether err is a duplicate-key failure, used by
// services to produce AlreadyExists without racing a prior existence check.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const userColumns = `id, user_name, email, password_hash, phone, roles, created_at, updated_at`

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (id, user_name, email, password_hash, phone, roles)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		user.ID, user.UserName, user.Email, user.PasswordHash, user.Phone, user.Roles,
	)
	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE users
		 SET user_name = $2, email = $3, password_hash = $4, phone = $5, roles = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		user.ID, user.UserName, user.Email, user.PasswordHash, user.Phone, user.Roles,
	)
	updated, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (r *PostgresUserRepo) Delete(ctx context.Context, userID int64) error {
	// refresh_tokens carries ON DELETE CASCADE on user_id.
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete user: %w", pgx.ErrNoRows)
	}
	return nil
}

// PostgresTokenRepo implements TokenRepository on pgx.
type PostgresTokenRepo struct {
	db *pgxpool.Pool
}

func NewPostgresTokenRepo(pool *pgxpool.Pool) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: pool}
}

const tokenColumns = `id, user_id, token, expires_at, revoked, revoked_at, created_at`

func (r *PostgresTokenRepo) GetByToken(ctx context.Context, token string) (domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE token = $1`, token)
	found, err := scanToken(row)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("get refresh token: %w", err)
	}
	return found, nil
}

func (r *PostgresTokenRepo) Insert(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+tokenColumns,
		token.ID, token.UserID, token.Token, token.ExpiresAt,
	)
	created, err := scanToken(row)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("insert refresh token: %w", err)
	}
	return created, nil
}

const revokeIfActiveSQL = `UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = now()
WHERE id = $1 AND revoked = FALSE`

// RevokeIfActive is the conditional write the rotation contract depends on:
// of two racing callers exactly one sees RowsAffected == 1.
func (r *PostgresTokenRepo) RevokeIfActive(ctx context.Context, tokenID int64) error {
	tag, err := r.db.Exec(ctx, revokeIfActiveSQL, tokenID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("revoke refresh token: %w", ErrNotUpdated)
	}
	return nil
}

// Rotate revokes the old token and inserts its descendant in one
// transaction. No observer sees one without the other.
func (r *PostgresTokenRepo) Rotate(ctx context.Context, oldID int64, next domain.RefreshToken) (domain.RefreshToken, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("begin rotate: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, revokeIfActiveSQL, oldID)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("rotate revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.RefreshToken{}, fmt.Errorf("rotate revoke: %w", ErrNotUpdated)
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+tokenColumns,
		next.ID, next.UserID, next.Token, next.ExpiresAt,
	)
	created, err := scanToken(row)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("rotate insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.RefreshToken{}, fmt.Errorf("commit rotate: %w", err)
	}
	return created, nil
}

// DeleteByUser removes every refresh token owned by the user. The FK on
// user_id cascades on user deletion too; this is the explicit path so the
// contract holds regardless of store schema.
func (r *PostgresTokenRepo) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete tokens by user: %w", err)
	}
	return nil
}

// PostgresProductRepo implements ProductRepository on pgx.
type PostgresProductRepo struct {
	db *pgxpool.Pool
}

func NewPostgresProductRepo(pool *pgxpool.Pool) *PostgresProductRepo {
	return &PostgresProductRepo{db: pool}
}

const productColumns = `id, name, description, price, quantity, category, rating, created_at, updated_at`

func (r *PostgresProductRepo) GetByID(ctx context.Context, productID int64) (domain.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
	product, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

func (r *PostgresProductRepo) GetByName(ctx context.Context, name string) (domain.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
	product, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product by name: %w", err)
	}
	return product, nil
}

func (r *PostgresProductRepo) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO products (id, name, description, price, quantity, category, rating)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Price, product.Quantity, product.Category, product.Rating,
	)
	created, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (r *PostgresProductRepo) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, quantity = $5, category = $6, rating = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Price, product.Quantity, product.Category, product.Rating,
	)
	updated, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (r *PostgresProductRepo) Delete(ctx context.Context, productID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete product: %w", pgx.ErrNoRows)
	}
	return nil
}

// ApplyDeltas applies every adjustment inside one transaction. GREATEST keeps
// quantities non-negative even when an order over-subtracts available stock.
func (r *PostgresProductRepo) ApplyDeltas(ctx context.Context, deltas []InventoryDelta) ([]int64, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin adjust: %w", err)
	}
	defer tx.Rollback(ctx)

	var missing []int64
	for _, d := range deltas {
		tag, err := tx.Exec(ctx,
			`UPDATE products
			 SET quantity = GREATEST(0, quantity + $2), updated_at = now()
			 WHERE id = $1`,
			d.ProductID, d.Delta,
		)
		if err != nil {
			return nil, fmt.Errorf("adjust product %d: %w", d.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			missing = append(missing, d.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit adjust: %w", err)
	}
	return missing, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func scanToken(row pgx.Row) (domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.Revoked,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	return token, err
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Quantity,
		&product.Category,
		&product.Rating,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	return product, err
}
