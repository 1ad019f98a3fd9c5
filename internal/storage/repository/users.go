package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopnest/user-service/internal/models"
)

const userColumns = `uid, email, password_hash, role, verified,
			      email_verification_token, password_reset_token,
			      password_reset_expires_at, profile_picture_url, created_at`

// scanUser читает строку пользователя, разворачивая nullable-колонки в указатели.
func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	u := &models.User{}
	var verificationToken, resetToken, pictureURL sql.NullString
	var resetExpiresAt sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.PasswordHash, &u.Role, &u.Verified,
		&verificationToken, &resetToken, &resetExpiresAt, &pictureURL, &u.CreatedAt); err != nil {
		return nil, err
	}
	if verificationToken.Valid {
		u.EmailVerificationToken = &verificationToken.String
	}
	if resetToken.Valid {
		u.PasswordResetToken = &resetToken.String
	}
	if resetExpiresAt.Valid {
		u.PasswordResetExpiresAt = &resetExpiresAt.Time
	}
	if pictureURL.Valid {
		u.ProfilePictureURL = &pictureURL.String
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает запись с присвоенным uid.
// Нарушение уникальности email возвращается как ErrEmailTaken.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (email, password_hash, role, verified)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + userColumns
	row := s.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Role, user.Verified)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByUID возвращает пользователя по его uid.
func (s *Storage) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByVerificationToken возвращает пользователя по токену подтверждения почты.
func (s *Storage) GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.GetUserByVerificationToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email_verification_token = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByResetToken возвращает пользователя по токену сброса пароля.
func (s *Storage) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.GetUserByResetToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE password_reset_token = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей в порядке создания.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateUserProfile обновляет email и хэш пароля пользователя и возвращает запись.
func (s *Storage) UpdateUserProfile(ctx context.Context, uid, email, passwordHash string) (*models.User, error) {
	const op = "storage.UpdateUserProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET email = $1, password_hash = $2
			  WHERE uid = $3
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email, passwordHash, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdatePassword сохраняет новый хэш пароля пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET password_hash = $1 WHERE uid = $2`
	commandTag, err := s.DB.ExecContext(ctx, query, passwordHash, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, _ := commandTag.RowsAffected(); affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// UpdateRole назначает пользователю роль и возвращает обновлённую запись.
func (s *Storage) UpdateRole(ctx context.Context, uid, role string) (*models.User, error) {
	const op = "storage.UpdateRole"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET role = $1 WHERE uid = $2 RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, role, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateProfilePicture сохраняет ссылку на аватар пользователя.
func (s *Storage) UpdateProfilePicture(ctx context.Context, uid, pictureURL string) error {
	const op = "storage.UpdateProfilePicture"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET profile_picture_url = $1 WHERE uid = $2`
	commandTag, err := s.DB.ExecContext(ctx, query, pictureURL, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, _ := commandTag.RowsAffected(); affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// DeleteUser удаляет пользователя по uid.
func (s *Storage) DeleteUser(ctx context.Context, uid string) error {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM users WHERE uid = $1`
	commandTag, err := s.DB.ExecContext(ctx, query, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, _ := commandTag.RowsAffected(); affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// SetVerificationToken записывает токен подтверждения почты.
// Повторный вызов перезаписывает ранее выданный токен.
func (s *Storage) SetVerificationToken(ctx context.Context, uid, token string) error {
	const op = "storage.SetVerificationToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET email_verification_token = $1 WHERE uid = $2`
	commandTag, err := s.DB.ExecContext(ctx, query, token, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, _ := commandTag.RowsAffected(); affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ConsumeVerificationToken атомарно подтверждает почту и гасит токен.
// Условие по значению токена гарантирует одноразовость: из двух гонящихся
// вызовов с одним токеном обновление выполнит только один, второй получит
// ErrUserNotFound.
func (s *Storage) ConsumeVerificationToken(ctx context.Context, token string) error {
	const op = "storage.ConsumeVerificationToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET verified = true, email_verification_token = NULL
			  WHERE email_verification_token = $1`
	commandTag, err := s.DB.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, _ := commandTag.RowsAffected(); affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// SetResetToken записывает токен сброса пароля и срок его действия.
// Оба поля пишутся одним запросом, новый запрос перекрывает предыдущий токен.
func (s *Storage) SetResetToken(ctx context.Context, uid, token string, expiresAt time.Time) error {
	const op = "storage.SetResetToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_reset_token = $1, password_reset_expires_at = $2
			  WHERE uid = $3`
	commandTag, err := s.DB.ExecContext(ctx, query, token, expiresAt, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, _ := commandTag.RowsAffected(); affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ConsumeResetToken атомарно устанавливает новый хэш пароля и гасит токен
// сброса вместе со сроком действия. Условие по значению токена дает
// одноразовость при конкурентных вызовах.
func (s *Storage) ConsumeResetToken(ctx context.Context, token, passwordHash string) error {
	const op = "storage.ConsumeResetToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_hash = $1,
			      password_reset_token = NULL,
			      password_reset_expires_at = NULL
			  WHERE password_reset_token = $2`
	commandTag, err := s.DB.ExecContext(ctx, query, passwordHash, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, _ := commandTag.RowsAffected(); affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
