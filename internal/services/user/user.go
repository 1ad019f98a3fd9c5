// Package services содержит логику бизнес-уровня жизненного цикла учётных
// записей: регистрация, аутентификация, смена учётных данных и процессы
// подтверждения почты и сброса пароля по одноразовым токенам.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shopnest/user-service/internal/lib/jwt"
	"github.com/shopnest/user-service/internal/lib/password"
	"github.com/shopnest/user-service/internal/lib/sl"
	"github.com/shopnest/user-service/internal/models"
	"github.com/shopnest/user-service/internal/storage/repository"
)

// resetTokenTTL — срок действия токена сброса пароля.
const resetTokenTTL = time.Hour

// Токен подтверждения почты срока действия не имеет: действует до погашения
// или перезаписи следующим запросом.

// UserRepository описывает контракт для работы с учётными записями в хранилище.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает запись с присвоенным uid.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// GetUserByEmail возвращает пользователя по email или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByUID возвращает пользователя по uid.
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	// GetUserByResetToken возвращает пользователя по токену сброса пароля.
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
	// GetUserByVerificationToken возвращает пользователя по токену подтверждения почты.
	GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error)
	// ListUsers возвращает всех пользователей.
	ListUsers(ctx context.Context) ([]*models.User, error)
	// UpdateUserProfile обновляет email и хэш пароля.
	UpdateUserProfile(ctx context.Context, uid, email, passwordHash string) (*models.User, error)
	// UpdatePassword сохраняет новый хэш пароля.
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
	// UpdateRole назначает роль и возвращает обновлённую запись.
	UpdateRole(ctx context.Context, uid, role string) (*models.User, error)
	// UpdateProfilePicture сохраняет ссылку на аватар.
	UpdateProfilePicture(ctx context.Context, uid, pictureURL string) error
	// DeleteUser удаляет пользователя по uid.
	DeleteUser(ctx context.Context, uid string) error
	// SetVerificationToken записывает токен подтверждения почты.
	SetVerificationToken(ctx context.Context, uid, token string) error
	// ConsumeVerificationToken атомарно подтверждает почту и гасит токен.
	ConsumeVerificationToken(ctx context.Context, token string) error
	// SetResetToken записывает токен сброса и срок его действия.
	SetResetToken(ctx context.Context, uid, token string, expiresAt time.Time) error
	// ConsumeResetToken атомарно меняет хэш пароля и гасит токен сброса.
	ConsumeResetToken(ctx context.Context, token, passwordHash string) error
}

// Notifier публикует уведомление для внеполосной доставки письма.
type Notifier interface {
	Notify(ctx context.Context, notification models.EmailNotification) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// UserService реализует жизненный цикл учётных данных. Все зависимости
// передаются через конструктор, состояние между вызовами живет только
// в хранилище.
type UserService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	notifier Notifier
	cache    Cache
	log      *slog.Logger
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(users UserRepository, jwtMaker jwt.Maker, notifier Notifier, cache Cache, log *slog.Logger) *UserService {
	return &UserService{
		users:    users,
		jwtMaker: jwtMaker,
		notifier: notifier,
		cache:    cache,
		log:      log,
	}
}

func cacheKeyByEmail(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

// Register создает нового пользователя с хэшированием пароля и дефолтной ролью "user".
// Уникальность email контролирует хранилище, нарушение возвращается как
// repository.ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, email, rawPassword string) (*models.User, error) {
	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleUser, // дефолтная роль при регистрации
		Verified:     false,
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info("registered new user", slog.String("uid", created.UID))
	return created, nil
}

// Login проверяет пароль пользователя и выпускает токен сессии.
// Неизвестный email и неверный пароль дают одинаковую ошибку
// ErrInvalidCredentials, чтобы не раскрывать существование учётной записи.
func (s *UserService) Login(ctx context.Context, email, rawPassword string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := password.Verify(user.PasswordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.Email, user.Role, user.UID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// FindByEmail возвращает пользователя по email, используя кеш или хранилище.
// В кеш попадает только публичное представление записи, хэш пароля и токены
// сериализацией отбрасываются.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var cached *models.User
	cacheKey := cacheKeyByEmail(email)
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read user from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, user, time.Hour); err != nil {
		s.log.Warn("failed to cache user", slog.String("key", cacheKey), sl.Err(err))
	}
	return user, nil
}

// ListUsers возвращает все учётные записи.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.ListUsers(ctx)
}

// UpdateProfile обновляет email и пароль пользователя.
// Пароль перехэшируется безусловно, даже если вызывающий менял только email —
// известная особенность API, сохранена намеренно.
func (s *UserService) UpdateProfile(ctx context.Context, uid, email, rawPassword string) (*models.User, error) {
	existing, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return nil, err
	}
	updated, err := s.users.UpdateUserProfile(ctx, uid, email, hashed)
	if err != nil {
		return nil, err
	}

	s.invalidateUserCache(existing.Email)
	if updated.Email != existing.Email {
		s.invalidateUserCache(updated.Email)
	}
	return updated, nil
}

// ChangePassword хэширует и сохраняет новый пароль пользователя.
// Подтверждение старого пароля не запрашивается, доступ к операции
// ограничивает транспортный уровень.
func (s *UserService) ChangePassword(ctx context.Context, uid, rawPassword string) error {
	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, uid, hashed)
}

// AssignRole назначает пользователю роль как есть, без проверки по списку.
// Контроль допустимых ролей — забота транспортного уровня.
func (s *UserService) AssignRole(ctx context.Context, uid, role string) (*models.User, error) {
	updated, err := s.users.UpdateRole(ctx, uid, role)
	if err != nil {
		return nil, err
	}
	s.invalidateUserCache(updated.Email)
	return updated, nil
}

// UpdateProfilePicture сохраняет ссылку на аватар, не трогая остальные поля.
func (s *UserService) UpdateProfilePicture(ctx context.Context, uid, pictureURL string) error {
	existing, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.users.UpdateProfilePicture(ctx, uid, pictureURL); err != nil {
		return err
	}
	s.invalidateUserCache(existing.Email)
	return nil
}

// DeleteAccount удаляет учётную запись по uid.
func (s *UserService) DeleteAccount(ctx context.Context, uid string) error {
	existing, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, uid); err != nil {
		return err
	}
	s.invalidateUserCache(existing.Email)
	s.log.Info("deleted user", slog.String("uid", uid))
	return nil
}

// SendVerificationEmail выдает новый токен подтверждения почты и публикует
// уведомление. Повторный вызов перезаписывает предыдущий токен, поэтому
// операция идемпотентна для ретраев. Ошибка доставки после сохранения токена
// логируется, но операцию не отменяет: токен уже действителен.
func (s *UserService) SendVerificationEmail(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := s.users.SetVerificationToken(ctx, user.UID, token); err != nil {
		return err
	}

	notification := models.EmailNotification{
		Email: user.Email,
		Kind:  models.NotificationVerification,
		Token: token,
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.log.Warn("failed to publish verification notification", slog.String("email", user.Email), sl.Err(err))
	}
	return nil
}

// VerifyEmail подтверждает почту по токену и гасит его. Токен одноразовый:
// повторное предъявление после успеха возвращает ErrInvalidToken.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if err := s.users.ConsumeVerificationToken(ctx, token); err != nil {
		// Конкурирующий вызов успел погасить токен первым.
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	s.invalidateUserCache(user.Email)
	s.log.Info("email verified", slog.String("uid", user.UID))
	return nil
}

// RequestPasswordReset выдает токен сброса пароля со сроком действия один час
// и публикует уведомление. Повторный запрос перекрывает предыдущий токен:
// действует только последний выданный.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.UID, token, expiresAt); err != nil {
		return err
	}

	notification := models.EmailNotification{
		Email: user.Email,
		Kind:  models.NotificationPasswordReset,
		Token: token,
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.log.Warn("failed to publish password reset notification", slog.String("email", user.Email), sl.Err(err))
	}
	return nil
}

// ResetPassword устанавливает новый пароль по действующему токену сброса.
// Просроченный токен дает ErrTokenExpired и остается в записи до перезаписи
// новым запросом. Погашение условное по значению токена, поэтому из двух
// конкурирующих вызовов с одним токеном успешен ровно один.
func (s *UserService) ResetPassword(ctx context.Context, token, rawPassword string) error {
	user, err := s.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if user.PasswordResetExpiresAt == nil || !time.Now().UTC().Before(*user.PasswordResetExpiresAt) {
		return ErrTokenExpired
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return err
	}
	if err := s.users.ConsumeResetToken(ctx, token, hashed); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	s.invalidateUserCache(user.Email)
	s.log.Info("password reset completed", slog.String("uid", user.UID))
	return nil
}

func (s *UserService) invalidateUserCache(email string) {
	cacheKey := cacheKeyByEmail(email)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate user cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
