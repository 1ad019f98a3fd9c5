// Package userservice предоставляет маршруты для основного приложения.
package userservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/shopnest/user-service/internal/http/handlers/auth/login"
	"github.com/shopnest/user-service/internal/http/handlers/auth/register"
	"github.com/shopnest/user-service/internal/http/handlers/health"
	resetrequest "github.com/shopnest/user-service/internal/http/handlers/passwordreset/request"
	"github.com/shopnest/user-service/internal/http/handlers/passwordreset/reset"
	"github.com/shopnest/user-service/internal/http/handlers/user/assignrole"
	"github.com/shopnest/user-service/internal/http/handlers/user/changepassword"
	"github.com/shopnest/user-service/internal/http/handlers/user/list"
	"github.com/shopnest/user-service/internal/http/handlers/user/profilepicture"
	"github.com/shopnest/user-service/internal/http/handlers/user/read"
	"github.com/shopnest/user-service/internal/http/handlers/user/remove"
	"github.com/shopnest/user-service/internal/http/handlers/user/update"
	"github.com/shopnest/user-service/internal/http/handlers/verification/send"
	"github.com/shopnest/user-service/internal/http/handlers/verification/verify"
	"github.com/shopnest/user-service/internal/http/middlewarectx"
	customjwt "github.com/shopnest/user-service/internal/lib/jwt"
	userservice "github.com/shopnest/user-service/internal/services/user"
	"github.com/shopnest/user-service/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, service *userservice.UserService, jwtMaker customjwt.Maker, db *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1/users", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, service).ServeHTTP)
		r.Post("/login", login.New(logger, service).ServeHTTP)
		r.Get("/verify-email", verify.New(logger, service).ServeHTTP)
		r.Post("/forgot-password", resetrequest.New(logger, service).ServeHTTP)
		r.Post("/reset-password", reset.New(logger, service).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Get("/{email}", read.New(logger, service).ServeHTTP)
			r.Put("/{uid}", update.New(logger, service).ServeHTTP)
			r.Delete("/{uid}", remove.New(logger, service).ServeHTTP)
			r.Put("/{uid}/password", changepassword.New(logger, service).ServeHTTP)
			r.Put("/{uid}/profile-picture", profilepicture.New(logger, service).ServeHTTP)
			r.Post("/send-verification-email", send.New(logger, service).ServeHTTP)

			// Только для администраторов
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Get("/", list.New(logger, service).ServeHTTP)
				r.Put("/{uid}/role", assignrole.New(logger, service).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
