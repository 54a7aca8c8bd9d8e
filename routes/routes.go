package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/matchpoint-academy/tournament-engine/handlers"
	"github.com/matchpoint-academy/tournament-engine/middleware"
	"github.com/matchpoint-academy/tournament-engine/models"
)

// SetupRoutes mounts the full API surface. Reads are public; every
// mutation sits behind JWT authentication, with role gates narrowing
// who can reach each group.
func SetupRoutes(
	router *chi.Mux,
	authenticator *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	enrollmentHandler *handlers.EnrollmentHandler,
	sessionHandler *handlers.SessionHandler,
	campusHandler *handlers.CampusHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{id}", tournamentHandler.Get)
		r.Get("/{id}/enrollments", enrollmentHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Authenticate)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(models.RoleAdmin))
				r.Post("/", tournamentHandler.Create)
				r.Put("/{id}/instructor", tournamentHandler.AssignInstructor)
				r.Post("/{id}/rewards/distribute", tournamentHandler.DistributeRewards)
				r.Get("/{id}/rewards/transactions", tournamentHandler.RewardTransactions)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor))
				r.Post("/{id}/status", tournamentHandler.Transition)
				r.Post("/{id}/logo", tournamentHandler.UploadLogo)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleParticipant))
				r.Post("/{id}/enrollments", enrollmentHandler.Enroll)
			})
		})
	})

	router.Route("/enrollments", func(r chi.Router) {
		r.Use(authenticator.Authenticate)
		r.Delete("/{enrollmentID}", enrollmentHandler.Withdraw)
	})

	router.Route("/sessions", func(r chi.Router) {
		r.Use(authenticator.Authenticate)
		r.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor))
		r.Post("/{id}/result", sessionHandler.SubmitResult)
	})

	router.Route("/stages/{stageID}", func(r chi.Router) {
		r.Get("/standings", sessionHandler.StageStandings)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Authenticate)
			r.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor))
			r.Post("/finalize", sessionHandler.FinalizeStage)
		})
	})

	router.Route("/campuses", func(r chi.Router) {
		r.Get("/", campusHandler.List)
		r.Get("/{id}", campusHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Authenticate)
			r.Use(middleware.RequireRoles(models.RoleAdmin))
			r.Post("/", campusHandler.Create)
		})
	})

	router.Get("/ws/tournaments/{id}", webSocketHandler.ServeWs)
}
