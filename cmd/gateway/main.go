package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/schoolconnect/schoolconnect-api/internal/announcement"
	api "github.com/schoolconnect/schoolconnect-api/internal/api/http"
	"github.com/schoolconnect/schoolconnect-api/internal/auth"
	"github.com/schoolconnect/schoolconnect-api/internal/config"
	"github.com/schoolconnect/schoolconnect-api/internal/db"
	"github.com/schoolconnect/schoolconnect-api/internal/events"
	"github.com/schoolconnect/schoolconnect-api/internal/genai"
	"github.com/schoolconnect/schoolconnect-api/internal/grading"
	"github.com/schoolconnect/schoolconnect-api/internal/mail"
	"github.com/schoolconnect/schoolconnect-api/internal/quiz"
	"github.com/schoolconnect/schoolconnect-api/internal/rbac"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	evlog := events.NewRepo(dbh)

	quizSvc := quiz.NewService(quiz.NewSQLStore(dbh), grading.NewDefaultGrader(), evlog)

	var mailer mail.Mailer
	if cfg.SendgridKey != "" {
		mailer = mail.NewSendgrid(cfg.SendgridKey, cfg.EmailFromName, cfg.EmailFromAddr)
	} else {
		mailer = mail.NewConsole()
	}
	annSvc := announcement.NewService(
		announcement.NewSQLStore(dbh),
		announcement.NewSQLDirectory(dbh),
		mailer,
		evlog,
		announcement.WithBatch(cfg.EmailBatchSize, cfg.EmailBatchWait),
	)

	var gen genai.Generator
	if cfg.AIAPIKey != "" {
		gen = genai.NewOpenAIGenerator(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Quiz authoring (teacher/admin)
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(quizSvc))
		pr.With(rbac.Require("quiz:generate")).
			Post("/quizzes/generate", api.GenerateQuizHandler(gen, quizSvc))
		pr.With(rbac.Require("quiz:edit-own")).
			Put("/quizzes/{quizID}", api.UpdateQuizHandler(quizSvc))
		pr.With(rbac.Require("quiz:publish")).
			Post("/quizzes/{quizID}/publish", api.PublishQuizHandler(quizSvc))
		pr.With(rbac.Require("quiz:delete-own")).
			Delete("/quizzes/{quizID}", api.DeleteQuizHandler(quizSvc))

		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", api.ListQuizzesHandler(quizSvc))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(quizSvc))

		// Attempt lifecycle (student)
		pr.With(rbac.Require("attempt:create")).
			Post("/quizzes/{quizID}/attempt", api.StartAttemptHandler(quizSvc))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/quizzes/{quizID}/attempt", api.CurrentAttemptHandler(quizSvc))
		pr.With(rbac.Require("attempt:save")).
			Patch("/quiz-attempts/{attemptID}/submit", api.SaveProgressHandler(quizSvc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/quiz-attempts/{attemptID}/submit", api.SubmitAttemptHandler(quizSvc))
		pr.With(rbac.Require("attempt:submit")).
			Delete("/quiz-attempts/{attemptID}", api.AbandonAttemptHandler(quizSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quiz-attempts/{attemptID}", api.GetAttemptHandler(quizSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quiz-attempts", api.ListAttemptsHandler(quizSvc))

		// Announcements
		pr.With(rbac.Require("announcement:create")).
			Post("/announcements", api.CreateAnnouncementHandler(annSvc))
		pr.With(rbac.Require("announcement:publish")).
			Post("/announcements/{announcementID}/publish", api.PublishAnnouncementHandler(annSvc))
		pr.With(rbac.Require("announcement:delete-own")).
			Delete("/announcements/{announcementID}", api.DeleteAnnouncementHandler(annSvc))
		pr.With(rbac.Require("announcement:view")).
			Get("/announcements", api.ListAnnouncementsHandler(annSvc))
		pr.With(rbac.Require("announcement:view")).
			Get("/announcements/{announcementID}", api.GetAnnouncementHandler(annSvc))
		pr.With(rbac.Require("announcement:read")).
			Post("/announcements/{announcementID}/read", api.MarkReadHandler(annSvc))

		// Users (admin, plus self-service password change)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
