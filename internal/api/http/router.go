package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/itembased/examdesk/internal/auth"
	authmw "github.com/itembased/examdesk/internal/auth/middleware"
	"github.com/itembased/examdesk/internal/config"
	"github.com/itembased/examdesk/internal/exam"
	"github.com/itembased/examdesk/internal/rbac"
	"github.com/itembased/examdesk/internal/runner"
	"github.com/itembased/examdesk/internal/storage"
	syncx "github.com/itembased/examdesk/internal/sync"
)

type Deps struct {
	Cfg     config.Config
	DB      *sql.DB
	Store   exam.Store
	Blobs   storage.BlobStore
	Events  *syncx.EventRepo
	Runs    *runner.Registry
	AuthSvc *authmw.AuthService
	Flow    *auth.Flow
	Gate    *auth.Gate
	Google  *auth.GoogleSignIn // nil disables social sign-in

	// Keep the token role when the profile lookup errors. Dev only.
	AllowClaimFallback bool
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Cfg
	secure := strings.HasPrefix(cfg.PublicURL, "https://")

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/signup", SignupHandler(d.Flow, secure))
		ar.Post("/login", LoginHandler(d.Flow, secure))
		ar.Post("/logout", LogoutHandler(secure))
		if d.Google != nil {
			ar.Get("/google/login", d.Google.LoginHandler())
			ar.Get("/google/callback", d.Google.CallbackHandler())
		}
		// needs an identity, not a profile
		ar.With(authmw.JWTMiddleware(d.AuthSvc)).
			Post("/profile", CompleteProfileHandler(d.Flow, secure))
	})

	r.With(authmw.OptionalJWT(d.AuthSvc)).Get("/session", SessionHandler(d.Gate))

	r.Route("/assets", func(ar chi.Router) {
		MountAssets(ar, d.Blobs)
	})

	// Protected API (JWT → role from profile → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.AuthSvc))
		pr.Use(authmw.AttachRoleFromDB(d.DB, d.AllowClaimFallback))

		pr.With(rbac.Require("question:create")).
			Post("/questions", CreateQuestionHandler(d.Store, d.Blobs, d.Events, cfg.MaxUploadBytes))
		pr.With(rbac.Require("question:list")).
			Get("/questions", ListQuestionsHandler(d.Store))

		pr.With(rbac.Require("exam:create")).
			Post("/exams", CreateExamHandler(d.Store, d.Events))
		pr.With(rbac.Require("exam:view")).
			Get("/exams", ListExamsHandler(d.Store))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", GetExamHandler(d.Store))

		pr.With(rbac.Require("run:create")).
			Post("/runs", StartRunHandler(d.Store, d.Runs))
		pr.With(rbac.Require("run:view")).
			Get("/runs/{runID}", GetRunHandler(d.Runs))
		pr.With(rbac.Require("run:view")).
			Post("/runs/{runID}/events", RunEventHandler(d.Store, d.Runs, d.Events))

		pr.With(rbac.Require("events:read")).
			Get("/events", ListEventsHandler(d.Events))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	if cfg.StaticDir != "" {
		fs := http.StripPrefix(cfg.BasePath, http.FileServer(http.Dir(cfg.StaticDir)))
		r.Handle(cfg.BasePath+"*", fs)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, cfg.Page("index.html"), http.StatusFound)
		})
	}
	return r
}
