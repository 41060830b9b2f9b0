package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Punch     PunchHandler
	Break     BreakHandler
	TimeEntry TimeEntryHandler
	Overdue   OverdueHandler
	Overtime  OvertimeHandler
}

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	LogLevel       slog.Level
}

func NewRouter(JWTService jwt.Service, h Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timeclock"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/punches", func(r chi.Router) {
				r.Use(middleware.RequirePermission(identity.PermissionPunchOwn))
				r.Post("/validate", h.Punch.Validate)
				r.Post("/in", h.Punch.PunchIn)
				r.Post("/out", h.Punch.PunchOut)
			})

			r.Route("/time-entries/{id}", func(r chi.Router) {
				r.With(middleware.RequirePermission(identity.PermissionPunchOwn)).Post("/breaks", h.Break.Start)

				// Timecard managers
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionTimecardApprove))
					r.Delete("/", h.TimeEntry.Delete)
					r.Put("/approval", h.TimeEntry.SetApproval)
					r.Get("/approval-audit", h.TimeEntry.ListApprovalAudit)
				})
			})

			r.Route("/breaks/{id}", func(r chi.Router) {
				r.With(middleware.RequirePermission(identity.PermissionPunchOwn)).Post("/end", h.Break.End)
				r.With(middleware.RequirePermission(identity.PermissionTimecardManage)).Delete("/", h.Break.Delete)
			})

			r.Route("/dealerships/{id}", func(r chi.Router) {
				r.Use(middleware.RequirePermission(identity.PermissionTimecardManage))
				r.Get("/overdue-punches", h.Overdue.List)
				r.Post("/overdue-sweep", h.Overdue.Sweep)
			})

			r.Route("/overtime", func(r chi.Router) {
				r.With(middleware.RequirePermission(identity.PermissionOvertimeRecalculate)).Post("/recalculate", h.Overtime.Recalculate)
				r.With(middleware.RequirePermission(identity.PermissionOvertimeBackfill)).Post("/backfill", h.Overtime.Backfill)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	return r
}
