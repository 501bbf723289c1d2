package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/tallyapp/tally/docs"
	"github.com/tallyapp/tally/internal/auth"
	"github.com/tallyapp/tally/internal/balance"
	"github.com/tallyapp/tally/internal/config"
	"github.com/tallyapp/tally/internal/database"
	"github.com/tallyapp/tally/internal/expense"
	"github.com/tallyapp/tally/internal/group"
	"github.com/tallyapp/tally/internal/ledger"
	"github.com/tallyapp/tally/internal/metrics"
	"github.com/tallyapp/tally/internal/notification"
	"github.com/tallyapp/tally/internal/report"
	"github.com/tallyapp/tally/internal/settlement"
	"github.com/tallyapp/tally/internal/user"
	"github.com/tallyapp/tally/pkg/logging"
	mw "github.com/tallyapp/tally/pkg/middleware"
)

// @title           Tally API
// @version         1.0
// @description     Shared expense tracker with split strategies, running balances, and debt simplification.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	splitFactory := ledger.NewSplitStrategyFactory()

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, tokens)
	userHandler := user.NewHandler(userService)

	// Group feature
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo)
	groupHandler := group.NewHandler(groupService)

	// Notification feature, also the delivery sink for ledger events
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, slog.Default())
	notificationHandler := notification.NewHandler(notificationService)

	// Expense feature (with split factory injected)
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(expenseRepo, splitFactory, notificationService, slog.Default())
	expenseHandler := expense.NewHandler(expenseService, groupService)

	// Settlement feature
	settlementRepo := settlement.NewRepository(db)
	settlementService := settlement.NewService(settlementRepo, notificationService, slog.Default())
	settlementHandler := settlement.NewHandler(settlementService, groupService)

	// Balance feature
	balanceRepo := balance.NewRepository(db)
	balanceService := balance.NewService(balanceRepo, slog.Default())
	balanceHandler := balance.NewHandler(balanceService, groupService)

	// Report feature
	reportService := report.NewService(groupService, expenseService, balanceService, slog.Default())
	reportHandler := report.NewHandler(reportService)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	authenticate := mw.Authenticate(tokens)

	r.Route("/api/v1", func(r chi.Router) {
		// Registration and login are the only unauthenticated endpoints
		r.Mount("/users", userHandler.Routes(authenticate))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Mount("/groups", groupHandler.Routes())
			r.Mount("/expenses", expenseHandler.Routes())
			r.Mount("/settlements", settlementHandler.Routes())
			r.Mount("/balances", balanceHandler.Routes())
			r.Mount("/notifications", notificationHandler.Routes())
			r.Mount("/reports", reportHandler.Routes())
		})
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	slog.Info("server starting", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
