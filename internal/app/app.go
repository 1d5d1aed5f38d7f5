package app

import (
	"middlemarket-backend/internal/auth"
	"middlemarket-backend/internal/config"
	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/database"
	"middlemarket-backend/internal/disputes"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/health"
	"middlemarket-backend/internal/instructions"
	"middlemarket-backend/internal/listings"
	"middlemarket-backend/internal/middleware"
	"middlemarket-backend/internal/orders"
	"middlemarket-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. Returns the DB and Redis client for startup checks.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	app := BuildRoutes(cfg, db, rdb, sessionHandler, sessionCfg)
	return app, db, rdb, nil
}

// BuildRoutes wires middleware and routes onto a fresh Fiber app. Split from
// CreateApp so tests can inject an in-memory DB and miniredis-backed session.
func BuildRoutes(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sessionHandler fiber.Handler, sessionCfg middleware.SessionConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(sessionHandler)
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	healthHandlers := &health.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", healthHandlers.JSON)

	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{DB: db, UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", authHandlers.Register)
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db == nil {
		return app
	}

	listingsHandlers := &listings.Handlers{Service: &listings.Service{DB: db}}
	listingsGroup := app.Group("/api/v1/listings")
	listingsGroup.Get("/browse", listingsHandlers.Browse)
	listingsGroup.Get("/mine", middleware.RequireAuth(), listingsHandlers.ListMine)
	listingsGroup.Post("/", middleware.RequireAuth(), middleware.AuthorizePermission(constants.CreateListing), listingsHandlers.Create)
	listingsGroup.Get("/:id", listingsHandlers.Get)
	listingsGroup.Put("/:id", middleware.RequireAuth(), middleware.AuthorizePermission(constants.EditListing), listingsHandlers.Update)
	listingsGroup.Post("/:id/pause", middleware.RequireAuth(), middleware.AuthorizePermission(constants.EditListing), listingsHandlers.SetStatus(domain.ListingPaused))
	listingsGroup.Post("/:id/activate", middleware.RequireAuth(), middleware.AuthorizePermission(constants.EditListing), listingsHandlers.SetStatus(domain.ListingActive))
	listingsGroup.Post("/:id/remove", middleware.RequireAuth(), middleware.AuthorizePermission(constants.EditListing), listingsHandlers.SetStatus(domain.ListingRemoved))
	listingsGroup.Post("/:id/disable", middleware.RequireAuth(), middleware.AuthorizePermission(constants.DisableListing), listingsHandlers.SetStatus(domain.ListingDisabledByAdmin))

	ordersHandlers := &orders.Handlers{
		Service:           &orders.Service{DB: db},
		CommissionPercent: cfg.CommissionPercent,
	}
	instructionHandlers := &instructions.Handlers{Service: &instructions.Service{DB: db}}
	disputeHandlers := &disputes.Handlers{Service: &disputes.Service{DB: db}}

	ordersGroup := app.Group("/api/v1/orders", middleware.RequireAuth())
	ordersGroup.Post("/", middleware.AuthorizePermission(constants.PlaceOrder), ordersHandlers.PlaceOrder)
	ordersGroup.Get("/", ordersHandlers.ListOrders)
	ordersGroup.Get("/:id", ordersHandlers.GetOrder)
	ordersGroup.Post("/:id/assign-middleman", middleware.AuthorizePermission(constants.AssignMiddleman), ordersHandlers.AssignMiddleman)
	ordersGroup.Post("/:id/advance", middleware.AuthorizePermission(constants.AdvanceOrder), ordersHandlers.AdvanceOrder)
	ordersGroup.Post("/:id/complete", middleware.AuthorizePermission(constants.CompleteOrder), ordersHandlers.CompleteOrder)
	ordersGroup.Post("/:id/cancel", middleware.AuthorizePermission(constants.CancelOrder), ordersHandlers.CancelOrder)
	ordersGroup.Get("/:id/events", middleware.AuthorizePermission(constants.ViewOrderEvents), ordersHandlers.ListEvents)
	ordersGroup.Post("/:id/instructions", middleware.AuthorizePermission(constants.CreateInstruction), instructionHandlers.Create)
	ordersGroup.Get("/:id/instructions", instructionHandlers.ListForOrder)
	ordersGroup.Post("/:id/dispute", middleware.AuthorizePermission(constants.OpenDispute), disputeHandlers.Open)

	app.Post("/api/v1/instructions/:id/acknowledge", middleware.RequireAuth(), instructionHandlers.Acknowledge)
	app.Post("/api/v1/disputes/:id/resolve", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ResolveDispute), disputeHandlers.Resolve)

	usersHandlers := &users.Handlers{Service: &users.Service{DB: db}}
	usersGroup := app.Group("/api/v1/users", middleware.RequireAuth())
	usersGroup.Patch("/role", middleware.AuthorizePermission(constants.UpdateRole), usersHandlers.UpdateRole)
	usersGroup.Get("/:id", usersHandlers.GetProfile)
	usersGroup.Post("/:id/ban", middleware.AuthorizePermission(constants.BanUser), usersHandlers.SetBanned(true))
	usersGroup.Post("/:id/unban", middleware.AuthorizePermission(constants.BanUser), usersHandlers.SetBanned(false))

	return app
}
