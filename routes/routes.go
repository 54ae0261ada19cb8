package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/car-park/app"
	"github.com/upb/car-park/handlers"
	carparkmw "github.com/upb/car-park/middleware"
	"github.com/upb/car-park/navigation"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(carparkmw.RequestID)
	r.Use(carparkmw.SessionToken)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", carparkmw.HookSecretHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.DB.DB, redisPinger(deps), deps.Logger)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)

	// Pages, each request is one guarded navigation
	navigation.Mount(r, deps.Config.Server.BasePath, deps.Routes, deps.Guard, deps.Logger)

	// Hosted UI flows behind the login and register pages
	r.Route(deps.SitePath("/auth"), func(r chi.Router) {
		r.Get("/login", deps.AuthHandler.HandleLogin)
		r.Get("/register", deps.AuthHandler.HandleRegister)
		r.Get("/callback", deps.AuthHandler.HandleCallback)
		r.Get("/logout", deps.AuthHandler.HandleLogout)
	})

	profiles := handlers.NewProfileHandler(deps.ProfileService, deps.Logger)
	parking := handlers.NewParkingHandler(deps.ParkingService, deps.Logger)
	hooks := handlers.NewHooksHandler(deps.ProfileService, deps.Logger)

	r.Route(deps.SitePath(app.APIPrefix), func(r chi.Router) {
		// Identity provider triggers authenticate with a shared secret
		r.With(deps.AuthMiddleware.RequireHookSecret(deps.Config.Cognito.HookSecret)).
			Post("/hooks/post-confirmation", hooks.HandlePostConfirmation)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.Route("/profile", func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireIDToken)
				r.Get("/", profiles.HandleGetProfile)
				r.Post("/", profiles.HandleCreateProfile)
				r.Put("/", profiles.HandleUpdateProfile)
			})

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireRole(deps.Config.Parking.OperatorGroup))
				r.Post("/detections", parking.HandleDetection)
				r.Post("/plates/lookup", parking.HandlePlateLookup)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

// redisPinger avoids handing the health handler a typed nil client
func redisPinger(deps *app.Dependencies) handlers.RedisPinger {
	if deps.Redis == nil {
		return nil
	}
	return deps.Redis
}
