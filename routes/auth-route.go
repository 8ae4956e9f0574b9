package routes

import (
	"net/http"

	"marketplace-auth/config"
	"marketplace-auth/handlers"
	"marketplace-auth/middleware"
	"marketplace-auth/models"

	"github.com/gorilla/mux"
)

func SetupRoutes(cfg config.Config, authHandler *handlers.AuthHandler, profileHandler *handlers.ProfileHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger)

	router.HandleFunc("/signup", middleware.ErrorHandler(authHandler.RegisterHandler)).Methods("POST")
	router.HandleFunc("/login", middleware.ErrorHandler(authHandler.LoginHandler)).Methods("POST")
	router.HandleFunc("/login/{provider}", middleware.ErrorHandler(authHandler.ProviderLoginHandler)).Methods("POST")
	router.HandleFunc("/logout", middleware.ErrorHandler(authHandler.LogoutHandler)).Methods("POST")
	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	session := middleware.SessionMiddleware(cfg)
	photographerOnly := middleware.UserTypeMiddleware([]string{models.UserTypePhotographer})

	router.Handle("/users/me",
		session(http.HandlerFunc(middleware.ErrorHandler(profileHandler.MeHandler)))).Methods("GET")
	router.Handle("/users/me/display-picture",
		session(photographerOnly(http.HandlerFunc(middleware.ErrorHandler(profileHandler.UpdateDisplayPictureHandler))))).Methods("PATCH")
	router.Handle("/photographers/me/portfolio",
		session(photographerOnly(http.HandlerFunc(middleware.ErrorHandler(profileHandler.UpdatePortfolioHandler))))).Methods("PUT")
	router.Handle("/photographers/me/portfolio/photos",
		session(photographerOnly(http.HandlerFunc(middleware.ErrorHandler(profileHandler.DeletePortfolioPhotosHandler))))).Methods("DELETE")

	return router
}
