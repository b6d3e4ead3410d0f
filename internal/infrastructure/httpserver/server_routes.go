package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	api.POST("/email-verification-requests", s.requestEmailVerification)
	api.POST("/email-verifications", s.redeemEmailVerification)
	api.POST("/password-reset-requests", s.requestPasswordReset)
	api.POST("/password-resets", s.redeemPasswordReset)

	auth := api.Group("/auth")
	auth.POST("/login", s.login)

	identities := api.Group("/identities")
	identities.Use(s.middleware.JWT.RequireJWT())
	identities.GET("/me", s.getOwnIdentity)
}
