package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	// Verification is reached from email links, so it carries no credential.
	s.echo.GET("/verify-email", s.verifyEmail)
	s.echo.POST("/verify-email", s.verifyEmail)

	protected := s.echo.Group("", s.middleware.Auth.RequireServiceToken())
	protected.POST("/send-verification-email", s.sendVerificationEmail)
	protected.POST("/resend-verification", s.resendVerification)
	protected.POST("/send-welcome-email", s.sendWelcomeEmail)
}
