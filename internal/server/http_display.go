package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	endpoints := []struct {
		method, path, desc string
	}{
		{"GET", "/health", "Health check"},
		{"GET", "/stats", "Server statistics"},
		{"POST", "/sessions", "Create interview session"},
		{"GET", "/sessions/{id}", "Session state"},
		{"DELETE", "/sessions/{id}", "Delete session"},
		{"POST", "/sessions/{id}/resume", "Upload and parse resume"},
		{"POST", "/sessions/{id}/questions", "Generate interview questions"},
		{"POST", "/sessions/{id}/start", "Start the interview"},
		{"POST", "/sessions/{id}/answer", "Submit a recorded answer"},
		{"POST", "/sessions/{id}/next", "Advance to the next question"},
		{"POST", "/sessions/{id}/restart", "Reset the session"},
		{"GET", "/sessions/{id}/summary", "Interview report"},
	}

	fmt.Println("Available endpoints:")
	for _, e := range endpoints {
		fmt.Printf("  %-6s %-25s - %s\n", e.method, e.path, e.desc)
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /sessions endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
