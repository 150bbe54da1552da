package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                 - Health check")
	fmt.Println("  GET  /stats                  - Server statistics")
	fmt.Println("  POST /api/v1/analyze         - Submit a resume (multipart or JSON)")
	fmt.Println("  GET  /api/v1/report          - Session status and report")
	fmt.Println("  POST /api/v1/unlock          - Unlock the full report")
	fmt.Println("  POST /api/v1/reset           - Clear the session")
	fmt.Println("  GET  /api/v1/export/{kind}   - Download pdf or docx")
	fmt.Println("  POST /api/v1/prepdeck        - Generate the interview prep deck")
	fmt.Println("  POST /api/v1/chat            - Career assistant")
	fmt.Println("  GET  /api/v1/history         - Stored analyses")
	fmt.Println("  GET  /api/v1/plans           - Pricing plans")
	fmt.Println("Select the user with the 'X-User-Email' header on /api/v1 requests")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in /api/v1 requests")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Document size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
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
