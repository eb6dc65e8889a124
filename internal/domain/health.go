package domain

// ============================================================
// Health, Metrics & Auth API types
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// LedgerMetrics is returned by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	DonationsCreated    map[string]float64 `json:"donationsCreated"`
	StatusTransitions   map[string]float64 `json:"statusTransitions"`
	CompletedAmount     float64            `json:"completedAmount"`
	StoreErrors         float64            `json:"storeErrors"`
	Exports             map[string]float64 `json:"exports"`
	ReportCacheHitRate  float64            `json:"reportCacheHitRate"`
	ReportCacheRequests float64            `json:"reportCacheRequests"`
}

// TokenRequest is the body of POST /v1/auth/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /v1/auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
