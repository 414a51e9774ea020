package models

// JobRequest is the payload for POST /api/v1/jobs.
type JobRequest struct {
	SearchRequest

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// JobResponse is the immediate response for POST /api/v1/jobs.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobStatusResponse is the response for GET /api/v1/jobs/:id.
type JobStatusResponse struct {
	ID     string        `json:"id"`
	Status string        `json:"status"`
	Result *SearchResult `json:"result,omitempty"`
	Error  *ErrorDetail  `json:"error,omitempty"`
}

// SearchJob tracks an in-progress asynchronous search.
type SearchJob struct {
	ID            string
	Status        string // "processing", "completed", "failed"
	Result        *SearchResult
	Error         *ErrorDetail
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}
