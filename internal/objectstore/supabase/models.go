package supabase

// signRequest is the body of a signed URL request.
type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

type removeRequest struct {
	Prefixes []string `json:"prefixes"`
}

// apiError is the error body returned by the storage API.
type apiError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
