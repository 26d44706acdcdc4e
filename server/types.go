package server

type ServerResponse struct {
	Status int
	Body   []byte
}

type PostRequest struct {
	TTL float64 `json:"ttl"` // TTL in seconds
}
