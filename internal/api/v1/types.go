package apiv1

// Pong is the ping endpoint response body.
type Pong struct {
	Ping string `json:"ping"`
}
