package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/satranslator/translator/internal/model"
)

// response is the {message, data} body every endpoint answers with
type response struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondJSON writes a success envelope
func respondJSON(w http.ResponseWriter, statusCode int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response{Message: message, Data: data})
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// decodeJSON reads the request body into dst, answering 400 on malformed input
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// getClientIP returns the client address. chi's RealIP has already applied proxy headers.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// userResponse is the user object in API responses
type userResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Location      string `json:"location"`
	Bio           string `json:"bio"`
	EmailVerified bool   `json:"email_verified"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Location:      u.Location,
		Bio:           u.Bio,
		EmailVerified: u.Verified(),
	}
}

// sessionResponse is one signed-in device
type sessionResponse struct {
	ID           string    `json:"id"`
	Device       string    `json:"device"`
	DeviceType   string    `json:"device_type"`
	IPAddress    string    `json:"ip_address"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
	Current      bool      `json:"current"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

type chatResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	Messages  []messageResponse `json:"messages"`
}

func toChatResponse(c model.Chat) chatResponse {
	out := chatResponse{
		ID:        c.ID.String(),
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Messages:  make([]messageResponse, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		out.Messages = append(out.Messages, messageResponse{ID: m.ID, Content: m.Content, Sender: m.Sender, CreatedAt: m.CreatedAt})
	}
	return out
}
