// Package stub is a small upstream API for the timeout and retry demos.
package stub

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpserver "aws-sqs-http-gateway/internal/pkg/http"
)

type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
}

type Echo struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Args    map[string][]string `json:"args"`
	Headers map[string]string   `json:"headers"`
	Body    string              `json:"body,omitempty"`
}

var users = []User{
	{ID: 1, Name: "Leanne Graham"},
	{ID: 2, Name: "Ervin Howell"},
}

var posts = []Post{
	{ID: 1, UserID: 1, Title: "sunt aut facere repellat provident"},
	{ID: 2, UserID: 1, Title: "qui est esse"},
	{ID: 3, UserID: 2, Title: "ea molestias quasi exercitationem"},
}

// Router serves /users after usersDelay, /posts and the /get echo.
func Router(usersDelay time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.Healthz)
	r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(usersDelay):
		}
		writeJSON(w, users)
	})
	r.Get("/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, posts)
	})
	r.HandleFunc("/get", echo)

	return r
}

func echo(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	writeJSON(w, Echo{
		Method:  r.Method,
		URL:     r.URL.String(),
		Args:    r.URL.Query(),
		Headers: headers,
		Body:    string(body),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
