package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"github.com/subhubsl/subhub/lib/monitor"
	"github.com/subhubsl/subhub/models"
	"gorm.io/gorm"
)

// HandleCron runs the external update monitor and returns its summary. The
// shared-secret bearer token is checked before anything else; a mismatch
// rejects the request without starting a run.
func HandleCron(m *monitor.Monitor, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if secret == "" || !ok || token != secret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		outcomes := m.Run(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"outcomes": outcomes,
			"count":    len(outcomes),
		})
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

type chatRequest struct {
	Message string `json:"message"`
}

// HandleChat proxies a single prompt to the chat completion API. Missing key
// is the recognized disabled state, not an error.
func HandleChat(apiKey string) http.HandlerFunc {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			writeJSON(w, http.StatusOK, map[string]any{"disabled": true})
			return
		}

		var req chatRequest
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
			return
		}

		resp, err := client.CreateChatCompletion(r.Context(), openai.ChatCompletionRequest{
			Model: openai.GPT4oMini20240718,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are the SubHub SL assistant. Answer questions about movies, TV shows, K-dramas, and subtitles briefly.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Message,
				},
			},
		})
		if err != nil {
			slog.Error("Chat completion failed", slog.Any("error", err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "chat is unavailable right now"})
			return
		}

		reply := ""
		if len(resp.Choices) > 0 {
			reply = resp.Choices[0].Message.Content
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	}
}

// HandleTrack accepts lightweight analytics pings. Nothing is stored; the
// endpoint exists so ad pages have somewhere cheap to report to, and it gets
// the strict rate-limit policy.
func HandleTrack() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleContact stores a contact form submission.
func HandleContact(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg := models.ContactMessage{
			Name:  r.FormValue("name"),
			Email: r.FormValue("email"),
			Body:  r.FormValue("body"),
		}
		if msg.Body == "" {
			renderError(w, r, "Please write a message before sending.", http.StatusBadRequest)
			return
		}

		if err := db.WithContext(r.Context()).Create(&msg).Error; err != nil {
			slog.Error("Failed to store contact message", slog.Any("error", err))
			renderError(w, r, "We couldn't send your message. Please try again later.", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/?sent=1", http.StatusSeeOther)
	}
}

// HandleContactPage renders the contact form.
func HandleContactPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, "contact.html", newBaseData(r))
	}
}
