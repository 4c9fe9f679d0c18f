package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"

	"github.com/at-ishikawa/genius/internal/inference"
)

func TestClient_GenerateJSON(t *testing.T) {
	tests := []struct {
		name              string
		mockServerHandler func(t *testing.T, w http.ResponseWriter, r *http.Request)

		want            string
		wantErr         error
		wantErrorString string
	}{
		{
			name: "Success with json schema response format",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

				var reqBody ChatCompletionRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
				assert.Equal(t, "gpt-4o-mini", reqBody.Model)
				require.Len(t, reqBody.Messages, 2)
				assert.Equal(t, RoleSystem, reqBody.Messages[0].Role)
				assert.Equal(t, "Grade the answers", reqBody.Messages[1].Content)
				require.NotNil(t, reqBody.ResponseFormat)
				assert.Equal(t, "json_schema", reqBody.ResponseFormat.Type)
				assert.Equal(t, inference.TypeObject, reqBody.ResponseFormat.JSONSchema.Schema.Type)
				assert.Equal(t, []string{"score", "feedback"}, reqBody.ResponseFormat.JSONSchema.Schema.Required)

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
					ID:    "chatcmpl-123",
					Model: "gpt-4o-mini",
					Choices: []Choice{
						{
							Message:      ChoiceMessage{Role: RoleAssistant, Content: `{"score": 80, "feedback": "יפה מאוד"}`},
							FinishReason: "stop",
						},
					},
				})
			},
			want: `{"score": 80, "feedback": "יפה מאוד"}`,
		},
		{
			name: "Server error",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error": {"message": "Internal server error"}}`))
			},
			wantErrorString: "response error 500",
		},
		{
			name: "Refusal",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
					Choices: []Choice{{Message: ChoiceMessage{Role: RoleAssistant, Refusal: "not allowed"}}},
				})
			},
			wantErrorString: "model refused: not allowed",
		},
		{
			name: "No choices",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "choices": []}`))
			},
			wantErr: inference.ErrGenerationFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.mockServerHandler(t, w, r)
			}))
			defer server.Close()

			client := &Client{
				httpClient:   resty.New().SetBaseURL(server.URL),
				model:        "gpt-4o-mini",
				systemPrompt: defaultSystemPrompt,
			}

			got, err := client.GenerateJSON(context.Background(), "key-1", "Grade the answers", inference.GradingSchema())
			if tt.wantErr != nil || tt.wantErrorString != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.wantErrorString != "" {
					assert.Contains(t, err.Error(), tt.wantErrorString)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_GenerateImage(t *testing.T) {
	tests := []struct {
		name              string
		mockServerHandler func(t *testing.T, w http.ResponseWriter, r *http.Request)
		want              *inference.Image
		wantStatusCode    int
	}{
		{
			name: "base64 image",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/images/generations", r.URL.Path)
				assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

				var reqBody map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
				assert.Equal(t, "dall-e-3", reqBody["model"])
				assert.Equal(t, "b64_json", reqBody["response_format"])
				assert.Equal(t, "a fox", reqBody["prompt"])

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"created": 1, "data": [{"b64_json": "aW1n"}]}`))
			},
			want: &inference.Image{MIMEType: "image/png", Data: "aW1n"},
		},
		{
			name: "no data",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"created": 1, "data": []}`))
			},
			want: nil,
		},
		{
			name: "status is kept for classification",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key", "type": "invalid_request_error"}}`))
			},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.mockServerHandler(t, w, r)
			}))
			defer server.Close()

			client := &Client{
				imageHTTP:  server.Client(),
				baseURL:    server.URL,
				imageModel: "dall-e-3",
			}
			got, err := client.GenerateImage(context.Background(), "key-1", "a fox", &inference.Image{MIMEType: "image/png", Data: "cmVm"})
			if tt.wantStatusCode != 0 {
				var statusErr *inference.HTTPStatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.wantStatusCode, statusErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
