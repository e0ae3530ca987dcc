package grading

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/agrilink-platform/pkg/logging"
)

func TestGradeSuccess(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(Result{Grade: "Grade A", Score: 92})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, logging.Default())
	res, err := client.Grade(context.Background(), "https://x/uploads/a.jpg", "Tomato")
	require.NoError(t, err)
	assert.Equal(t, "Grade A", res.Grade)
	assert.Equal(t, 92, res.Score)
	assert.Equal(t, "/grade", gotPath)
	assert.Equal(t, "https://x/uploads/a.jpg", gotPayload["image_url"])
	assert.Equal(t, "Tomato", gotPayload["product_name"])
}

func TestGradeServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	_, err := client.Grade(context.Background(), "u", "p")
	assert.Error(t, err, "5xx should surface an error")

	client = NewClient("http://127.0.0.1:1", time.Second, nil)
	_, err = client.Grade(context.Background(), "u", "p")
	assert.Error(t, err, "connection failure should surface an error")
}

func TestGradeUnconfigured(t *testing.T) {
	client := NewClient("", time.Second, nil)
	assert.False(t, client.Configured())

	_, err := client.Grade(context.Background(), "u", "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGradeRejectsEmptyGrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"score":50}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	_, err := client.Grade(context.Background(), "u", "p")
	assert.Error(t, err, "missing grade should surface an error so the fallback applies")
}
