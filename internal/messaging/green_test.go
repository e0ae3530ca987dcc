package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGreenSendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"idMessage":"BAE5F4886F6F0710"}`))
	}))
	defer srv.Close()

	client := NewGreenClient(srv.URL, "1101000001", "tok123", testLogger())
	id, err := client.Send(context.Background(), "+919876543210", "Welcome to AgriLink!")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "BAE5F4886F6F0710" {
		t.Errorf("id = %q", id)
	}
	if gotPath != "/waInstance1101000001/sendMessage/tok123" {
		t.Errorf("path = %q", gotPath)
	}
	if gotPayload["chatId"] != "919876543210@c.us" {
		t.Errorf("chatId = %v", gotPayload["chatId"])
	}
	if gotPayload["message"] != "Welcome to AgriLink!" {
		t.Errorf("message = %v", gotPayload["message"])
	}
}

func TestGreenSendFileByURL(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"idMessage":"BAE5"}`))
	}))
	defer srv.Close()

	client := NewGreenClient(srv.URL, "inst", "tok", testLogger())
	_, err := client.SendMedia(context.Background(), "+919876543210", "Tomato", "https://x/uploads/product-ab.jpg")
	if err != nil {
		t.Fatalf("send media: %v", err)
	}
	if gotPath != "/waInstanceinst/sendFileByUrl/tok" {
		t.Errorf("path = %q", gotPath)
	}
	if gotPayload["urlFile"] != "https://x/uploads/product-ab.jpg" {
		t.Errorf("urlFile = %v", gotPayload["urlFile"])
	}
	if gotPayload["fileName"] != "product-ab.jpg" {
		t.Errorf("fileName = %v", gotPayload["fileName"])
	}
	if gotPayload["caption"] != "Tomato" {
		t.Errorf("caption = %v", gotPayload["caption"])
	}
}

func TestGreenUnconfigured(t *testing.T) {
	client := NewGreenClient("", "", "", testLogger())
	if client.Configured() {
		t.Error("empty credentials should not report configured")
	}
	if _, err := client.Send(context.Background(), "+911", "x"); err == nil {
		t.Error("expected error without credentials")
	}
}
