package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPlaceCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Calls.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "token" {
			t.Errorf("basic auth = %q/%q (ok=%v)", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("To"); got != "+15550100" {
			t.Errorf("To = %q", got)
		}
		if got := r.PostForm.Get("From"); got != "+15550200" {
			t.Errorf("From = %q", got)
		}
		if got := r.PostForm.Get("Url"); got != "https://relay.example/call" {
			t.Errorf("Url = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA777","status":"queued","to":"+15550100","from":"+15550200"}`))
	}))
	defer srv.Close()

	client := NewClient("AC123", "token", WithBaseURL(srv.URL))
	call, err := client.PlaceCall(context.Background(), &CallRequest{
		To:         "+15550100",
		From:       "+15550200",
		WebhookURL: "https://relay.example/call",
	})
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if call.SID != "CA777" || call.Status != "queued" {
		t.Errorf("call = %+v; want CA777 queued", call)
	}
}

func TestPlaceCallAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' phone number","status":400}`))
	}))
	defer srv.Close()

	client := NewClient("AC123", "token", WithBaseURL(srv.URL))
	_, err := client.PlaceCall(context.Background(), &CallRequest{
		To: "bogus", From: "+15550200", WebhookURL: "https://relay.example/call",
	})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T; want *APIError", err)
	}
	if apiErr.Code != 21211 || apiErr.StatusCode != 400 {
		t.Errorf("apiErr = %+v; want code 21211 status 400", apiErr)
	}
}

func TestPlaceCallValidation(t *testing.T) {
	client := NewClient("AC123", "token")
	if _, err := client.PlaceCall(context.Background(), &CallRequest{To: "+1"}); err == nil {
		t.Error("missing From accepted")
	}
	if _, err := client.PlaceCall(context.Background(), &CallRequest{To: "+1", From: "+2"}); err == nil {
		t.Error("missing webhook URL accepted")
	}
}

func TestConnectStream(t *testing.T) {
	got, err := ConnectStream("wss://relay.example/media", &ConnectStreamOptions{
		Say:          "Connecting you now.",
		PauseSeconds: 1,
	})
	if err != nil {
		t.Fatalf("ConnectStream: %v", err)
	}
	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<Response><Say>Connecting you now.</Say><Pause length="1"></Pause>` +
		`<Connect><Stream url="wss://relay.example/media"></Stream></Connect></Response>`
	if got != want {
		t.Errorf("twiml:\n%s\nwant:\n%s", got, want)
	}
}

func TestConnectStreamMinimal(t *testing.T) {
	got, err := ConnectStream("wss://relay.example/media", nil)
	if err != nil {
		t.Fatalf("ConnectStream: %v", err)
	}
	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<Response><Connect><Stream url="wss://relay.example/media"></Stream></Connect></Response>`
	if got != want {
		t.Errorf("twiml = %s; want %s", got, want)
	}

	if _, err := ConnectStream("", nil); err == nil {
		t.Error("empty URL accepted")
	}
}
