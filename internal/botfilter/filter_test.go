package botfilter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubVerifier struct {
	result *VerifyResult
	err    error
	calls  int
}

func (s *stubVerifier) Verify(ctx context.Context, token, remoteIP string) (*VerifyResult, error) {
	s.calls++
	return s.result, s.err
}

func TestFilter_Check(t *testing.T) {
	tests := []struct {
		name       string
		verifier   *stubVerifier
		required   bool
		challenge  Challenge
		wantAction Action
		wantReason string
		wantCalls  int
	}{
		{
			name:       "honeypot filled is discarded before verification",
			verifier:   &stubVerifier{result: &VerifyResult{Success: true}},
			challenge:  Challenge{Honeypot: "http://spam.example", Token: "tok"},
			wantAction: Discard,
		},
		{
			name:       "missing token",
			verifier:   &stubVerifier{result: &VerifyResult{Success: true}},
			challenge:  Challenge{},
			wantAction: Reject,
			wantReason: ReasonMissingToken,
		},
		{
			name:       "token verified",
			verifier:   &stubVerifier{result: &VerifyResult{Success: true}},
			challenge:  Challenge{Token: "tok", RemoteIP: "203.0.113.7"},
			wantAction: Accept,
			wantCalls:  1,
		},
		{
			name:       "token refused",
			verifier:   &stubVerifier{result: &VerifyResult{Success: false, ErrorCodes: []string{"invalid-input-response"}}},
			challenge:  Challenge{Token: "tok"},
			wantAction: Reject,
			wantReason: ReasonFailed,
			wantCalls:  1,
		},
		{
			name:       "upstream error",
			verifier:   &stubVerifier{err: errors.New("dial tcp: timeout")},
			challenge:  Challenge{Token: "tok"},
			wantAction: Reject,
			wantReason: ReasonFailed,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.verifier, tt.required, zerolog.Nop())
			d := f.Check(context.Background(), tt.challenge)
			if d.Action != tt.wantAction {
				t.Errorf("expected action %v, got %v", tt.wantAction, d.Action)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, d.Reason)
			}
			if tt.verifier.calls != tt.wantCalls {
				t.Errorf("expected %d verify calls, got %d", tt.wantCalls, tt.verifier.calls)
			}
		})
	}
}

func TestFilter_NoSecret(t *testing.T) {
	d := New(nil, false, zerolog.Nop()).Check(context.Background(), Challenge{})
	if d.Action != Accept || !d.Skipped {
		t.Errorf("expected skipped accept, got %+v", d)
	}

	d = New(nil, true, zerolog.Nop()).Check(context.Background(), Challenge{Token: "tok"})
	if d.Action != Reject || d.Reason != ReasonMissingSecret {
		t.Errorf("expected missing secret rejection, got %+v", d)
	}
}

func TestTurnstileVerifier_Verify(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %s", ct)
		}
		r.ParseForm()
		gotForm = map[string]string{
			"secret":   r.PostForm.Get("secret"),
			"response": r.PostForm.Get("response"),
			"remoteip": r.PostForm.Get("remoteip"),
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": r.PostForm.Get("response") == "good"})
	}))
	defer srv.Close()

	v := NewTurnstileVerifier("s3cret", srv.URL, 2*time.Second)

	res, err := v.Verify(context.Background(), "good", "198.51.100.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if gotForm["secret"] != "s3cret" || gotForm["response"] != "good" || gotForm["remoteip"] != "198.51.100.4" {
		t.Errorf("unexpected form %v", gotForm)
	}

	res, err = v.Verify(context.Background(), "bad", "")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Success {
		t.Error("expected failure for bad token")
	}
	if gotForm["remoteip"] != "" {
		t.Errorf("remoteip should be omitted, got %q", gotForm["remoteip"])
	}
}

func TestTurnstileVerifier_BadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := NewTurnstileVerifier("s", srv.URL, time.Second).Verify(context.Background(), "tok", "")
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}
