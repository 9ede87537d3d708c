package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestRequestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RequestError
		contains []string
	}{
		{
			name: "status with message",
			err: &RequestError{
				Provider:   "hh",
				Method:     http.MethodGet,
				Endpoint:   "/vacancies",
				StatusCode: 403,
				ErrorClass: ErrorClassClient,
				Message:    "forbidden",
			},
			contains: []string{"hh GET /vacancies", "client error", "status 403", "forbidden"},
		},
		{
			name: "network error without status",
			err: &RequestError{
				Provider:   "sj",
				Method:     http.MethodGet,
				Endpoint:   "/2.0/vacancies/",
				ErrorClass: ErrorClassNetwork,
				Err:        errors.New("connection refused"),
			},
			contains: []string{"sj GET /2.0/vacancies/", "network error", "connection refused"},
		},
		{
			name: "decode error with message and cause",
			err: &RequestError{
				Provider:   "hh",
				Method:     http.MethodGet,
				Endpoint:   "/areas",
				StatusCode: 200,
				ErrorClass: ErrorClassDecode,
				Message:    "decode response",
				Err:        errors.New("unexpected EOF"),
			},
			contains: []string{"decode error", "decode response", "unexpected EOF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Error() = %q, want it to contain %q", got, want)
				}
			}
			if strings.Contains(got, "(status 0)") {
				t.Errorf("Error() = %q, zero status must be omitted", got)
			}
		})
	}
}

func TestRequestError_Is(t *testing.T) {
	err := fmt.Errorf("fetch page 2: %w", &RequestError{
		Provider:   "hh",
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
	})

	if !errors.Is(err, ErrRequestFailed) {
		t.Error("errors.Is(err, ErrRequestFailed) = false, want true")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatal("errors.As failed to find *RequestError")
	}
	if reqErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", reqErr.StatusCode)
	}
}

func TestRequestError_Unwrap(t *testing.T) {
	err := &RequestError{ErrorClass: ErrorClassNetwork, Err: context.DeadlineExceeded}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("wrapped cause should be reachable with errors.Is")
	}
	if !errors.Is(err, ErrRequestFailed) {
		t.Error("RequestError should still match ErrRequestFailed")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{401, ErrorClassClient},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{502, ErrorClassServer},
		{503, ErrorClassServer},
		{301, ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
