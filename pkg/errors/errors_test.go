package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		name      string
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{name: "validation", code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{name: "unauthorized", code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{name: "forbidden", code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{name: "not found", code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{name: "conflict", code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{name: "insufficient funds", code: CodeInsufficientFunds, status: http.StatusPaymentRequired, publicMsg: "insufficient funds"},
		{name: "idempotency reuse", code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{name: "internal", code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{name: "dependency", code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := MetadataFor(tt.code)
			if meta.HTTPStatus != tt.status {
				t.Fatalf("expected status %d got %d", tt.status, meta.HTTPStatus)
			}
			if meta.PublicMessage != tt.publicMsg {
				t.Fatalf("expected public message %q got %q", tt.publicMsg, meta.PublicMessage)
			}
			if meta.Retryable != tt.retryable {
				t.Fatalf("expected retryable %v got %v", tt.retryable, meta.Retryable)
			}
			if meta.DetailsAllowed != tt.detailsOK {
				t.Fatalf("expected details allowed %v got %v", tt.detailsOK, meta.DetailsAllowed)
			}
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
	if meta.DetailsAllowed {
		t.Fatalf("unknown codes must not leak details")
	}
}

func TestNewAndWithDetails(t *testing.T) {
	err := New(CodeValidation, "missing title")
	if err.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", err.Code())
	}
	if err.Message() != "missing title" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Details() != nil {
		t.Fatalf("details should start nil")
	}

	err.WithDetails(map[string]any{"field": "title"})
	if err.Details() == nil {
		t.Fatalf("details should be preserved")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("deadlock detected")
	wrapped := Wrap(CodeConflict, cause, "checkout commit")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "admin only")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("As on a plain error should return nil")
	}
}
