package jsonrpc

import (
	"errors"
	"testing"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
)

func TestFromErrorTranslatesKnownCode(t *testing.T) {
	rich := mcperr.NotFoundError("template", "foo@1.0.0")
	obj := FromError(rich)
	if obj.Code != CodeNotFound {
		t.Fatalf("Code = %d, want %d", obj.Code, CodeNotFound)
	}
	if obj.Message != rich.Message {
		t.Fatalf("Message = %q, want %q", obj.Message, rich.Message)
	}
}

func TestFromErrorFallsBackForPlainError(t *testing.T) {
	obj := FromError(errors.New("unexpected"))
	if obj.Code != CodeInternalError {
		t.Fatalf("Code = %d, want %d", obj.Code, CodeInternalError)
	}
	if obj.Message != "unexpected" {
		t.Fatalf("Message = %q, want %q", obj.Message, "unexpected")
	}
}

func TestFromErrorMapsEveryTaxonomyCode(t *testing.T) {
	for code := range codeTable {
		rich := mcperr.New().Code(code).Message("x").Build()
		obj := FromError(rich)
		if obj.Code == 0 {
			t.Fatalf("code %q mapped to 0", code)
		}
	}
}
