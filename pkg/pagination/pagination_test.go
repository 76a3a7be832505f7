package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := paramsFor(t, "limit=50&offset=10")
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_CapsLimit(t *testing.T) {
	p := paramsFor(t, "limit=5000")
	if p.Limit != MaxLimit {
		t.Errorf("expected cap %d, got %d", MaxLimit, p.Limit)
	}
}

func TestResponse_HasMore(t *testing.T) {
	r := NewResponse(nil, 100, Params{Limit: 20, Offset: 0})
	if !r.HasMore {
		t.Error("expected has_more for first page of 100")
	}
	if r.NextOffset == nil || *r.NextOffset != 20 {
		t.Errorf("expected next_offset 20, got %v", r.NextOffset)
	}
	r = NewResponse(nil, 15, Params{Limit: 20, Offset: 0})
	if r.HasMore {
		t.Error("did not expect has_more when total fits in one page")
	}
	if r.NextOffset != nil {
		t.Errorf("expected no next_offset on the last page, got %d", *r.NextOffset)
	}
}

func TestParams_Paging(t *testing.T) {
	p := Params{Limit: 20, Offset: 80}
	if p.HasNext(100) {
		t.Error("did not expect a next page when offset+limit == total")
	}
	if !p.HasNext(101) {
		t.Error("expected a next page when one row remains")
	}
	if p.NextOffset() != 100 {
		t.Errorf("expected next offset 100, got %d", p.NextOffset())
	}
}
