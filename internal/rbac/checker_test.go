package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "attempt:create", true},
		{"student", "quiz:create", false},
		{"student", "attempt:view-all", false},
		{"teacher", "quiz:publish", true},
		{"teacher", "attempt:view-all", true},
		{"parent", "announcement:read", true},
		{"parent", "attempt:create", false},
		{"admin", "quiz:delete-own", true}, // wildcard
		{"admin", "anything:at-all", true},
		{"ghost", "quiz:view", false}, // unknown role
	}
	for _, c2 := range cases {
		if got := c.Has(c2.role, c2.perm); got != c2.want {
			t.Errorf("Has(%q, %q) = %v, want %v", c2.role, c2.perm, got, c2.want)
		}
	}
}

func TestCheckerAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("student", "attempt:view-own", "attempt:view-all") {
		t.Fatal("student should match view-own")
	}
	if c.Any("parent", "attempt:view-own", "attempt:view-all") {
		t.Fatal("parent should match neither")
	}
}

func TestPrefixWildcard(t *testing.T) {
	c := NewChecker(map[string][]string{"auditor": {"quiz:*"}})
	if !c.Has("auditor", "quiz:view") || !c.Has("auditor", "quiz:stats") {
		t.Fatal("prefix wildcard did not expand")
	}
	if c.Has("auditor", "attempt:view-all") {
		t.Fatal("prefix wildcard leaked across resources")
	}
}

func TestRequireMiddleware(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }

	h := Require("quiz:create")(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodPost, "/quizzes", nil)
	req = req.WithContext(WithRole(context.Background(), "teacher"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("teacher: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/quizzes", nil)
	req = req.WithContext(WithRole(context.Background(), "student"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student: status %d, want 403", rec.Code)
	}

	// no role in context at all
	req = httptest.NewRequest(http.MethodPost, "/quizzes", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous: status %d, want 403", rec.Code)
	}
}
