package github

import (
	"errors"
	"testing"
)

func TestSplitRepo(t *testing.T) {
	owner, name, err := splitRepo("octocat/hello-world")
	if err != nil {
		t.Fatal(err)
	}
	if owner != "octocat" || name != "hello-world" {
		t.Errorf("got %s/%s", owner, name)
	}

	for _, bad := range []string{"", "octocat", "octocat/", "/repo", "a/b/c"} {
		if _, _, err := splitRepo(bad); err == nil {
			t.Errorf("splitRepo(%q) should fail", bad)
		}
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &FetchError{Op: "details", Repo: "o/r", Number: 7, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("FetchError must unwrap to the underlying error")
	}
	msg := err.Error()
	if msg != "github details o/r#7: boom" {
		t.Errorf("unexpected message: %q", msg)
	}
}
