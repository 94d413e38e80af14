package utils

import (
	"errors"
	"io"
	"testing"
)

func TestSafeTruncate(t *testing.T) {
	if got := SafeTruncate("abcdef", 3); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
	if got := SafeTruncate("ab", 3); got != "ab" {
		t.Errorf("expected 'ab', got %q", got)
	}
}

type failingCloser struct{ err error }

func (f failingCloser) Close() error { return f.err }

func TestCloseMany(t *testing.T) {
	if err := CloseMany([]io.Closer{failingCloser{}, failingCloser{}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	boom := errors.New("boom")
	err := CloseMany([]io.Closer{failingCloser{err: boom}, failingCloser{}, failingCloser{err: boom}})
	if err == nil {
		t.Fatal("expected aggregate error")
	}
}
