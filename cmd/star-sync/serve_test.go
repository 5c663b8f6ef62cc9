package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kevinmichaelchen/star-sync/internal/pipeline"
)

func TestReportable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"overlap", pipeline.ErrCycleInProgress, false},
		{"shutdown", fmt.Errorf("cycle interrupted: %w", context.Canceled), false},
		{"fetch canceled", fmt.Errorf("fetching starred repos: %w", context.Canceled), false},
		{"fetch failure", errors.New("fetching starred repos: 502"), true},
		{"deadline", fmt.Errorf("cycle interrupted: %w", context.DeadlineExceeded), true},
	}
	for _, c := range cases {
		if got := reportable(c.err); got != c.want {
			t.Errorf("%s: reportable = %v, want %v", c.name, got, c.want)
		}
	}
}
