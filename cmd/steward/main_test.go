package main

import (
	"testing"
	"time"
)

func TestCycleInterval(t *testing.T) {
	tests := []struct {
		sec  int
		want time.Duration
	}{
		{60, time.Minute},
		{1, time.Second},
		{0, time.Second},
		{-5, time.Second},
	}
	for _, tc := range tests {
		if got := cycleInterval(tc.sec); got != tc.want {
			t.Fatalf("cycleInterval(%d)=%v want %v", tc.sec, got, tc.want)
		}
	}
}
