package internal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fn      func() error
		wantErr bool
	}{
		{name: "successful function", fn: func() error { return nil }},
		{name: "function with error", fn: func() error { return errors.New("test error") }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, "Testing", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
			err = ShowWaiting(ctx, "Waiting", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowWaiting() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpin_WritesStatus(t *testing.T) {
	var buf bytes.Buffer
	err := spin(context.Background(), &buf, "Saving", func() error {
		time.Sleep(150 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("spin() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Saving") {
		t.Errorf("spin() output = %q, want the message", buf.String())
	}
}

func TestSpin_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	err := spinTransient(ctx, &buf, "Waiting", func() error {
		time.Sleep(500 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("spinTransient() error = %v, want deadline exceeded", err)
	}
}

func TestQuotaBanner(t *testing.T) {
	for _, count := range []int{0, 16, 20} {
		if banner := QuotaBanner(count); !strings.Contains(banner, "/20") {
			t.Errorf("QuotaBanner(%d) = %q, want the limit", count, banner)
		}
	}
	if !strings.Contains(QuotaBanner(20), "sign in") {
		t.Error("exhausted banner should ask the user to sign in")
	}
}

func TestIsTerminal(t *testing.T) {
	var buf bytes.Buffer
	if isTerminal(&buf) {
		t.Error("isTerminal() should be false for a buffer")
	}
}
