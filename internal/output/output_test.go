package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNewOutput(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)

	if o == nil {
		t.Fatal("expected non-nil Output")
	}
	if o.w != &buf {
		t.Error("writer not set correctly")
	}
	if !o.useColor {
		t.Error("expected useColor to be true by default")
	}
}

func TestSetColor(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)

	o.SetColor(false)
	if o.useColor {
		t.Error("expected useColor to be false")
	}

	o.SetColor(true)
	if !o.useColor {
		t.Error("expected useColor to be true")
	}
}

func TestColorOutput(t *testing.T) {
	t.Run("color enabled", func(t *testing.T) {
		var buf bytes.Buffer
		o := New(&buf)
		o.SetColor(true)

		result := o.color(colorGreen, "test")
		if !strings.Contains(result, "\033[32m") {
			t.Error("expected color code in output")
		}
		if !strings.Contains(result, "\033[0m") {
			t.Error("expected reset code in output")
		}
	})

	t.Run("color disabled", func(t *testing.T) {
		var buf bytes.Buffer
		o := New(&buf)
		o.SetColor(false)

		result := o.color(colorGreen, "test")
		if result != "test" {
			t.Errorf("expected plain 'test', got %q", result)
		}
	})
}

func TestRunStart(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.RunStart("production", "abc123")

	got := buf.String()
	if !strings.Contains(got, "DEPLOY") {
		t.Errorf("expected DEPLOY banner, got %q", got)
	}
	if !strings.Contains(got, "production") || !strings.Contains(got, "abc123") {
		t.Errorf("expected environment and revision in banner, got %q", got)
	}
}

func TestRunEnd(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.RunEnd("success", 1500*time.Millisecond)

	got := buf.String()
	if !strings.Contains(got, "RESULT success") {
		t.Errorf("expected recap line, got %q", got)
	}
	if !strings.Contains(got, "(1.50s)") {
		t.Errorf("expected duration, got %q", got)
	}
}

func TestStepResult(t *testing.T) {
	tests := []struct {
		name     string
		stepName string
		status   string
		message  string
		wantIn   []string
	}{
		{
			name:     "ok status",
			stepName: "Verify deployer",
			status:   "ok",
			wantIn:   []string{"✓", "Verify deployer"},
		},
		{
			name:     "skipped status",
			stepName: "Known hosts",
			status:   "skipped",
			wantIn:   []string{"○", "Known hosts"},
		},
		{
			name:     "failed status",
			stepName: "Deploy",
			status:   "failed",
			message:  "exit code 1",
			wantIn:   []string{"✗", "Deploy", "(exit code 1)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			o := New(&buf)
			o.SetColor(false)

			o.StepResult(tt.stepName, tt.status, tt.message)
			for _, want := range tt.wantIn {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected %q in output, got %q", want, buf.String())
				}
			}
		})
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no debug output, got %q", buf.String())
	}

	o.SetDebug(true)
	o.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}
