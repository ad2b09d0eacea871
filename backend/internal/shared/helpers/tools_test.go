package helpers

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"redalert/backend/internal/config"
)

func TestGetLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{format: "json", want: `"msg":"hello"`},
		{format: "text", want: "msg=hello"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l := GetLogger(&config.Config{LogLevel: slog.LevelInfo, LogFormat: tt.format, LogOutput: &buf})

			l.Debug("hidden")
			l.Info("hello")

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q lacks %q", out, tt.want)
			}
			if strings.Contains(out, "hidden") {
				t.Error("debug line logged at info level")
			}
		})
	}
}
