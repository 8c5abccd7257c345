package output

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestStatusStyle(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		wantBold bool
		wantFG   lipgloss.Color
		wantDim  bool
	}{
		{
			name:   "embedded returns green",
			status: StatusEmbedded,
			wantFG: colorGreen,
		},
		{
			name:    "unchanged returns faint",
			status:  StatusUnchanged,
			wantDim: true,
		},
		{
			name:   "pruned returns yellow",
			status: StatusPruned,
			wantFG: colorYellow,
		},
		{
			name:   "valid returns green",
			status: StatusValid,
			wantFG: colorGreen,
		},
		{
			name:     "failed returns bold red",
			status:   statusFailed,
			wantBold: true,
			wantFG:   colorBoldRed,
		},
		{
			name:   "unknown returns default unstyled",
			status: "unknown-value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := statusStyle(tt.status)
			if tt.wantBold {
				assert.True(t, style.GetBold(), "expected bold")
			}
			if tt.wantFG != "" {
				assert.Equal(t, tt.wantFG, style.GetForeground(), "foreground color mismatch")
			}
			if tt.wantDim {
				assert.True(t, style.GetFaint(), "expected faint")
			}
		})
	}
}

func TestFormatResourceLine(t *testing.T) {
	t.Run("contains name and status", func(t *testing.T) {
		result := FormatResourceLine("weaver.lib.dll.zip", StatusEmbedded)

		assert.Contains(t, result, "weaver.lib.dll.zip")
		assert.Contains(t, result, StatusEmbedded)
		assert.True(t, strings.HasPrefix(stripAnsi(result), "r:"), "should start with r: prefix")
	})

	t.Run("alignment consistency", func(t *testing.T) {
		line1 := FormatResourceLine("weaver.a.dll", StatusEmbedded)
		line2 := FormatResourceLine("weaver64.native.dll.zip", StatusEmbedded)

		idx1 := strings.Index(stripAnsi(line1), StatusEmbedded)
		idx2 := strings.Index(stripAnsi(line2), StatusEmbedded)

		assert.Equal(t, idx1, idx2, "status words should align to same column")
	})

	t.Run("long names keep a gap", func(t *testing.T) {
		name := strings.Repeat("x", minResourceColumnWidth+4)
		result := stripAnsi(FormatResourceLine(name, StatusPruned))
		assert.Contains(t, result, name+"  "+StatusPruned)
	})
}

func TestFormatCheckmark(t *testing.T) {
	result := FormatCheckmark("Module woven")
	assert.Contains(t, result, "✔", "should contain checkmark")
	assert.Contains(t, result, "Module woven", "should contain message")
}

func TestStatusValidSameColorAsEmbedded(t *testing.T) {
	assert.Equal(t, statusStyle(StatusEmbedded).GetForeground(), statusStyle(StatusValid).GetForeground(),
		"valid and embedded should have the same color")
}

func TestFormatVetCheck(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		detail string
	}{
		{name: "with detail", label: "Config file found", detail: "./weaver.yaml"},
		{name: "without detail", label: "Schema validation passed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatVetCheck(tt.label, tt.detail)

			assert.Contains(t, result, "✔")
			assert.Contains(t, result, tt.label)
			if tt.detail != "" {
				assert.Contains(t, result, tt.detail)
			} else {
				assert.False(t, strings.HasSuffix(stripAnsi(result), " "), "should not have trailing whitespace when detail is empty")
			}
		})
	}

	t.Run("alignment consistency", func(t *testing.T) {
		stripped1 := stripAnsi(FormatVetCheck("Config file found", "./weaver.yaml"))
		stripped2 := stripAnsi(FormatVetCheck("Schema validation passed", "/etc/weaver.yaml"))

		assert.Equal(t, strings.Index(stripped1, "./weaver.yaml"), strings.Index(stripped2, "/etc/weaver.yaml"),
			"detail text should align to same column")
	})
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSize(tt.in))
		})
	}
}

func TestNoColorStyles(t *testing.T) {
	s := NoColorStyles()
	assert.Equal(t, "plain", s.Success.Render("plain"))
	assert.Equal(t, "plain", s.Error.Render("plain"))
}

// stripAnsi removes ANSI escape sequences for content assertions.
func stripAnsi(s string) string {
	var result strings.Builder
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteByte(s[i])
	}
	return result.String()
}
