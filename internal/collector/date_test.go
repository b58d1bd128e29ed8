package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"dotted single digits", "2025.9.1", "2025-09-01"},
		{"dashed", "2025-09-01", "2025-09-01"},
		{"slashed", "2025/09/01", "2025-09-01"},
		{"trailing dot", "2025.09.01.", "2025-09-01"},
		{"surrounded by text", "작성일 2024.12.3 14:20", "2024-12-03"},
		{"first match wins", "2023.1.2 ~ 2024.3.4", "2023-01-02"},
		{"mixed separators", "2025.9-1", "2025-09-01"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"relative korean", "오늘", "오늘"},
		{"relative trimmed", "  3시간 전 ", "3시간 전"},
		{"two digit year", "25.09.01", "25.09.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.raw))
		})
	}
}
