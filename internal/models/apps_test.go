package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApps(t *testing.T) {
	tests := []struct {
		name       string
		input      []string
		expected   []AppName
		expectedOK bool
	}{
		{
			name:       "все три приложения",
			input:      []string{"safetunes", "safetube", "safereads"},
			expected:   []AppName{AppSafeTunes, AppSafeTube, AppSafeReads},
			expectedOK: true,
		},
		{
			name:       "пробелы и пустые элементы отбрасываются",
			input:      []string{" safetunes ", "", "safereads"},
			expected:   []AppName{AppSafeTunes, AppSafeReads},
			expectedOK: true,
		},
		{
			name:       "неизвестное приложение — ошибка",
			input:      []string{"safetunes", "safegames"},
			expectedOK: false,
		},
		{
			name:       "пустой список допустим",
			input:      nil,
			expectedOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps, ok := ParseApps(tt.input)
			require.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expected, apps)
		})
	}
}

func TestDiffApps(t *testing.T) {
	tests := []struct {
		name     string
		list     []AppName
		other    []AppName
		expected []AppName
	}{
		{
			name:     "элементы только из list",
			list:     []AppName{AppSafeTunes, AppSafeTube},
			other:    []AppName{AppSafeTunes, AppSafeReads},
			expected: []AppName{AppSafeTube},
		},
		{
			name:     "одинаковые наборы дают пустую разницу",
			list:     []AppName{AppSafeTunes},
			other:    []AppName{AppSafeTunes},
			expected: nil,
		},
		{
			name:     "разница с nil возвращает list в фиксированном порядке без дублей",
			list:     []AppName{AppSafeReads, AppSafeTunes, AppSafeReads},
			other:    nil,
			expected: []AppName{AppSafeTunes, AppSafeReads},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DiffApps(tt.list, tt.other))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestValidApp(t *testing.T) {
	assert.True(t, ValidApp(AppSafeTunes))
	assert.True(t, ValidApp(AppSafeTube))
	assert.True(t, ValidApp(AppSafeReads))
	assert.False(t, ValidApp("safegames"))
	assert.False(t, ValidApp(""))
}
