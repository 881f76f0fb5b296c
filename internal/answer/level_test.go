package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"", LevelIntermediate},
		{"beginner", LevelBeginner},
		{" Advanced ", LevelAdvanced},
		{"INTERMEDIATE", LevelIntermediate},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	_, err := ParseLevel("expert")

	require.Error(t, err)
	assert.Equal(t, planerrors.ErrCodeInvalidLevel, planerrors.GetCode(err))
}

func TestLevel_Instructions(t *testing.T) {
	assert.Contains(t, LevelBeginner.Instructions(), "plain language")
	assert.Contains(t, LevelIntermediate.Instructions(), "brief definitions")
	assert.Contains(t, LevelAdvanced.Instructions(), "edge cases")
	assert.Len(t, Levels(), 3)
}
