package grading

import (
	"testing"

	"lesson_gate/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDecode(t *testing.T) {
	ex, err := Decode("opcion_multiple", "a) uno|b) dos", " B ")
	require.NoError(t, err)
	mc, ok := ex.(MultipleChoice)
	require.True(t, ok)
	assert.Equal(t, "b", mc.CorrectLabel)
	assert.Len(t, mc.Options, 2)

	ex, err = Decode("fill_in_blank", "", "int| input |")
	require.NoError(t, err)
	assert.Equal(t, []string{"int", "input"}, ex.(FillInBlank).Tokens)

	_, err = Decode("essay", "", "x")
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = Decode("true_false", "", "   ")
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = Decode("fill_in_blank", "", "| |")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestCheckTrueFalse(t *testing.T) {
	c := NewChecker(true)
	ex := TrueFalse{Correct: "verdadero"}

	v, err := c.Check(ex, Submission{Answer: "  Verdadero "})
	require.NoError(t, err)
	assert.True(t, v.Correct)

	v, err = c.Check(ex, Submission{Answer: "falso"})
	require.NoError(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, "Verdadero", v.CorrectAnswer)
}

func TestCheckFillInBlank(t *testing.T) {
	c := NewChecker(true)

	tests := []struct {
		name   string
		tokens string
		answer string
		want   bool
	}{
		{"multi token inside call", "int|input", `numero = int(input("dato"))`, true},
		{"missing one token", "int|input", `numero = input("dato")`, false},
		{"exact", "print", "print", true},
		{"call style", "print", `print("hola")`, true},
		{"wrapped", "x", "(x)", true},
		{"case and spacing", "for i in range", "FOR   i\n in    range(10):", true},
		{"surrounded by text", "def", "I would write def here", true},
		{"absent", "while", "for x in y", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := Decode("fill_in_blank", "", tt.tokens)
			require.NoError(t, err)
			v, err := c.Check(ex, Submission{Answer: tt.answer})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Correct)
		})
	}
}

func TestFillInBlankDisplay(t *testing.T) {
	ex, err := Decode("fill_in_blank", "", " int | input ")
	require.NoError(t, err)
	v, err := NewChecker(true).Check(ex, Submission{Answer: "nothing"})
	require.NoError(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, "int|input", v.CorrectAnswer)
}

func TestCheckMultipleChoice(t *testing.T) {
	ex := MultipleChoice{
		Options:      ParseOptions("a) uno|b) dos|c) tres"),
		CorrectLabel: "b",
	}

	t.Run("shuffled label wins", func(t *testing.T) {
		v, err := NewChecker(true).Check(ex, Submission{Answer: "C", ShuffledLabel: strPtr("c")})
		require.NoError(t, err)
		assert.True(t, v.Correct)
		assert.False(t, v.UsedFallback)

		v, err = NewChecker(true).Check(ex, Submission{Answer: "b", ShuffledLabel: strPtr("c")})
		require.NoError(t, err)
		assert.False(t, v.Correct)
		assert.Equal(t, "c", v.CorrectAnswer)
	})

	t.Run("fallback to stored label", func(t *testing.T) {
		v, err := NewChecker(true).Check(ex, Submission{Answer: "b"})
		require.NoError(t, err)
		assert.True(t, v.Correct)
		assert.True(t, v.UsedFallback)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		_, err := NewChecker(false).Check(ex, Submission{Answer: "b", ShuffledLabel: strPtr("  ")})
		assert.ErrorIs(t, err, util.ErrValidation)
	})
}
