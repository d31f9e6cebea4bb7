package grading

import (
	"fmt"
	"strings"

	"lesson_gate/internal/util"
)

// Kind 练习题类型
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindTrueFalse      Kind = "true_false"
	KindFillInBlank    Kind = "fill_in_blank"
)

// ParseKind 将存储中的类型字段解析为 Kind，兼容旧数据中的西语写法
func ParseKind(raw string) (Kind, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "multiple_choice", "opcion_multiple":
		return KindMultipleChoice, nil
	case "true_false", "verdadero_falso":
		return KindTrueFalse, nil
	case "fill_in_blank":
		return KindFillInBlank, nil
	}
	return "", fmt.Errorf("%w: unknown exercise kind %q", util.ErrValidation, raw)
}

// Exercise 是按题型区分的封闭和类型，只能由本包内的变体实现
type Exercise interface {
	Kind() Kind
	isExercise()
}

// MultipleChoice 选择题，Options 为原始顺序的选项
type MultipleChoice struct {
	Options      []Option
	CorrectLabel string
}

// TrueFalse 判断题
type TrueFalse struct {
	Correct string
}

// FillInBlank 填空题，Tokens 中每一项都必须出现在答案中
type FillInBlank struct {
	Tokens []string
	Raw    string
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }
func (TrueFalse) Kind() Kind      { return KindTrueFalse }
func (FillInBlank) Kind() Kind    { return KindFillInBlank }

func (MultipleChoice) isExercise() {}
func (TrueFalse) isExercise()      {}
func (FillInBlank) isExercise()    {}

// Decode 在加载时把一行题目数据解析为对应的题型变体
func Decode(rawKind, options, correctAnswer string) (Exercise, error) {
	kind, err := ParseKind(rawKind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(correctAnswer) == "" {
		return nil, fmt.Errorf("%w: exercise has no correct answer", util.ErrValidation)
	}

	switch kind {
	case KindMultipleChoice:
		return MultipleChoice{
			Options:      ParseOptions(options),
			CorrectLabel: Normalize(correctAnswer),
		}, nil
	case KindTrueFalse:
		return TrueFalse{Correct: Normalize(correctAnswer)}, nil
	case KindFillInBlank:
		tokens := splitTokens(correctAnswer)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: fill-in-blank answer has no tokens", util.ErrValidation)
		}
		return FillInBlank{Tokens: tokens, Raw: correctAnswer}, nil
	}
	return nil, fmt.Errorf("%w: unhandled exercise kind %q", util.ErrValidation, kind)
}

func splitTokens(raw string) []string {
	var tokens []string
	for _, part := range strings.Split(raw, "|") {
		if t := Normalize(part); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
