package grading

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"lesson_gate/internal/util"
)

// Submission 一次作答。ShuffledLabel 为渲染时打乱后正确选项的标签，由调用方回传
type Submission struct {
	Answer        string
	ShuffledLabel *string
}

// Verdict 判题结果
type Verdict struct {
	Correct bool
	// CorrectAnswer 用于反馈展示的正确答案
	CorrectAnswer string
	// UsedFallback 选择题未回传打乱标签、退回使用存储标签时为 true
	UsedFallback bool
}

// Checker 判题器
type Checker struct {
	// AllowUnshuffledFallback 为 false 时，选择题缺少打乱标签会被视为非法提交
	AllowUnshuffledFallback bool
}

func NewChecker(allowFallback bool) *Checker {
	return &Checker{AllowUnshuffledFallback: allowFallback}
}

// Normalize trims and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CollapseSpaces 把连续的空白（含换行）压缩为单个空格
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Check 对单题作答给出判定
func (c *Checker) Check(ex Exercise, sub Submission) (Verdict, error) {
	switch e := ex.(type) {
	case TrueFalse:
		return Verdict{
			Correct:       Normalize(sub.Answer) == e.Correct,
			CorrectAnswer: capitalize(e.Correct),
		}, nil

	case FillInBlank:
		answer := CollapseSpaces(Normalize(sub.Answer))
		correct := true
		for _, token := range e.Tokens {
			if !tokenPresent(answer, CollapseSpaces(token)) {
				correct = false
				break
			}
		}
		return Verdict{Correct: correct, CorrectAnswer: displayTokens(e.Raw)}, nil

	case MultipleChoice:
		expected := e.CorrectLabel
		fallback := true
		if sub.ShuffledLabel != nil && Normalize(*sub.ShuffledLabel) != "" {
			expected = Normalize(*sub.ShuffledLabel)
			fallback = false
		} else if !c.AllowUnshuffledFallback {
			return Verdict{}, fmt.Errorf("%w: shuffled correct label is required for multiple choice", util.ErrValidation)
		}
		return Verdict{
			Correct:       Normalize(sub.Answer) == expected,
			CorrectAnswer: expected,
			UsedFallback:  fallback,
		}, nil
	}
	return Verdict{}, fmt.Errorf("%w: unsupported exercise %T", util.ErrValidation, ex)
}

// tokenPresent 宽松匹配：答案中任意位置包含该片段即可。
// 以空格为界、位于开头/结尾、完全相等、紧跟 "(" 或被括号包裹（如 print(...)）都属于包含的情形。
func tokenPresent(answer, token string) bool {
	if token == "" {
		return true
	}
	return answer == token || strings.Contains(answer, token)
}

func displayTokens(raw string) string {
	parts := strings.Split(raw, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "|")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
