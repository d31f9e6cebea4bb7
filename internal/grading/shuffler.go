package grading

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Option 选择题的一个选项
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ShuffleResult 打乱后的选项及新的正确标签
type ShuffleResult struct {
	Options      []Option
	CorrectLabel string
}

// Serialize 按 "a) text|b) text" 格式重新序列化
func (r ShuffleResult) Serialize() string {
	return SerializeOptions(r.Options)
}

// Shuffler 每次渲染课时都重新打乱选项顺序
type Shuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewShuffler(src rand.Source) *Shuffler {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Shuffler{rng: rand.New(src)}
}

// ParseOptions 解析 "label) text" 列表，按第一个 ")" 切分，无法解析的条目直接跳过
func ParseOptions(raw string) []Option {
	var options []Option
	if strings.TrimSpace(raw) == "" {
		return options
	}
	for _, entry := range strings.Split(raw, "|") {
		label, text, ok := strings.Cut(entry, ")")
		if !ok {
			continue
		}
		options = append(options, Option{
			Label: strings.TrimSpace(label),
			Text:  strings.TrimSpace(text),
		})
	}
	return options
}

func SerializeOptions(options []Option) string {
	parts := make([]string, len(options))
	for i, o := range options {
		parts[i] = o.Label + ") " + o.Text
	}
	return strings.Join(parts, "|")
}

// Labels 生成 n 个顺序标签：a..z，超过 26 个后为 a1..z1、a2..
func Labels(n int) []string {
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		letter := string(rune('a' + i%26))
		if round := i / 26; round > 0 {
			letter += strconv.Itoa(round)
		}
		labels[i] = letter
	}
	return labels
}

// Shuffle 打乱选项并重新分配标签，通过文本（而非位置）找到新的正确标签
func (s *Shuffler) Shuffle(ex MultipleChoice) ShuffleResult {
	var correctText string
	found := false
	for _, o := range ex.Options {
		if Normalize(o.Label) == ex.CorrectLabel {
			correctText = o.Text
			found = true
			break
		}
	}

	shuffled := make([]Option, len(ex.Options))
	copy(shuffled, ex.Options)

	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	result := ShuffleResult{Options: shuffled, CorrectLabel: ex.CorrectLabel}
	labels := Labels(len(shuffled))
	newLabel := ""
	for i := range shuffled {
		shuffled[i].Label = labels[i]
		if found && newLabel == "" && shuffled[i].Text == correctText {
			newLabel = labels[i]
		}
	}
	if newLabel != "" {
		result.CorrectLabel = newLabel
	}
	return result
}
