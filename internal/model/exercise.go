package model

// Exercise 练习题的存储形态。Kind 为 multiple_choice / true_false / fill_in_blank，
// 加载后由 grading.Decode 转换为具体题型
// swagger:model Exercise
type Exercise struct {
	BaseModel

	LessonID uint   `gorm:"index;not null" json:"lessonId"`
	Kind     string `gorm:"size:50;not null" json:"kind"`
	Prompt   string `gorm:"type:text;not null" json:"prompt"`
	// "a) text|b) text"
	Options string `gorm:"type:text" json:"options"`
	// 选择题为标签，判断题为标准词，填空题为 "tok1|tok2"
	CorrectAnswer string `gorm:"type:text;not null" json:"-"`

	Explanation string `gorm:"type:text" json:"explanation"`
	Points      int    `gorm:"default:10" json:"points"`
}

func (Exercise) TableName() string {
	return "exercises"
}
