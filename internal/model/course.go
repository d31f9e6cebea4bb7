package model

// Unit 课程单元，Order 在课程内唯一且决定解锁顺序
// swagger:model Unit
type Unit struct {
	BaseModel

	Number      int      `gorm:"not null" json:"number"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Order       int      `gorm:"column:sort_order;index;not null" json:"order"`
	Lessons     []Lesson `gorm:"foreignKey:UnitID" json:"lessons,omitempty"`
}

func (Unit) TableName() string {
	return "units"
}

// Lesson 课时，Order 在单元内唯一
// swagger:model Lesson
type Lesson struct {
	BaseModel

	UnitID      uint   `gorm:"index;not null" json:"unitId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"column:sort_order;not null" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}
