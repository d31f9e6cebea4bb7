package util

import "errors"

// 错误类别，服务层通过 fmt.Errorf("%w: ...") 包装，控制器统一转换为 HTTP 状态码
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrLessonLocked = errors.New("lesson locked")
	ErrPersistence  = errors.New("persistence failure")
	ErrDuplicate    = errors.New("duplicate submission")
)
