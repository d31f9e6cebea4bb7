package util

import (
	"strconv"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// FormatGrade 去掉多余的小数位：8 -> "8"，6.67 -> "6.67"
func FormatGrade(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}
