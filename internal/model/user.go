package model

// UserRole 由认证令牌携带，本服务不保存用户表
type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)
