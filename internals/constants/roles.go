package constants

import "fmt"

const (
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

// Template pesan error role
const (
	ErrOnlyTeachersCanAccess = "Only teachers can %s."
)

func RoleErrorTeacher(action string) string {
	return fmt.Sprintf(ErrOnlyTeachersCanAccess, action)
}

var TeacherOnly = []string{RoleTeacher}
