// Package authctx reads the identity the JWT middleware stored in fiber Locals.
package authctx

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tuitionhub_backend/internals/constants"
)

const (
	LocUserID    = "user_id"    // int64
	LocRole      = "userRole"   // TEACHER | STUDENT
	LocStudentID = "student_id" // int64, only for STUDENT
)

type Identity struct {
	UserID    int64
	Role      string
	StudentID *int64
}

func (i Identity) IsTeacher() bool { return i.Role == constants.RoleTeacher }
func (i Identity) IsStudent() bool { return i.Role == constants.RoleStudent }

// FromCtx fails with 401 when the request was not authenticated.
func FromCtx(c *fiber.Ctx) (Identity, error) {
	uid, ok := toInt64(c.Locals(LocUserID))
	if !ok || uid <= 0 {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	role, _ := c.Locals(LocRole).(string)
	id := Identity{UserID: uid, Role: strings.ToUpper(strings.TrimSpace(role))}
	if sid, ok := toInt64(c.Locals(LocStudentID)); ok && sid > 0 {
		id.StudentID = &sid
	}
	if id.IsStudent() && id.StudentID == nil {
		return Identity{}, fiber.NewError(fiber.StatusForbidden, "Student profile not found")
	}
	return id, nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}
