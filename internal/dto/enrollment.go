package dto

// ── 选课 DTO ──

// EnrollStudentRequest 教职人员录入学生
type EnrollStudentRequest struct {
	SemesterID    string `json:"semester_id"`
	Email         string `json:"email"          binding:"required,email"`
	FullName      string `json:"full_name"      binding:"required,max=200"`
	StudentNumber string `json:"student_number" binding:"required,max=30"`
	TagNumber     string `json:"tag_number"     binding:"required,max=10"`
}

// JoinByCourseCodeRequest 学生凭课程码加入学期
type JoinByCourseCodeRequest struct {
	CourseCode    string `json:"course_code"    binding:"required"`
	StudentNumber string `json:"student_number" binding:"required,max=30"`
	TagNumber     string `json:"tag_number"     binding:"required,max=10"`
}

// ChangeRoleRequest 修改角色
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin_technologist admin_instructor monitor student"`
}
