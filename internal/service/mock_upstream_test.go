package service

import (
	"context"
	"sync"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// ── Mock Upstream ──

type mockUpstream struct {
	mu          sync.Mutex
	students    map[int]model.StudentCourses
	eligibility map[int][]model.Eligibility

	fetchErr  error
	enrollErr error
	dropErr   error

	enrolls []int // course IDs
	drops   []int // enrollment IDs
}

func newMockUpstream() *mockUpstream {
	return &mockUpstream{
		students:    make(map[int]model.StudentCourses),
		eligibility: make(map[int][]model.Eligibility),
	}
}

func (m *mockUpstream) FetchStudentCourses(_ context.Context, studentID int) (model.StudentCourses, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return model.StudentCourses{}, m.fetchErr
	}
	return m.students[studentID], nil
}

func (m *mockUpstream) FetchEligibility(_ context.Context, studentID int, _, _ bool) ([]model.Eligibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.eligibility[studentID], nil
}

func (m *mockUpstream) Enroll(_ context.Context, _ int, courseID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrollErr != nil {
		return m.enrollErr
	}
	m.enrolls = append(m.enrolls, courseID)
	return nil
}

func (m *mockUpstream) Drop(_ context.Context, enrollmentID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropErr != nil {
		return m.dropErr
	}
	m.drops = append(m.drops, enrollmentID)
	return nil
}

// enroll 预置学生已选课程
func (m *mockUpstream) enroll(studentID int, enrollmentID int, c model.Course) {
	sc := m.students[studentID]
	sc.Courses = append(sc.Courses, c)
	sc.Enrollments = append(sc.Enrollments, model.Enrollment{
		ID:         enrollmentID,
		StudentID:  studentID,
		CourseID:   c.ID,
		CourseCode: c.Code,
		CourseName: c.Name,
	})
	m.students[studentID] = sc
}

// ── Mock CatalogSource ──

type mockCatalog struct {
	mu          sync.Mutex
	courses     []model.Course
	err         error
	forced      int
	invalidated int
}

func (m *mockCatalog) GetAll(_ context.Context, force bool) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if force {
		m.forced++
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Course(nil), m.courses...), nil
}

func (m *mockCatalog) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated++
	return nil
}

// ── 测试数据 ──

func testCourse(id int, code string, credits int, sched string) model.Course {
	return model.Course{
		ID:         id,
		Code:       code,
		Name:       code + " Course",
		Credits:    credits,
		Instructor: "Dr. " + code,
		Schedule:   sched,
		Capacity:   30,
		Enrolled:   10,
	}
}
