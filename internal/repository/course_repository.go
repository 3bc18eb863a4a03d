package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-progression-api/internal/models"
)

// CourseRepository reads the course structure: courses, modules and contents.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, description, passing_score, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindModule returns a module by its ID.
func (r *CourseRepository) FindModule(ctx context.Context, id string) (*models.Module, error) {
	const query = `SELECT id, course_id, title, order_index, exam_id FROM modules WHERE id = $1`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// FindModuleByOrder returns the module at orderIndex within a course.
func (r *CourseRepository) FindModuleByOrder(ctx context.Context, courseID string, orderIndex int) (*models.Module, error) {
	const query = `SELECT id, course_id, title, order_index, exam_id FROM modules WHERE course_id = $1 AND order_index = $2`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, courseID, orderIndex); err != nil {
		return nil, err
	}
	return &module, nil
}

// ListModules returns the modules of a course ordered by order_index.
func (r *CourseRepository) ListModules(ctx context.Context, courseID string) ([]models.Module, error) {
	const query = `SELECT id, course_id, title, order_index, exam_id FROM modules WHERE course_id = $1 ORDER BY order_index ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// FindContent returns a content item by its ID.
func (r *CourseRepository) FindContent(ctx context.Context, id string) (*models.Content, error) {
	const query = `SELECT id, module_id, title, is_required, order_index FROM contents WHERE id = $1`
	var content models.Content
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		return nil, err
	}
	return &content, nil
}

// ListContentsByModule returns the contents of a module in display order.
func (r *CourseRepository) ListContentsByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	const query = `SELECT id, module_id, title, is_required, order_index FROM contents WHERE module_id = $1 ORDER BY order_index ASC`
	var contents []models.Content
	if err := r.db.SelectContext(ctx, &contents, query, moduleID); err != nil {
		return nil, fmt.Errorf("list module contents: %w", err)
	}
	return contents, nil
}

// ListContentsByCourse returns every content item across the course's modules.
func (r *CourseRepository) ListContentsByCourse(ctx context.Context, courseID string) ([]models.Content, error) {
	const query = `SELECT c.id, c.module_id, c.title, c.is_required, c.order_index
FROM contents c
JOIN modules m ON m.id = c.module_id
WHERE m.course_id = $1
ORDER BY m.order_index ASC, c.order_index ASC`
	var contents []models.Content
	if err := r.db.SelectContext(ctx, &contents, query, courseID); err != nil {
		return nil, fmt.Errorf("list course contents: %w", err)
	}
	return contents, nil
}
