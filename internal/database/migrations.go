package database

import (
	"fmt"

	"github.com/yukikurage/project-tracker-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Company{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.RevokedToken{},
	}
}

// compositeIndexes back the hot listing queries; single-column indexes come
// from the model tags.
var compositeIndexes = []struct {
	model   interface{}
	name    string
	columns string
}{
	{&models.Task{}, "idx_tasks_project_deleted", "project_id, deleted_at"},
	{&models.Task{}, "idx_tasks_project_status", "project_id, status"},
	{&models.Task{}, "idx_tasks_parent_deleted", "parent_id, deleted_at"},
	{&models.Project{}, "idx_projects_company_deleted", "company_id, deleted_at"},
	{&models.ProjectMember{}, "idx_project_members_user", "user_id"},
	{&models.TaskAssignment{}, "idx_task_assignments_user", "user_id"},
}

// Migrate creates or updates the schema and adds the composite indexes.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log = log.Named("database")
	log.Info("running database migrations")

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}

// AddIndexes creates the composite indexes that do not exist yet.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to resolve table for index %s: %w", idx.name, err)
		}
		table := stmt.Schema.Table

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Debug("created index",
			zap.String("index", idx.name),
			zap.String("table", table),
			zap.String("columns", idx.columns),
		)
	}

	return nil
}
