package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/reelwork/marketplace/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.JobPost{},
		&models.JobApplication{},
		&models.Message{},
		&models.Payment{},
	}
}

// Run executes all marketplace schema migrations. It is safe to run repeatedly.
func Run(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	// Foreign keys are created below with explicit cascade rules.
	db.Config.DisableForeignKeyConstraintWhenMigrating = true
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"foreign keys", addForeignKeys},
		{"status checks", addStatusChecks},
		{"open job index", addOpenJobIndex},
	}

	for _, m := range migrations {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}

	return nil
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

type foreignKey struct {
	table, name, column, ref string
}

func addForeignKeys(db *gorm.DB) error {
	keys := []foreignKey{
		{"job_posts", "fk_job_posts_user", "user_id", "users(id)"},
		{"job_applications", "fk_job_applications_job_post", "job_post_id", "job_posts(id)"},
		{"job_applications", "fk_job_applications_user", "user_id", "users(id)"},
		{"messages", "fk_messages_sender", "sender_id", "users(id)"},
		{"messages", "fk_messages_receiver", "receiver_id", "users(id)"},
		{"payments", "fk_payments_job_post", "job_post_id", "job_posts(id)"},
		{"payments", "fk_payments_payer", "payer_id", "users(id)"},
	}
	for _, k := range keys {
		stmt := fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s ON DELETE CASCADE;
				END IF;
			END $$;`, k.name, k.table, k.name, k.column, k.ref)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", k.name, err)
		}
	}
	return nil
}

func addStatusChecks(db *gorm.DB) error {
	checks := map[string]string{
		"chk_job_posts_status": `ALTER TABLE job_posts ADD CONSTRAINT chk_job_posts_status CHECK (status IN ('open', 'in-progress', 'closed'))`,
		"chk_payments_status":  `ALTER TABLE payments ADD CONSTRAINT chk_payments_status CHECK (status IN ('pending', 'completed', 'refunded'))`,
		"chk_payments_amount":  `ALTER TABLE payments ADD CONSTRAINT chk_payments_amount CHECK (amount > 0)`,
	}
	for name, ddl := range checks {
		stmt := fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					%s;
				END IF;
			END $$;`, name, ddl)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// addOpenJobIndex speeds up the default listing of open posts.
func addOpenJobIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_posts_open_created
		ON job_posts(created_at DESC)
		WHERE status = 'open'
	`).Error
}
