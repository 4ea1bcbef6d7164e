package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates both tables. Statements are idempotent and run in order.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS upload_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) NOT NULL,
		file_size BIGINT NOT NULL,
		academic_year VARCHAR(32) NOT NULL,
		class_name VARCHAR(64) NOT NULL,
		total_records INT NOT NULL,
		uploaded_by VARCHAR(255) NOT NULL DEFAULT '',
		storage_key VARCHAR(512) NULL,
		uploaded_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_upload_partition (academic_year, class_name),
		KEY idx_upload_uploaded_at (uploaded_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS exam_results (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		roll_number VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		father_name VARCHAR(255) NULL,
		academic_year VARCHAR(32) NOT NULL,
		class_name VARCHAR(64) NOT NULL,
		subjects JSON NOT NULL,
		total_marks DECIMAL(10,2) NOT NULL,
		obtain_marks DECIMAL(10,2) NOT NULL,
		percentage DECIMAL(5,2) NOT NULL,
		status VARCHAR(32) NOT NULL,
		grade VARCHAR(8) NOT NULL,
		uploaded_filename VARCHAR(255) NOT NULL,
		uploaded_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_result_identity (roll_number, academic_year, class_name),
		KEY idx_result_partition (academic_year, class_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
