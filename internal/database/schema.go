package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the MySQL DDL for every table the service touches.  The
// foreign keys deliberately do not cascade: repositories delete
// children first using explicit delete plans.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NOT NULL DEFAULT '',
		role          VARCHAR(16)  NOT NULL DEFAULT 'user',
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME(6)     NOT NULL,
		revoked_at DATETIME(6)     NULL,
		created_at DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_refresh_hash (token_hash),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS maps (
		id                   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		map_id               VARCHAR(128)    NOT NULL,
		title                VARCHAR(255)    NOT NULL,
		description          TEXT            NOT NULL,
		owner_user_id        BIGINT UNSIGNED NOT NULL,
		is_publicly_editable TINYINT(1)      NOT NULL DEFAULT 0,
		created_at           DATETIME(6)     NOT NULL,
		updated_at           DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_maps_map_id (map_id),
		KEY idx_maps_owner (owner_user_id),
		CONSTRAINT fk_maps_owner FOREIGN KEY (owner_user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS floors (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		map_id       BIGINT UNSIGNED NOT NULL,
		floor_number INT             NOT NULL,
		name         VARCHAR(255)    NOT NULL,
		image_url    VARCHAR(1024)   NULL,
		image_key    VARCHAR(512)    NULL,
		created_at   DATETIME(6)     NOT NULL,
		updated_at   DATETIME(6)     NOT NULL,
		KEY idx_floors_map (map_id, floor_number),
		CONSTRAINT fk_floors_map FOREIGN KEY (map_id) REFERENCES maps(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS public_editors (
		id             CHAR(36)        NOT NULL PRIMARY KEY,
		map_id         BIGINT UNSIGNED NOT NULL,
		nickname       VARCHAR(64)     NOT NULL,
		editor_token   VARCHAR(128)    NOT NULL,
		last_active_at DATETIME(6)     NOT NULL,
		created_at     DATETIME(6)     NOT NULL,
		KEY idx_editors_map (map_id),
		CONSTRAINT fk_editors_map FOREIGN KEY (map_id) REFERENCES maps(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS pins (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		floor_id        BIGINT UNSIGNED NOT NULL,
		title           VARCHAR(255)    NOT NULL,
		description     TEXT            NOT NULL,
		x_position      DOUBLE          NOT NULL,
		y_position      DOUBLE          NOT NULL,
		editor_id       CHAR(36)        NULL,
		editor_nickname VARCHAR(64)     NULL,
		created_at      DATETIME(6)     NOT NULL,
		updated_at      DATETIME(6)     NOT NULL,
		KEY idx_pins_floor (floor_id),
		CONSTRAINT fk_pins_floor FOREIGN KEY (floor_id) REFERENCES floors(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates missing tables.  Existing tables are left as-is.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
