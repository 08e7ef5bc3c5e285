package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// mysqlSchema creates the users and crops tables. A NULL delivery number
// does not collide with other NULLs, so the unique key only applies once
// a distributor has written the group.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL,
		phone         VARCHAR(32)  NOT NULL,
		address       TEXT         NOT NULL,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS crops (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		crop_id      VARCHAR(128)    NOT NULL,
		crop_name    VARCHAR(255)    NOT NULL,
		quantity     DOUBLE          NOT NULL,
		price        DOUBLE          NOT NULL,
		location     VARCHAR(255)    NOT NULL,
		harvest_date DATETIME        NOT NULL,
		expiry_date  DATETIME        NOT NULL,
		created_at   DATETIME        NOT NULL,
		farmer_id    CHAR(36)        NOT NULL,

		distributor_id              CHAR(36)     NULL,
		distributor_price           DOUBLE       NULL,
		distributor_date            DATETIME     NULL,
		distributor_location        VARCHAR(255) NULL,
		distributor_delivery_name   VARCHAR(255) NULL,
		distributor_phone           VARCHAR(32)  NULL,
		distributor_delivery_number BIGINT       NULL,

		retailer_id       CHAR(36)     NULL,
		retailer_price    DOUBLE       NULL,
		retailer_date     DATETIME     NULL,
		retailer_location VARCHAR(255) NULL,

		UNIQUE KEY uq_crops_crop_id (crop_id),
		UNIQUE KEY uq_crops_delivery_number (distributor_delivery_number),
		KEY idx_crops_farmer (farmer_id),
		KEY idx_crops_distributor (distributor_id),
		KEY idx_crops_retailer (retailer_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the MySQL schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
