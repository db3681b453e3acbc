package main

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// DSN needs multiStatements=true for this tool.
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS users (
	  id CHAR(36) NOT NULL,
	  name VARCHAR(128) NOT NULL,
	  dob DATE NULL,
	  department VARCHAR(64) NOT NULL,
	  phone VARCHAR(20) NULL,
	  email VARCHAR(255) NOT NULL,
	  registration_number VARCHAR(32) NOT NULL,
	  passout_year INT NOT NULL,
	  password_hash VARBINARY(72) NOT NULL,
	  role VARCHAR(16) NOT NULL,
	  membership_status VARCHAR(16) NOT NULL DEFAULT 'unpaid',
	  upgraded_to_alumni_at DATETIME(3) NULL,
	  failed_login_attempts INT NOT NULL DEFAULT 0,
	  locked_until DATETIME(3) NULL,
	  joined_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_users_email (email),
	  UNIQUE KEY ux_users_registration_number (registration_number),
	  KEY ix_users_role_passout (role, passout_year)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS refresh_tokens (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  token_hash CHAR(64) NOT NULL,
	  expires_at DATETIME(3) NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_refresh_tokens_hash (token_hash),
	  KEY ix_refresh_tokens_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS student_master (
	  id CHAR(36) NOT NULL,
	  registration_number VARCHAR(32) NOT NULL,
	  name VARCHAR(128) NOT NULL,
	  department VARCHAR(64) NOT NULL,
	  passout_year INT NOT NULL,
	  status VARCHAR(16) NOT NULL DEFAULT 'active',
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_student_master_reg_no (registration_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS payments (
	  id CHAR(36) NOT NULL,
	  order_id VARCHAR(64) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  amount INT NOT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'INR',
	  purpose VARCHAR(16) NOT NULL,
	  status VARCHAR(32) NOT NULL DEFAULT 'created',
	  payment_id VARCHAR(64) NULL,
	  metadata JSON NULL,
	  raw JSON NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_payments_order_id (order_id),
	  KEY ix_payments_user_id (user_id),
	  KEY ix_payments_status_created (status, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS webhook_events (
	  id CHAR(36) NOT NULL,
	  event_type VARCHAR(64) NOT NULL,
	  payload JSON NOT NULL,
	  signature_valid TINYINT(1) NOT NULL DEFAULT 0,
	  status VARCHAR(16) NOT NULL,
	  retry_count INT NOT NULL DEFAULT 0,
	  process_error VARCHAR(255) NULL,
	  received_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  processed_at DATETIME(3) NULL,
	  last_retry_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  KEY ix_webhook_events_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS donations (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  order_id VARCHAR(64) NOT NULL,
	  payment_id VARCHAR(64) NOT NULL,
	  amount INT NOT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'INR',
	  donation_purpose VARCHAR(64) NOT NULL DEFAULT 'general',
	  status VARCHAR(16) NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_donations_order_id (order_id),
	  KEY ix_donations_user_id (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS events (
	  id CHAR(36) NOT NULL,
	  title VARCHAR(255) NOT NULL,
	  department VARCHAR(64) NOT NULL DEFAULT 'All',
	  description TEXT NOT NULL,
	  event_date DATETIME(3) NOT NULL,
	  location VARCHAR(255) NOT NULL,
	  is_paid TINYINT(1) NOT NULL DEFAULT 0,
	  fee_amount INT NOT NULL DEFAULT 0,
	  created_by CHAR(36) NOT NULL,
	  approved TINYINT(1) NOT NULL DEFAULT 0,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_events_created_by (created_by),
	  KEY ix_events_approved_date (approved, event_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS event_attendees (
	  id CHAR(36) NOT NULL,
	  event_id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  ticket_id CHAR(36) NOT NULL,
	  payment_status VARCHAR(8) NOT NULL DEFAULT 'free',
	  registered_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_event_attendees_event_user (event_id, user_id),
	  UNIQUE KEY ux_event_attendees_ticket (ticket_id),
	  CONSTRAINT fk_event_attendees_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS jobs (
	  id CHAR(36) NOT NULL,
	  title VARCHAR(255) NOT NULL,
	  company VARCHAR(128) NOT NULL,
	  description TEXT NOT NULL,
	  location VARCHAR(255) NOT NULL,
	  job_type VARCHAR(16) NOT NULL DEFAULT 'full-time',
	  salary_range VARCHAR(64) NULL,
	  application_link VARCHAR(512) NULL,
	  created_by CHAR(36) NOT NULL,
	  approved TINYINT(1) NOT NULL DEFAULT 0,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_jobs_created_by (created_by),
	  KEY ix_jobs_approved (approved)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS notifications (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  title VARCHAR(128) NOT NULL,
	  message VARCHAR(512) NOT NULL,
	  ` + "`read`" + ` TINYINT(1) NOT NULL DEFAULT 0,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_notifications_user_id (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS upgrade_logs (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  user_name VARCHAR(128) NOT NULL,
	  email VARCHAR(255) NOT NULL,
	  passout_year INT NOT NULL,
	  upgraded_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_upgrade_logs_user_id (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("✓ all tables created successfully")
}
