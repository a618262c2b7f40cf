// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	display_name TEXT,
	google_id TEXT,
	onboarding_complete INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS emails (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	thread_id TEXT,
	subject TEXT,
	to_addrs TEXT,
	cc_addrs TEXT,
	bcc_addrs TEXT,
	body TEXT,
	sent_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, message_id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_emails_user ON emails(user_id);

CREATE TABLE IF NOT EXISTS campaigns (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	query TEXT,
	style_prompt TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_campaigns_user ON campaigns(user_id);

CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT,
	company TEXT,
	title TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (campaign_id) REFERENCES campaigns(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign ON leads(campaign_id);

CREATE TABLE IF NOT EXISTS templates (
	id TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (campaign_id) REFERENCES campaigns(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_templates_campaign ON templates(campaign_id);

CREATE TABLE IF NOT EXISTS cadences (
	id TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	steps TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (campaign_id) REFERENCES campaigns(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cadences_campaign ON cadences(campaign_id);

CREATE TABLE IF NOT EXISTS questionnaire_answers (
	user_id TEXT PRIMARY KEY,
	answers TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS pipeline_state (
	name TEXT PRIMARY KEY,
	status TEXT CHECK(status IN ('idle', 'running', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
