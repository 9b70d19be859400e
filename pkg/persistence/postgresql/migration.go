package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE journeys (
				id VARCHAR(64) PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'archived')),
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				published_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_journeys_organization_id ON journeys(organization_id);
			CREATE INDEX idx_journeys_status ON journeys(status);
			CREATE INDEX idx_journeys_created_at ON journeys(created_at);

			CREATE TABLE organization_policies (
				organization_id VARCHAR(255) PRIMARY KEY,
				timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
				quiet_hours_start_minute INT CHECK (quiet_hours_start_minute BETWEEN 0 AND 1439),
				quiet_hours_end_minute INT CHECK (quiet_hours_end_minute BETWEEN 0 AND 1439),
				cap_per_day INT NOT NULL DEFAULT 0,
				cap_per_week INT NOT NULL DEFAULT 0,
				cap_per_month INT NOT NULL DEFAULT 0,
				approval_reminder_after_minutes INT NOT NULL DEFAULT 0,
				approval_escalate_after_minutes INT NOT NULL DEFAULT 0,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
		2: `
			CREATE TABLE journey_runs (
				id VARCHAR(64) PRIMARY KEY,
				journey_id VARCHAR(64) NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
				organization_id VARCHAR(255) NOT NULL,
				contact_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'completed', 'blocked')),
				contact JSONB NOT NULL DEFAULT '{}',
				result JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_journey_runs_journey_id ON journey_runs(journey_id);
			CREATE UNIQUE INDEX idx_journey_runs_active_contact
				ON journey_runs(journey_id, contact_id) WHERE status = 'active';

			CREATE TABLE scheduled_actions (
				id VARCHAR(64) PRIMARY KEY,
				run_id VARCHAR(64) NOT NULL REFERENCES journey_runs(id) ON DELETE CASCADE,
				position INT NOT NULL,
				step_id VARCHAR(255) NOT NULL,
				channel VARCHAR(32) NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL DEFAULT '',
				cta_label TEXT NOT NULL DEFAULT '',
				cta_url TEXT NOT NULL DEFAULT '',
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deferred_by_quiet_hours BOOLEAN NOT NULL DEFAULT false,
				status VARCHAR(50) NOT NULL CHECK (status IN ('scheduled', 'suppressed', 'dispatched')),
				reason TEXT NOT NULL DEFAULT '',
				dispatched_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_scheduled_actions_run_id ON scheduled_actions(run_id);
			CREATE INDEX idx_scheduled_actions_due ON scheduled_actions(scheduled_at) WHERE status = 'scheduled';
		`,
	}
}
