package postgresql

// migrations returns the schema migrations for campaign execution state.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS contact_campaigns (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				contact_id TEXT NOT NULL,
				lead_id TEXT NOT NULL DEFAULT '',
				plan_json JSONB NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				current_node_id TEXT NOT NULL,
				entered_node_at TIMESTAMP WITH TIME ZONE NOT NULL,
				version BIGINT NOT NULL DEFAULT 1,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_contact_campaigns_tenant
				ON contact_campaigns (tenant_id, contact_id);

			CREATE TABLE IF NOT EXISTS scheduled_actions (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				campaign_id TEXT NOT NULL REFERENCES contact_campaigns(id),
				node_id TEXT NOT NULL,
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				payload JSONB NOT NULL,
				claimed_at TIMESTAMP WITH TIME ZONE,
				executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_scheduled_actions_due
				ON scheduled_actions (scheduled_at)
				WHERE executed_at IS NULL AND claimed_at IS NULL;

			CREATE INDEX IF NOT EXISTS idx_scheduled_actions_campaign
				ON scheduled_actions (campaign_id);

			CREATE TABLE IF NOT EXISTS message_events (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				message_id TEXT NOT NULL,
				type TEXT NOT NULL,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_message_events_message
				ON message_events (tenant_id, message_id, type);

			CREATE TABLE IF NOT EXISTS outbound_messages (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				campaign_id TEXT NOT NULL REFERENCES contact_campaigns(id),
				node_id TEXT NOT NULL,
				channel TEXT NOT NULL DEFAULT '',
				dedupe_key TEXT NOT NULL UNIQUE,
				provider_message_id TEXT NOT NULL DEFAULT '',
				send_at TIMESTAMP WITH TIME ZONE NOT NULL,
				sent_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_outbound_messages_campaign
				ON outbound_messages (campaign_id, node_id);
		`,
	}
}
