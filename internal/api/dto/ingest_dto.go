package dto

// GenericWebhookRequest is the provider-agnostic ingestion envelope. Payload
// field names fall back across the vocabularies the known connectors use.
type GenericWebhookRequest struct {
	Provider string                `json:"provider"`
	Token    string                `json:"token"`
	Payload  GenericWebhookPayload `json:"payload"`
}

// GenericWebhookPayload is the union of field names accepted on the generic
// endpoint.
type GenericWebhookPayload struct {
	Summary            string `json:"summary"`
	TriggerName        string `json:"trigger_name"`
	Description        string `json:"description"`
	TriggerDescription string `json:"trigger_description"`
	Priority           string `json:"priority"`
	Severity           string `json:"severity"`
	Key                string `json:"key"`
	EventID            string `json:"eventid"`
	CustomerName       string `json:"customer_name"`
	TenantID           string `json:"tenant_id"`
}

// ZabbixWebhookRequest is the tool-native shape Zabbix media types post.
type ZabbixWebhookRequest struct {
	Token        string `json:"token"`
	TriggerName  string `json:"trigger_name"`
	Host         string `json:"host"`
	Message      string `json:"message"`
	Severity     string `json:"severity"`
	EventID      string `json:"eventid"`
	TenantID     string `json:"tenant_id"`
	CustomerName string `json:"customer_name"`
}

// IngestResponse acknowledges an accepted incident.
type IngestResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}
