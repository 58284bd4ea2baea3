// Package schema defines the payloads exchanged with the workflow-execution
// service and validates them. Every type here carries `validate` tags that are
// checked by Validate; ParseRequest applies the same checks to inbound HTTP
// requests such as webhook deliveries.
package schema

// RunStatus is the lifecycle state reported for a run
type RunStatus string

// Known run statuses. The set is closed: anything else fails validation.
const (
	StatusNotStarted RunStatus = "not-started"
	StatusRunning    RunStatus = "running"
	StatusUploading  RunStatus = "uploading"
	StatusSuccess    RunStatus = "success"
	StatusFailed     RunStatus = "failed"
	StatusStarted    RunStatus = "started"
	StatusQueued     RunStatus = "queued"
	StatusTimeout    RunStatus = "timeout"
)

// RunStatuses lists every accepted status in declaration order
var RunStatuses = []RunStatus{
	StatusNotStarted,
	StatusRunning,
	StatusUploading,
	StatusSuccess,
	StatusFailed,
	StatusStarted,
	StatusQueued,
	StatusTimeout,
}

// Valid reports whether s is one of the known statuses
func (s RunStatus) Valid() bool {
	for _, known := range RunStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// RunRequest is the body of POST /run
type RunRequest struct {
	DeploymentID string            `json:"deployment_id" validate:"required"`
	Inputs       map[string]string `json:"inputs,omitempty"`
	Webhook      string            `json:"webhook,omitempty"`
}

// RunHandle identifies a submitted run
type RunHandle struct {
	RunID string `json:"run_id" validate:"required"`
}

// OutputFile is a single produced artifact. URL and Filename are opaque.
type OutputFile struct {
	URL      string `json:"url" validate:"required"`
	Filename string `json:"filename" validate:"required"`
}

// OutputData groups artifacts by kind
type OutputData struct {
	Images []OutputFile `json:"images,omitempty" validate:"omitempty,dive"`
	Files  []OutputFile `json:"files,omitempty" validate:"omitempty,dive"`
	Gifs   []OutputFile `json:"gifs,omitempty" validate:"omitempty,dive"`
}

// OutputGroup is one entry of a run's outputs
type OutputGroup struct {
	Data OutputData `json:"data"`
}

// RunOutput is the status snapshot returned by GET /run.
//
// A RunOutput that only carries ID is what RunSync hands back when polling
// runs out of attempts; it marshals to {"id": ...} and Incomplete reports true.
type RunOutput struct {
	ID         string        `json:"id" validate:"required"`
	Status     RunStatus     `json:"status,omitempty" validate:"required,runstatus"`
	Outputs    []OutputGroup `json:"outputs,omitempty" validate:"required,dive"`
	LiveStatus *string       `json:"live_status,omitempty"`
	Progress   float64       `json:"progress,omitempty"`
}

// Incomplete reports whether o only identifies the run without a status
func (o *RunOutput) Incomplete() bool {
	return o.Status == "" && o.Outputs == nil
}

// UploadTicket holds one-shot credentials for a single file upload
type UploadTicket struct {
	UploadURL   string `json:"upload_url" validate:"required"`
	FileID      string `json:"file_id" validate:"required"`
	DownloadURL string `json:"download_url" validate:"required"`
}

// WebsocketEndpoint is where live progress for a deployment is published
type WebsocketEndpoint struct {
	WSConnectionURL string `json:"ws_connection_url" validate:"required"`
}

// WebhookPayload is what the service delivers to a run's webhook URL
type WebhookPayload struct {
	Status  RunStatus     `json:"status" validate:"required,runstatus"`
	RunID   string        `json:"run_id" validate:"required"`
	Outputs []OutputGroup `json:"outputs" validate:"required,dive"`
}
