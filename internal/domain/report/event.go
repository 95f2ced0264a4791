package report

import "github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"

// EventsTopic is the hub topic carrying report lifecycle events.
const EventsTopic = "reports"

const (
	EventGenerated = "report.generated"
	EventModified  = "report.modified"
	EventPurged    = "reports.purged"
)

// EventPublisher receives report lifecycle events. *sse.Hub satisfies it.
type EventPublisher interface {
	Publish(topic string, ev sse.Event)
}

type GeneratedEvent struct {
	ReportID    string `json:"report_id"`
	Period      string `json:"period"`
	Employees   int    `json:"employees"`
	DownloadURL string `json:"download_url"`
}

type ModifiedEvent struct {
	ReportID      string `json:"report_id"`
	ParentID      string `json:"parent_id"`
	Employee      string `json:"employee"`
	Modifications int    `json:"modifications"`
	DownloadURL   string `json:"download_url"`
}

type PurgedEvent struct {
	Deleted   int      `json:"deleted"`
	ReportIDs []string `json:"report_ids"`
}
