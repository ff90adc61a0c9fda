package queue

const (
	TypeScrapeRun     = "scrape:run"
	TypeEmbedRevision = "embed:revision"
	TypeEmailSend     = "email:send"
)

type ScrapeRunPayload struct {
	JobID string `json:"job_id"`
}

type EmbedRevisionPayload struct {
	RevisionID string `json:"revision_id"`
}

type EmailSendPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
