package publishanalysisevent

type Input struct {
	PitchID                  string `json:"pitchId"`
	RunID                    string `json:"runId"`
	Status                   string `json:"analysisStatus"`
	FinalIRSScore            int    `json:"finalIrsScore"`
	FinalCSScore             int    `json:"finalCsScore"`
	InvestmentRecommendation string `json:"investmentRecommendation"`
}

type Output struct {
	EventID     string `json:"eventId"`
	MessageID   string `json:"messageId,omitempty"`
	EventStatus string `json:"eventStatus"`
	PublishedAt string `json:"publishedAt"`
}

// AnalysisEvent is the message body published to the topic.
type AnalysisEvent struct {
	EventID                  string `json:"eventId"`
	EventType                string `json:"eventType"`
	PitchID                  string `json:"pitchId"`
	RunID                    string `json:"runId"`
	Status                   string `json:"analysisStatus"`
	FinalIRSScore            int    `json:"finalIrsScore"`
	FinalCSScore             int    `json:"finalCsScore"`
	InvestmentRecommendation string `json:"investmentRecommendation,omitempty"`
	OccurredAt               string `json:"occurredAt"`
}

const EventTypeAnalysisCompleted = "pitch.analysis.completed"

const (
	StatusPublished = "published"
	StatusDisabled  = "disabled"
)

const inputSchema = `{
	"type": "object",
	"required": ["pitchId", "runId"],
	"properties": {
		"pitchId": {"type": "string"},
		"runId": {"type": "string"},
		"analysisStatus": {"type": "string"},
		"finalIrsScore": {"type": "number"},
		"finalCsScore": {"type": "number"},
		"investmentRecommendation": {"type": "string"}
	}
}`
