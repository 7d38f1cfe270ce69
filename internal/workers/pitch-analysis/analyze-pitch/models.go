package analyzepitch

// Input is read from the process variables.
type Input struct {
	PitchID string `json:"pitchId"`
}

// Output becomes the completed job's variables.
type Output struct {
	PitchID                  string                 `json:"pitchId"`
	RunID                    string                 `json:"runId"`
	Status                   string                 `json:"analysisStatus"`
	FinalIRSScore            int                    `json:"finalIrsScore"`
	FinalCSScore             int                    `json:"finalCsScore"`
	Uniqueness               int                    `json:"uniqueness"`
	InvestmentRecommendation string                 `json:"investmentRecommendation"`
	Warnings                 []string               `json:"analysisWarnings"`
	Report                   map[string]interface{} `json:"analysisReport,omitempty"`
}

const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
)

const inputSchema = `{
	"type": "object",
	"required": ["pitchId"],
	"properties": {
		"pitchId": {"type": "string"}
	}
}`
