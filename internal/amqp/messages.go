package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrMissingJobID = errors.New("missing job id")

// AnalysisRequestMessage asks the worker to run one analysis. Omitted
// parameters fall back to the worker's defaults.
type AnalysisRequestMessage struct {
	JobID        string    `json:"job_id"`
	Years        []int     `json:"years,omitempty"`
	ClusterCount *int      `json:"cluster_count,omitempty"`
	TopN         *int      `json:"top_n,omitempty"`
	Seed         *int64    `json:"seed,omitempty"`
	Restarts     int       `json:"restarts,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewAnalysisRequestMessage creates a request with a fresh job id. Nil
// clusterCount or topN leave the choice to the worker.
func NewAnalysisRequestMessage(years []int, clusterCount, topN *int) *AnalysisRequestMessage {
	return &AnalysisRequestMessage{
		JobID:        uuid.NewString(),
		Years:        years,
		ClusterCount: clusterCount,
		TopN:         topN,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AnalysisRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalysisRequestMessageFromJSON decodes a request and checks its job id.
func AnalysisRequestMessageFromJSON(data []byte) (*AnalysisRequestMessage, error) {
	var msg AnalysisRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.JobID); err != nil {
		return nil, ErrMissingJobID
	}
	return &msg, nil
}

// Result statuses.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// ClusterResult is the compact form of a cluster summary.
type ClusterResult struct {
	ID              int      `json:"id"`
	Members         []string `json:"members"`
	Representative  string   `json:"representative,omitempty"`
	DominantQuarter int      `json:"dominant_quarter,omitempty"`
	SeasonHint      string   `json:"season_hint,omitempty"`
}

// Mover is one share change between adjacent periods.
type Mover struct {
	Period   string  `json:"period"`
	Category string  `json:"category"`
	DeltaPP  float64 `json:"delta_pp"`
}

// AnalysisResultMessage is published for every consumed request.
type AnalysisResultMessage struct {
	JobID      string          `json:"job_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
	Silhouette *float64        `json:"silhouette,omitempty"`
	Quality    string          `json:"quality,omitempty"`
	Clusters   []ClusterResult `json:"clusters,omitempty"`
	Risers     []Mover         `json:"risers,omitempty"`
	Fallers    []Mover         `json:"fallers,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *AnalysisResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalysisResultMessageFromJSON creates a message from JSON bytes
func AnalysisResultMessageFromJSON(data []byte) (*AnalysisResultMessage, error) {
	var msg AnalysisResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
