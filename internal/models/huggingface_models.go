package models

// InferenceBatchRequest is sent to the remote classification service.
type InferenceBatchRequest struct {
	Inputs     []string `json:"inputs"`
	Truncation bool     `json:"truncation"`
	Padding    bool     `json:"padding"`
	MaxLength  int      `json:"max_length"`
}

// InferenceBatchResponse carries one logit row per input, columns ordered as Labels.
type InferenceBatchResponse struct {
	Labels []string    `json:"labels"`
	Logits [][]float64 `json:"logits"`
}
