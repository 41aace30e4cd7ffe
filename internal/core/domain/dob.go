package domain

// DigitalObject is a non-fungible on-chain object (spore / DOB).
type DigitalObject struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Content     []byte    `json:"content,omitempty"`
	ClusterID   string    `json:"cluster_id,omitempty"`
	Owner       Address   `json:"owner,omitempty"`
	OutPoint    string    `json:"out_point,omitempty"`
	Source      SourceTag `json:"source"`
}
