package dto

import "github.com/google/uuid"

type ResolveRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

type ResolveBatchRequest struct {
	ItemIDs  []uuid.UUID `json:"item_ids"`
	Decision string      `json:"decision"`
	Reason   string      `json:"reason,omitempty"`
}
