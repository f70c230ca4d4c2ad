package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID         string    `json:"id"`
	PropertyID *string   `json:"propertyId"`
	Type       string    `json:"type"`
	URL        *string   `json:"url"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		PropertyID: doc.PropertyID,
		Type:       string(doc.Type),
		URL:        doc.URL,
		Status:     string(doc.Status),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func toResponses(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	return out
}
