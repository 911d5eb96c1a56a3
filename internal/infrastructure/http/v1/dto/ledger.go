package dto

import (
	"stockledger/internal/domain/ledger"
)

// PostTransactionRequest records a stock movement against one item.
type PostTransactionRequest struct {
	InventoryID     string      `json:"inventoryId" binding:"required"`
	TransactionType ledger.Type `json:"transactionType" binding:"required"`
	Quantity        int64       `json:"quantity"`
	Reference       string      `json:"reference"`
	Notes           string      `json:"notes"`
	CreatedBy       string      `json:"createdBy"`
}

// ToRequest converts the DTO to a service request.
func (r *PostTransactionRequest) ToRequest() (ledger.PostRequest, error) {
	itemID, err := parseID("inventoryId", r.InventoryID)
	if err != nil {
		return ledger.PostRequest{}, err
	}
	return ledger.PostRequest{
		InventoryID: itemID,
		Type:        r.TransactionType,
		Quantity:    r.Quantity,
		Reference:   r.Reference,
		Notes:       r.Notes,
		CreatedBy:   r.CreatedBy,
	}, nil
}

// TransferRequest moves stock of an item to another location.
type TransferRequest struct {
	SourceItemID          string `json:"sourceItemId" binding:"required"`
	DestinationLocationID string `json:"destinationLocationId" binding:"required"`
	Quantity              int64  `json:"quantity"`
	Reference             string `json:"reference"`
	Notes                 string `json:"notes"`
	CreatedBy             string `json:"createdBy"`
}

// ToRequest converts the DTO to a service request.
func (r *TransferRequest) ToRequest() (ledger.TransferRequest, error) {
	sourceID, err := parseID("sourceItemId", r.SourceItemID)
	if err != nil {
		return ledger.TransferRequest{}, err
	}
	destinationID, err := parseID("destinationLocationId", r.DestinationLocationID)
	if err != nil {
		return ledger.TransferRequest{}, err
	}
	return ledger.TransferRequest{
		SourceItemID:          sourceID,
		DestinationLocationID: destinationID,
		Quantity:              r.Quantity,
		Reference:             r.Reference,
		Notes:                 r.Notes,
		CreatedBy:             r.CreatedBy,
	}, nil
}

// ListTransactionsQuery selects transactions by external reference.
type ListTransactionsQuery struct {
	Reference string `form:"reference" binding:"required"`
}
