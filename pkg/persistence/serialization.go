package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/types"
)

// Well-known document names shared by every store implementation.
const (
	CommitmentDocumentName = "merkle.json"
	RangeIndexDocumentName = "mapping.json"
	ClaimsPrefix           = "claims/"
	ChunksPrefix           = "chunks/"
)

// ClaimsPartitionName returns the name of the proof partition starting at index.
func ClaimsPartitionName(start int) string {
	return fmt.Sprintf("%sclaims-%d.json", ClaimsPrefix, start)
}

// ChunkName returns the name of the cohort document keyed by its lowercase first account.
func ChunkName(firstAccount string) string {
	return fmt.Sprintf("%s%s.json", ChunksPrefix, firstAccount)
}

// MarshalCommitment serializes a CommitmentDocument to JSON bytes.
func MarshalCommitment(doc *types.CommitmentDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("cannot marshal nil CommitmentDocument")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CommitmentDocument to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalCommitment deserializes a CommitmentDocument from JSON bytes.
func UnmarshalCommitment(data []byte) (*types.CommitmentDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var doc types.CommitmentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to CommitmentDocument: %w", err)
	}

	return &doc, nil
}

// MarshalClaims serializes a claim document to JSON bytes.
func MarshalClaims(claims types.Claims) ([]byte, error) {
	if claims == nil {
		claims = types.Claims{}
	}
	return json.Marshal(claims)
}

// UnmarshalClaims deserializes a claim document from JSON bytes.
func UnmarshalClaims(data []byte) (types.Claims, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	claims := types.Claims{}
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Claims: %w", err)
	}

	return claims, nil
}

// MarshalRangeIndex serializes a RangeIndex to JSON bytes.
func MarshalRangeIndex(index types.RangeIndex) ([]byte, error) {
	if index == nil {
		index = types.RangeIndex{}
	}
	return json.Marshal(index)
}

// UnmarshalRangeIndex deserializes a RangeIndex from JSON bytes.
func UnmarshalRangeIndex(data []byte) (types.RangeIndex, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	index := types.RangeIndex{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to RangeIndex: %w", err)
	}

	return index, nil
}

// LoadClaims reads and decodes a claim document.
// Returns nil if the document doesn't exist.
func LoadClaims(store IDocumentStore, name string) (types.Claims, error) {
	data, err := store.LoadDocument(name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return UnmarshalClaims(data)
}
