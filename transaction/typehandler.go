package transaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// DocumentID is the stored form of a document reference: the ID of its
// collection and its binary key.
type DocumentID struct {
	Collection int64
	Key        []byte
}

// TypeHandler converts custom stored value types to and from their external
// representation.
type TypeHandler struct {
	resolver *Resolver
}

func newTypeHandler(resolver *Resolver) *TypeHandler {
	return &TypeHandler{resolver: resolver}
}

// Encode renders a document ID as "<collection name>/<base58 key>".
func (h *TypeHandler) Encode(ctx context.Context, id DocumentID) (string, error) {
	name, err := h.resolver.Name(ctx, id.Collection)
	if err != nil {
		return "", fmt.Errorf("failed resolving collection of document ID: %w", err)
	}

	return name + "/" + base58.Encode(id.Key), nil
}

// Decode parses the external representation produced by Encode. The collection
// may also be given by its numeric ID.
func (h *TypeHandler) Decode(ctx context.Context, s string) (DocumentID, error) {
	name, key, ok := strings.Cut(s, "/")
	if !ok || name == "" || key == "" {
		return DocumentID{}, fmt.Errorf("invalid document ID '%s'", s)
	}

	keyData, err := base58.Decode(key)
	if err != nil {
		return DocumentID{}, fmt.Errorf("invalid document key '%s': %w", key, err)
	}

	coll, err := h.resolver.ID(ctx, name)
	if err != nil {
		return DocumentID{}, fmt.Errorf("failed resolving collection of document ID: %w", err)
	}

	return DocumentID{Collection: coll, Key: keyData}, nil
}
