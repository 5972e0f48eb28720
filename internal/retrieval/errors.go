package retrieval

import "errors"

// Sentinel errors for the retrieval subsystem. Callers match them with
// errors.Is to translate failures into their own envelopes — the HTTP
// layer maps ErrUnknownStore to a 400, ErrEmbeddingUnavailable to a 502,
// and ErrStorageUnavailable to a 503.
//
// None of these are retried inside the store. A failed embed or storage
// call surfaces verbatim; retry policy, if any, belongs to the caller.
var (
	// ErrEmbeddingUnavailable indicates the embedding provider is
	// misconfigured, unreachable, or returned a malformed response.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch indicates two vectors of differing length were
	// compared. Dimensionality is checked only at scoring time — stores
	// never validate it on insert.
	ErrDimensionMismatch = errors.New("embedding dimensionality mismatch")

	// ErrUnknownStore indicates a store name that is not a member of the
	// Composite. This is a caller error, never a transient failure.
	ErrUnknownStore = errors.New("unknown store")

	// ErrStorageUnavailable indicates the backing store could not be
	// constructed or accessed (unwritable path, broken schema, lost
	// connection).
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidConfig indicates malformed store-factory input.
	ErrInvalidConfig = errors.New("invalid store configuration")
)
