// Package retrieval implements the read-side operations that let a
// caller drill from an injected summary back into the exact original
// messages, or search across a session's whole history.
package retrieval

import "github.com/basket/go-claw/internal/store"

// PageSize is the fixed page size for every paginated retrieval
// operation, per §4.6.
const PageSize = 10

// PreviewChars is the length of the summary preview attached to each
// Grep result group.
const PreviewChars = 200

// MessagePreviewChars is the length messages are truncated to for
// display, per §4.6.
const MessagePreviewChars = 500

// Retriever runs retrieval operations against a store.
type Retriever struct {
	Store *store.Store
}

// New builds a Retriever over st.
func New(st *store.Store) *Retriever {
	return &Retriever{Store: st}
}

func offsetForPage(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}

func truncateForDisplay(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
