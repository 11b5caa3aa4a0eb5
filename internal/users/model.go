package users

import (
	"github.com/modelgate-platform/modelgate/internal/session"
)

// User is owned by the identity subsystem; the policy engine reads it for
// session hydration, admin listings, and tier reference counting. The
// declaration lives in the session package to keep the import graph acyclic.
type User = session.User

type ListParams struct {
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
