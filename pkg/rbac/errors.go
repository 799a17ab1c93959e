package rbac

import "errors"

// ErrRoleNotFound indicates no custom role matched the lookup
var ErrRoleNotFound = errors.New("role not found")
