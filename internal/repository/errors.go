package repository

import "errors"

// ErrNoRowsAffected reports an update that matched no row.
var ErrNoRowsAffected = errors.New("no rows affected")
