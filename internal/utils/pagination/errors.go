package pagination

import svcErr "github.com/oggyb/devmatch/internal/errors"

// ErrInvalidToken is returned for tokens that were not produced by Encode.
var ErrInvalidToken = svcErr.Invalid("invalid pagination token")
