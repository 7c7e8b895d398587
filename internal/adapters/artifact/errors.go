package artifact

import "errors"

// Sentinel kinds for artifact errors.
var (
	ErrLoadArtifact    = errors.New("load model artifact failed")
	ErrInvalidArtifact = errors.New("invalid model artifact")
)
