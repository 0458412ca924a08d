package media

import "path/filepath"

// Artifact is a reference to a produced audio asset. It is owned by the
// job that produced it and never shared across jobs.
type Artifact struct {
	// Path is the internal filesystem path of the asset
	Path string `json:"file_path"`

	// Duration of the audio in seconds
	Duration float64 `json:"duration"`

	// Size of the file in bytes
	Size int64 `json:"file_size"`

	// Format is the container format, e.g. "wav"
	Format string `json:"format"`
}

// WebPath derives the externally addressable reference for the artifact.
// External consumers never see the internal filesystem path.
func (a *Artifact) WebPath(publicPrefix string) string {
	if a == nil {
		return ""
	}
	return publicPrefix + "/" + filepath.Base(a.Path)
}
