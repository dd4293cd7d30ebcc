package models

// VideoInfo represents video metadata returned by /api/info
type VideoInfo struct {
	Title     string
	Author    string
	Duration  int
	Views     int64
	Thumbnail string
	// Degraded marks placeholder values produced after the upstream lookup failed
	Degraded bool
}

// LocalArtifact is a media file produced by yt-dlp in the scratch directory
type LocalArtifact struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// RemoteArtifact is a direct media URL resolved through a third-party API
type RemoteArtifact struct {
	DownloadURL string
	Filename    string
	Provider    string
}

// Artifact is the result of a download fetch. Exactly one field is set.
type Artifact struct {
	Local  *LocalArtifact
	Remote *RemoteArtifact
}
