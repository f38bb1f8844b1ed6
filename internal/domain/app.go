package domain

import "time"

// Manifest is the manifest.json record stored in every app directory.
// Files is advisory: the directory scan is authoritative.
type Manifest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Created     time.Time  `json:"created"`
	Updated     *time.Time `json:"updated,omitempty"`
	Files       []string   `json:"files"`
}

// AppInfo describes one app bundle as seen on disk.
type AppInfo struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Files         []string  `json:"files"`
	Manifest      *Manifest `json:"manifest,omitempty"`
	ManifestError string    `json:"manifest_error,omitempty"`
}

// ServerInfo describes the running static app server session.
type ServerInfo struct {
	App       string    `json:"app"`
	Dir       string    `json:"dir"`
	Port      int       `json:"port"`
	URL       string    `json:"url"`
	StartedAt time.Time `json:"started_at"`
}
