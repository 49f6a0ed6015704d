package models

import "time"

// BackupInfo describes one on-disk backup directory. The same shape
// reports what a restore loaded back in.
type BackupInfo struct {
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	Students    int       `json:"students"`
	Courses     int       `json:"courses"`
	Enrollments int       `json:"enrollments"`
}
