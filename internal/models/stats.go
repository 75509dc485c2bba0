package models

import "time"

// SkillCount pairs a skill name with the number of verified certificates.
type SkillCount struct {
	Skill string `db:"skill" json:"skill"`
	Count int    `db:"count" json:"count"`
}

// PlatformStats aggregates certificate totals for the stats endpoint.
type PlatformStats struct {
	TotalCertificates int          `json:"total_certificates"`
	TotalVerified     int          `json:"total_verified"`
	TotalMinted       int          `json:"total_minted"`
	TotalRejected     int          `json:"total_rejected"`
	TotalRevoked      int          `json:"total_revoked"`
	AverageScore      float64      `json:"average_score"`
	TopSkills         []SkillCount `json:"top_skills"`
	GeneratedAt       time.Time    `json:"generated_at"`
}
