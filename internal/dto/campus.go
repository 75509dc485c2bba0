package dto

// BatchMintRequest starts an asynchronous campus batch verification job.
type BatchMintRequest struct {
	StudentWallets []string `json:"student_wallets" binding:"required,min=1,dive,required"`
	Skill          string   `json:"skill" binding:"required"`
	SkillLevel     string   `json:"skill_level"`
}

// BatchMintResponse acknowledges a queued batch job.
type BatchMintResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
