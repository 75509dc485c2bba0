package dto

// VerifyCodeRequest asks the scoring oracle for a direct analysis without
// creating a submission.
type VerifyCodeRequest struct {
	RepoURL string `json:"repo_url" binding:"required,url"`
	Skill   string `json:"skill" binding:"required"`
}
