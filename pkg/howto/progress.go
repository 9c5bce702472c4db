package howto

// Milestone names one stage of the submission pipeline.
type Milestone string

// Pipeline milestones, in the order they are reached.
const (
	MilestoneStart      Milestone = "Start"
	MilestoneCover      Milestone = "Cover"
	MilestoneStepImages Milestone = "StepImages"
	MilestoneFiles      Milestone = "Files"
	MilestoneDatabase   Milestone = "Database"
	MilestoneComplete   Milestone = "Complete"
)

// UploadProgress tracks which pipeline milestones one submission has
// reached. A fresh value is created per submission; milestones are monotonic
// and are not cleared when a later stage fails.
type UploadProgress struct {
	Start      bool `json:"start"`
	Cover      bool `json:"cover"`
	StepImages bool `json:"step_images"`
	Files      bool `json:"files"`
	Database   bool `json:"database"`
	Complete   bool `json:"complete"`
}

func (p *UploadProgress) mark(m Milestone) {
	switch m {
	case MilestoneStart:
		p.Start = true
	case MilestoneCover:
		p.Cover = true
	case MilestoneStepImages:
		p.StepImages = true
	case MilestoneFiles:
		p.Files = true
	case MilestoneDatabase:
		p.Database = true
	case MilestoneComplete:
		p.Complete = true
	}
}

// Reached reports whether the given milestone has been marked.
func (p UploadProgress) Reached(m Milestone) bool {
	switch m {
	case MilestoneStart:
		return p.Start
	case MilestoneCover:
		return p.Cover
	case MilestoneStepImages:
		return p.StepImages
	case MilestoneFiles:
		return p.Files
	case MilestoneDatabase:
		return p.Database
	case MilestoneComplete:
		return p.Complete
	}
	return false
}
