// internal/jobs/publish-posts/models.go
package publishposts

type Output struct {
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	PostIDs   []string `json:"postIds,omitempty"`
	RanAt     string   `json:"ranAt"` // ISO 8601
}
