package lifecycle

import "github.com/equiplend/frontend/internal/models"

// StatusCounts counts requests per status. Every known status is present,
// so the tab badges can render zeros.
func StatusCounts(reqs []models.BorrowRequest) map[models.Status]int {
	out := make(map[models.Status]int, len(models.Statuses)+1)
	for _, s := range models.Statuses {
		out[s] = 0
	}
	for _, r := range reqs {
		out[r.Status]++
	}
	return out
}

// Filter keeps requests in status s. An empty status keeps everything.
func Filter(reqs []models.BorrowRequest, s models.Status) []models.BorrowRequest {
	if s == "" {
		return reqs
	}
	out := make([]models.BorrowRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.Status == s {
			out = append(out, r)
		}
	}
	return out
}
