package templates

import (
	"fmt"
	"time"

	"github.com/emiliopalmerini/mcollect/internal/util"
)

func formatScore(score float64) string {
	return util.FormatScore(score)
}

func formatTime(t time.Time) string {
	return util.FormatDateTime(t)
}

func formatProgress(current, total int) string {
	return fmt.Sprintf("%d / %d", current, total)
}

func statusClass(v ImprovementView) string {
	switch {
	case !v.Completed:
		return "running"
	case v.TargetReached:
		return "success"
	case v.Status == "error":
		return "error"
	default:
		return "completed"
	}
}
