package dialog

import (
	"strconv"
	"strings"
	"time"

	"github.com/suPer8Hu/whisperbox/internal/messages"
)

// listFilter is the /messages query shared by the command and PAGINATE tokens.
type listFilter struct {
	Status   *messages.Status
	LinkSlug *string
	From     *time.Time
}

// parseFilters reads key=value args: status=NEW|DELIVERED|READ|BLOCKED,
// link=<slug>, period=<n>d|<n>h. Unknown keys and bad values are ignored.
func parseFilters(args []string, now time.Time) listFilter {
	var f listFilter
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "status":
			if st, ok := messages.ParseStatus(val); ok {
				f.Status = &st
			} else {
				f.Status = nil
			}
		case "link":
			if val != "" {
				v := val
				f.LinkSlug = &v
			}
		case "period":
			if from, ok := parsePeriod(val, now); ok {
				f.From = &from
			}
		}
	}
	return f
}

// maxPeriodDays clamps "period=" so a huge value means "everything" rather
// than overflowing into the future.
const maxPeriodDays = 100 * 365

func parsePeriod(val string, now time.Time) (time.Time, bool) {
	if len(val) < 2 {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(val[:len(val)-1])
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	switch val[len(val)-1] {
	case 'd':
		return now.AddDate(0, 0, -min(n, maxPeriodDays)), true
	case 'h':
		return now.Add(-time.Duration(min(n, maxPeriodDays*24)) * time.Hour), true
	}
	return time.Time{}, false
}
