package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
)

// FilterKind enumerates the feed filter strategies. The zero value is "no
// filter": the plain global feed.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterUsername
	FilterLikedPosts
	FilterFollowing
	FilterUserID
	FilterDaysAgo
	FilterDateRange
)

// FeedFilter is the decoded form of the `filter`/`filterData` query pair.
//
// The raw pair is stringly-typed: one name selects the strategy and one
// string argument means a username, a user id, a day count, or a date pair
// depending on the name. Instead of threading those two strings through the
// service and re-interpreting them at each use site, ParseFeedFilter decodes
// them ONCE at the boundary into this tagged union; after that, exactly one
// of the payload fields is meaningful, selected by Kind.
type FeedFilter struct {
	Kind     FilterKind
	Username string    // FilterUsername: substring to match
	UserID   string    // FilterLikedPosts, FilterFollowing, FilterUserID
	Days     int       // FilterDaysAgo
	Start    time.Time // FilterDateRange: inclusive lower bound
	End      time.Time // FilterDateRange: exclusive upper bound (day after the given end)
}

// filterDateLayouts are tried in order when parsing client-sent dates. The
// clients send either full timestamps or bare dates.
var filterDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a client-sent date string, accepting the same layouts
// everywhere a date crosses the API boundary (dateRange filter bounds, the
// maxDate pagination cursor): RFC 3339, a timestamp without zone, or a bare
// yyyy-mm-dd.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range filterDateLayouts {
		if d, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// ParseFeedFilter decodes the filter name and argument into a FeedFilter.
// All shape validation happens here; existence checks (does this user id
// exist?) stay in the service because they need the repository.
//
// The error messages are part of the API contract and must not be reworded.
func ParseFeedFilter(name, data string) (FeedFilter, error) {
	if name == "" {
		return FeedFilter{Kind: FilterNone}, nil
	}
	if data == "" {
		return FeedFilter{}, apperror.ValidationFailed("filterData", `"filterData" is required`)
	}

	switch name {
	case "username":
		return FeedFilter{Kind: FilterUsername, Username: data}, nil

	case "likedPosts", "following", "userId":
		// User ids are xids; anything that doesn't parse can't exist.
		if _, err := xid.FromString(data); err != nil {
			return FeedFilter{}, apperror.ValidationFailed("filterData", "Invalid userId")
		}
		kind := map[string]FilterKind{
			"likedPosts": FilterLikedPosts,
			"following":  FilterFollowing,
			"userId":     FilterUserID,
		}[name]
		return FeedFilter{Kind: kind, UserID: data}, nil

	case "daysAgo":
		n, err := strconv.Atoi(data)
		if err != nil || n < 0 {
			// The missing "be" is not a typo to fix: clients match on this exact string.
			return FeedFilter{}, apperror.ValidationFailed("filterData", `"filterData" must an integer >= 0`)
		}
		return FeedFilter{Kind: FilterDaysAgo, Days: n}, nil

	case "dateRange":
		parts := strings.Split(data, ",")
		if len(parts) != 2 {
			return FeedFilter{}, apperror.ValidationFailed("filterData",
				"Must specify start and end dates separated by a comma.\nEx: filterData=start,end")
		}
		start, okStart := ParseDate(parts[0])
		end, okEnd := ParseDate(parts[1])
		if !okStart || !okEnd {
			return FeedFilter{}, apperror.ValidationFailed("filterData", "Invalid start and/or end date")
		}
		// The given end date is included in the range: exclusive bound is
		// the start of the following day.
		return FeedFilter{Kind: FilterDateRange, Start: start, End: end.AddDate(0, 0, 1)}, nil

	default:
		return FeedFilter{}, apperror.ValidationFailed("filter", "Invalid filter")
	}
}

// daysAgoWindow converts a day count into the [start, end) window the
// dispatcher queries: n days back from local midnight. n=0 means "today":
// midnight through tomorrow's midnight.
func daysAgoWindow(days int, now time.Time) (start, end time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end = midnight
	if days == 0 {
		end = midnight.AddDate(0, 0, 1)
	}
	start = midnight.AddDate(0, 0, -days)
	return start, end
}
