package discord

import (
	"errors"
	"fmt"
	"strings"

	"playlistbot/pipeline"
	"playlistbot/scrape"
	"playlistbot/youtubeapi"
)

// maxListedFailures keeps the summary message readable (and under Discord's
// 2000-character limit) when many items fail.
const maxListedFailures = 10

// formatSummary renders the single user-facing result message.
func formatSummary(sum *pipeline.Summary, win scrape.TimeWindow) string {
	if sum.LinksFound == 0 {
		return fmt.Sprintf("No links found for %s.", win.DateLabel())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n%s\n%s\n", sum.Title, sum.Description, sum.URL)
	fmt.Fprintf(&b, "Added %d video(s)", sum.Added)
	if n := len(sum.Failures); n > 0 {
		fmt.Fprintf(&b, ", %d failed:\n", n)
		for i, f := range sum.Failures {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "… and %d more\n", n-maxListedFailures)
				break
			}
			fmt.Fprintf(&b, "- <%s>: %s\n", f.Link, f.Reason)
		}
	} else {
		b.WriteString(".")
	}
	return b.String()
}

// userMessage maps a whole-invocation failure to the message shown to the
// user. Anything unclassified gets the generic apology; the full error is in
// the logs either way.
func userMessage(err error) string {
	switch {
	case errors.Is(err, scrape.ErrInvalidDateFormat):
		return "That date didn't parse. Please use YYYY-MM-DD, e.g. 2024-03-14."
	case errors.Is(err, ErrChannelNotFound):
		return "I couldn't find that channel. Pick a text channel or active thread from the autocomplete."
	case errors.Is(err, youtubeapi.ErrAuthenticationFailed):
		return "YouTube authentication failed. An operator needs to re-run the consent flow."
	case errors.Is(err, pipeline.ErrQuotaExceeded):
		return "The YouTube API quota is exhausted for today. Try again after the quota resets."
	case errors.Is(err, pipeline.ErrPlaylistCreateFailed):
		return "Creating the playlist failed, so nothing was added. Please try again later."
	default:
		return "Sorry, something went wrong while building the playlist. The details have been logged."
	}
}
