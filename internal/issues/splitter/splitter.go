// Package splitter divides a free-text issue message into a leading
// explanatory clause and a trailing highlight clause that the dashboard
// renders emphasized on its own line.
package splitter

import (
	"regexp"
	"strings"
)

// SplitMessage is the two-clause result of splitting one message.
type SplitMessage struct {
	MainText        string `json:"mainText"`
	HighlightedText string `json:"highlightedText"`
}

// patterns is evaluated in order and the first match wins. The order is
// a compatibility contract: several patterns are overlapping supersets
// (the generic "N units available" matcher must run after the "Only N
// units available" variants or it truncates the highlight). Both case
// variants of the restricted-words phrasing exist upstream and both are
// kept verbatim.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`The Characters used are:.*$`),
	regexp.MustCompile(`The words Used are.*$`),
	regexp.MustCompile(`The words used are.*$`),
	regexp.MustCompile(`Only \d+ units? (?:are )?available.*$`),
	regexp.MustCompile(`Only \d+ units?.*$`),
	regexp.MustCompile(`Reason:.*$`),
	regexp.MustCompile(`Problem:.*$`),
	regexp.MustCompile(`\d+ page views?.*$`),
	regexp.MustCompile(`Amazon recommends replenishing \d+ units?.*$`),
	regexp.MustCompile(`\d+ units? (?:are )?unfulfillable.*$`),
	regexp.MustCompile(`\d+ units? (?:are )?available.*$`),
}

// Split applies the pattern list to message. The first matching pattern
// decides the split point: everything from the match start to the end of
// the message is the highlight, everything before it the main text. When
// no pattern matches, the whole message is the main text. Empty input
// yields two empty strings.
func Split(message string) SplitMessage {
	if message == "" {
		return SplitMessage{}
	}

	for _, p := range patterns {
		loc := p.FindStringIndex(message)
		if loc == nil {
			continue
		}
		return SplitMessage{
			MainText:        strings.TrimSpace(message[:loc[0]]),
			HighlightedText: strings.TrimSpace(message[loc[0]:]),
		}
	}

	return SplitMessage{MainText: message}
}
