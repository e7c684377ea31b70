package services

import (
	"regexp"
	"strings"
)

// DealOutcome is the keyword classification of a single message.
type DealOutcome string

const (
	DealWon           DealOutcome = "won"
	DealLost          DealOutcome = "lost"
	DealNeedsFollowUp DealOutcome = "needs_follow_up"
	DealNeutral       DealOutcome = "neutral"
)

// Sentiment is a coarse bag-of-words score over recent inbound messages.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// SentimentWindow is how many of the latest inbound messages are scored.
const SentimentWindow = 10

// KeywordSets configures the classifier. Matching is case-insensitive and
// whole-word; multi-word phrases are allowed.
type KeywordSets struct {
	Won      []string
	Lost     []string
	FollowUp []string
	Positive []string
	Negative []string
}

func DefaultKeywords() KeywordSets {
	return KeywordSets{
		Won: []string{
			"yes", "deal", "confirmed", "confirm", "proceed", "go ahead", "place the order",
			"buy", "purchase", "paid", "payment done", "agreed", "accept", "sign", "book it",
		},
		Lost: []string{
			"not interested", "no thanks", "no thank you", "cancel", "too expensive",
			"went with another", "found another", "no longer", "unsubscribe", "stop",
		},
		FollowUp: []string{
			"think about it", "later", "maybe", "call me", "get back", "next week",
			"not sure", "let me check", "remind me", "busy", "tomorrow",
		},
		Positive: []string{
			"great", "good", "thanks", "thank you", "love", "excellent", "perfect",
			"happy", "awesome", "amazing", "nice",
		},
		Negative: []string{
			"bad", "expensive", "disappointed", "angry", "terrible", "problem", "issue",
			"worst", "poor", "slow", "refund",
		},
	}
}

// Classifier maps message text to a deal outcome and a sentiment. It holds
// no state beyond its compiled patterns and is safe for concurrent use.
type Classifier struct {
	won      *regexp.Regexp
	lost     *regexp.Regexp
	followUp *regexp.Regexp
	positive *regexp.Regexp
	negative *regexp.Regexp
}

func NewClassifier(kw KeywordSets) *Classifier {
	return &Classifier{
		won:      compileKeywords(kw.Won),
		lost:     compileKeywords(kw.Lost),
		followUp: compileKeywords(kw.FollowUp),
		positive: compileKeywords(kw.Positive),
		negative: compileKeywords(kw.Negative),
	}
}

// compileKeywords builds one alternation per category. An empty list yields
// nil, which never matches.
func compileKeywords(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func matches(re *regexp.Regexp, text string) bool {
	return re != nil && re.MatchString(text)
}

func countMatches(re *regexp.Regexp, text string) int {
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

// ClassifyDeal checks Won, then Lost, then NeedsFollowUp keywords; the first
// category that matches wins.
func (c *Classifier) ClassifyDeal(text string) DealOutcome {
	switch {
	case matches(c.won, text):
		return DealWon
	case matches(c.lost, text):
		return DealLost
	case matches(c.followUp, text):
		return DealNeedsFollowUp
	default:
		return DealNeutral
	}
}

// ClassifySentiment counts positive and negative keyword hits across texts.
// Equal counts, including none, are neutral.
func (c *Classifier) ClassifySentiment(texts []string) Sentiment {
	var pos, neg int
	for _, t := range texts {
		pos += countMatches(c.positive, t)
		neg += countMatches(c.negative, t)
	}
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
