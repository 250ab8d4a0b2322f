package fsm

import (
	"regexp"
	"strings"
)

type Intent string

const (
	IntentResumeShared  Intent = "resume_shared"
	IntentNotInterested Intent = "not_interested"
	IntentWillSendLater Intent = "will_send_later"
	IntentSalary        Intent = "salary"
	IntentStack         Intent = "stack"
	IntentTimeline      Intent = "timeline"
	IntentSendJDFirst   Intent = "send_jd_first"
	IntentDefault       Intent = "default"
)

// A URL counts as a resume link on a known document extension or
// hosting domain, or when the URL itself mentions resume/cv (a bare
// "my-resume-file" share link has neither extension nor domain).
var resumeURLPattern = regexp.MustCompile(`https?://\S*(?:\.pdf|\.docx?|drive\.google|dropbox\.com|notion\.so|resume|cv)\S*`)

var resumePhrases = []string{"my cv", "my resume", "attached resume", "attached my resume", "attached my cv"}

var notInterestedPhrases = []string{"not interested", "stop", "unsubscribe", "no thanks", "not looking"}

var willSendLaterPhrases = []string{"will send", "later", "tomorrow", "next week"}

var salaryKeywords = []string{"salary", "compensation", "pay range", "rate", "comp"}
var stackKeywords = []string{"tech stack", "stack", "technologies", "what do you use"}
var timelineKeywords = []string{"timeline", "how long", "process take", "when would"}
var sendJDFirstKeywords = []string{"job description", "send the jd", "more details about the role", "send jd"}

// ClassifyIntent applies the priority-ordered rules: resume detection
// first, then opt-out, then promise-to-send, then topical keyword
// buckets, defaulting when nothing matches.
func ClassifyIntent(text string) Intent {
	lower := strings.ToLower(text)

	if resumeURLPattern.MatchString(lower) || containsAny(lower, resumePhrases) {
		return IntentResumeShared
	}
	if containsAny(lower, notInterestedPhrases) {
		return IntentNotInterested
	}
	if containsAny(lower, willSendLaterPhrases) {
		return IntentWillSendLater
	}
	if containsAny(lower, salaryKeywords) {
		return IntentSalary
	}
	if containsAny(lower, stackKeywords) {
		return IntentStack
	}
	if containsAny(lower, timelineKeywords) {
		return IntentTimeline
	}
	if containsAny(lower, sendJDFirstKeywords) {
		return IntentSendJDFirst
	}
	return IntentDefault
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// ResumeLikeFromAttachment synthesizes inbound text for an
// attachment-only message so ClassifyIntent still yields
// resume_shared when the attachment URL itself looks like a resume.
func ResumeLikeFromAttachment(attachmentURL string) string {
	return "attached resume " + attachmentURL
}

var resumeNamePattern = regexp.MustCompile(`\.pdf|\.docx?|resume|\bcv\b`)

// LooksLikeResumeURL reports whether a URL or filename plausibly
// points at a resume document. Same markers as resumeURLPattern, but
// it also accepts bare filenames (attachments carry a name, not
// always a URL).
func LooksLikeResumeURL(s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	return resumeURLPattern.MatchString(lower) || resumeNamePattern.MatchString(lower)
}
