package reconcile

import "strings"

var subjectEmojis = []struct {
	keyword string
	emoji   string
}{
	{"math", "🔢"},
	{"science", "🔬"},
	{"english", "📖"},
	{"history", "🏛️"},
	{"art", "🎨"},
	{"music", "🎵"},
	{"pe", "⚽"},
	{"spanish", "🇪🇸"},
	{"french", "🇫🇷"},
	{"computer", "💻"},
}

const defaultEmoji = "📝"

// SubjectEmoji returns the emoji of the first keyword contained in subject.
func SubjectEmoji(subject string) string {
	lower := strings.ToLower(subject)
	for _, s := range subjectEmojis {
		if strings.Contains(lower, s.keyword) {
			return s.emoji
		}
	}
	return defaultEmoji
}
